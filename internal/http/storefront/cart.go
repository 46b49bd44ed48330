package storefront

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
)

type CartHandler struct {
	carts *cart.Registry
}

type cartResponse struct {
	Items    []cart.LineItem `json:"items"`
	Snapshot cart.Snapshot   `json:"snapshot"`
}

func (h *CartHandler) engine(r *http.Request) *cart.Engine {
	return h.carts.Engine(r.Context(), chi.URLParam(r, "userId"))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeCart(w, h.engine(r))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var n cart.NewItem
	if err := decodeJSON(r, &n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	e := h.engine(r)
	if _, err := e.AddItem(r.Context(), n); err != nil {
		var ie *cart.ItemError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Field+" "+ie.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to add item")
		return
	}
	writeCart(w, e)
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	e := h.engine(r)
	e.UpdateQuantity(r.Context(), chi.URLParam(r, "itemId"), *req.Quantity)
	writeCart(w, e)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	e := h.engine(r)
	e.RemoveItem(r.Context(), chi.URLParam(r, "itemId"))
	writeCart(w, e)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	e := h.engine(r)
	e.Clear(r.Context())
	writeCart(w, e)
}

func writeCart(w http.ResponseWriter, e *cart.Engine) {
	items, snapshot := e.View()
	writeJSON(w, http.StatusOK, cartResponse{Items: items, Snapshot: snapshot})
}
