package orderapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

// Orders is the part of order.Service the handlers need.
type Orders interface {
	Place(ctx context.Context, req order.PlaceRequest, idempotencyKey string) (order.Order, bool, error)
	Get(ctx context.Context, orderID string) (order.Order, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
}

type OrderHandler struct {
	orders Orders
	logger *zap.Logger
}

func NewOrderHandler(orders Orders, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// CreateOrder answers 201 for a new order and 200 when the Idempotency-Key
// was already used.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, replayed, err := h.orders.Place(ctx, req, r.Header.Get(clients.HeaderIdempotencyKey))
	if err != nil {
		var verr *order.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: order.ErrInvalidOrder.Error(), Fields: verr.Fields})
		case errors.Is(err, order.ErrTotalMismatch), errors.Is(err, order.ErrIdempotencyConflict):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("create order failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, o)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.orders.Get(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("load order failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListOrdersByUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.orders.ListByUser(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}
