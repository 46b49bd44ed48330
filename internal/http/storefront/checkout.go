package storefront

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
)

type CheckoutHandler struct {
	sessions *checkout.Manager
}

func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Start(r.Context(), chi.URLParam(r, "userId"))
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

type shippingRequest struct {
	Email   string           `json:"email"`
	Address checkout.Address `json:"address"`
}

func (h *CheckoutHandler) SetShipping(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req shippingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.SetContact(req.Email); err != nil {
		writeCheckoutError(w, err)
		return
	}
	if err := s.SetShippingAddress(req.Address); err != nil {
		writeCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

type paymentRequest struct {
	Method         checkout.PaymentMethod `json:"method"`
	SameAsShipping *bool                  `json:"sameAsShipping"`
	BillingAddress *checkout.Address      `json:"billingAddress"`
}

func (h *CheckoutHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.SetPaymentMethod(req.Method); err != nil {
		writeCheckoutError(w, err)
		return
	}
	if req.SameAsShipping != nil {
		if err := s.SetSameAsShipping(*req.SameAsShipping); err != nil {
			writeCheckoutError(w, err)
			return
		}
	}
	if req.BillingAddress != nil {
		if err := s.SetBillingAddress(*req.BillingAddress); err != nil {
			writeCheckoutError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Next(); err != nil {
		writeCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	exited, err := s.Back()
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	if exited {
		h.sessions.Discard(s.Owner())
		writeJSON(w, http.StatusOK, map[string]bool{"exited": true})
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := s.SubmitOrder(r.Context()); err != nil {
		writeCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "userId"))
	if err != nil {
		writeCheckoutError(w, err)
		return nil, false
	}
	return s, true
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	var verrs checkout.ValidationErrors
	var serr *checkout.SubmitError
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verrs})
	case errors.As(err, &serr):
		writeError(w, http.StatusBadGateway, serr.Message)
	case errors.Is(err, checkout.ErrNoSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrNotInReview),
		errors.Is(err, checkout.ErrSubmitRequired),
		errors.Is(err, checkout.ErrCheckoutComplete),
		errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, checkout.ErrSubmissionInFlight),
		errors.Is(err, checkout.ErrNotEditable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
