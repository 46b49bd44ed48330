package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
)

// Step is a position in the checkout flow. Steps are strictly ordered.
type Step int

const (
	StepShipping Step = iota
	StepPayment
	StepReview
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPayPal PaymentMethod = "paypal"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentPayPal
}

type Address struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

func (a Address) trimmed() Address {
	return Address{
		Name:       strings.TrimSpace(a.Name),
		Phone:      strings.TrimSpace(a.Phone),
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

var (
	ErrNotInReview        = errors.New("order can only be submitted from review")
	ErrSubmitRequired     = errors.New("review is left by submitting the order")
	ErrCheckoutComplete   = errors.New("checkout already completed")
	ErrSessionClosed      = errors.New("checkout session is closed")
	ErrSubmissionInFlight = errors.New("order submission in progress")
	ErrNotEditable        = errors.New("field cannot be changed at the current step")
	ErrNoSession          = errors.New("no checkout session")
)

// FieldError names one field that blocks a transition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when the current step's data is incomplete.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return "checkout validation failed: " + strings.Join(parts, "; ")
}

// SubmitError reports a failed order submission. Message is safe to show to
// the shopper; Err carries the cause.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error { return e.Err }

// OrderRequest is what the order-creation collaborator receives.
type OrderRequest struct {
	UserID           string          `json:"userId"`
	Items            []cart.LineItem `json:"items"`
	Total            decimal.Decimal `json:"total"`
	Email            string          `json:"email"`
	ShippingAddress  Address         `json:"shippingAddress"`
	BillingAddress   Address         `json:"billingAddress"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	IdempotencyKey   string          `json:"-"`
}

type PlacedOrder struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (PlacedOrder, error)
}

type PaymentIntentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Method         PaymentMethod   `json:"method"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

type PaymentIntent struct {
	Reference    string `json:"reference"`
	ClientSecret string `json:"clientSecret"`
}

// PaymentProvider creates a payment intent for client-side confirmation.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
}
