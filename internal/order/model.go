package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

type Address struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

type Item struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Email            string          `json:"email"`
	Items            []Item          `json:"items"`
	Total            decimal.Decimal `json:"total"`
	ShippingAddress  Address         `json:"shippingAddress"`
	BillingAddress   Address         `json:"billingAddress"`
	PaymentMethod    string          `json:"paymentMethod"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	Status           Status          `json:"status"`
	IdempotencyKey   string          `json:"-"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// PlaceRequest is the body of an order submission.
type PlaceRequest struct {
	UserID           string          `json:"userId" validate:"required"`
	Items            []Item          `json:"items" validate:"required,min=1,dive"`
	Total            decimal.Decimal `json:"total"`
	Email            string          `json:"email" validate:"required,email"`
	ShippingAddress  Address         `json:"shippingAddress"`
	BillingAddress   Address         `json:"billingAddress"`
	PaymentMethod    string          `json:"paymentMethod" validate:"required,oneof=card paypal"`
	PaymentReference string          `json:"paymentReference"`
}
