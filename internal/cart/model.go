package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidItem is returned when an item cannot be added to the cart.
var ErrInvalidItem = errors.New("invalid cart item")

// LineItem is one product+variant selection in the cart. Name, image and
// price are captured when the item is added and never re-fetched.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

// NewItem is the input to AddItem: a line item without an id.
type NewItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

// ItemError describes why a NewItem was rejected.
type ItemError struct {
	Field  string
	Reason string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidItem, e.Field, e.Reason)
}

func (e *ItemError) Unwrap() error { return ErrInvalidItem }

// Validate checks the fields the engine relies on. Display fields are passed
// through uninterpreted.
func (n NewItem) Validate() error {
	switch {
	case n.ProductID == "":
		return &ItemError{Field: "productId", Reason: "is required"}
	case n.Price.IsNegative():
		return &ItemError{Field: "price", Reason: "must not be negative"}
	case n.Quantity < 1:
		return &ItemError{Field: "quantity", Reason: "must be at least 1"}
	}
	return nil
}

func (n NewItem) matches(it LineItem) bool {
	return it.ProductID == n.ProductID && it.Size == n.Size && it.Color == n.Color
}

// SameLines reports whether a and b hold the same lines in the same order
// with equal prices and quantities.
func SameLines(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.ProductID != y.ProductID || x.Size != y.Size || x.Color != y.Color ||
			x.Quantity != y.Quantity || !x.Price.Equal(y.Price) {
			return false
		}
	}
	return true
}
