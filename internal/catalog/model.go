package catalog

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("invalid product")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Product is a catalog entry. Carts copy name, image and price from it when
// an item is added.
type Product struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Sizes       []string        `json:"sizes"`
	Colors      []string        `json:"colors"`
	Active      bool            `json:"active"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p Product) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Join(ErrInvalidProduct, err)
	}
	if p.Price.IsNegative() {
		return errors.Join(ErrInvalidProduct, errors.New("price must not be negative"))
	}
	return nil
}
