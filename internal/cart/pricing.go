package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Pricing rules, shared with the order service through Price.
var (
	taxRate               = decimal.RequireFromString("0.08")
	freeShippingThreshold = decimal.NewFromInt(75)
	flatShipping          = decimal.RequireFromString("9.99")
)

// FreeShippingThreshold returns the subtotal from which shipping is free.
func FreeShippingThreshold() decimal.Decimal { return freeShippingThreshold }

// Snapshot is the derived view of a set of line items. It is computed from
// the items on every read and never stored.
type Snapshot struct {
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
	ItemCount int
}

// Price derives the snapshot for items. An empty cart ships for free since
// nothing is delivered.
func Price(items []LineItem) Snapshot {
	subtotal := decimal.Zero
	count := 0
	for _, it := range items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}

	tax := subtotal.Mul(taxRate).Round(2)

	shipping := flatShipping
	if count == 0 || subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Snapshot{
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shipping,
		Total:     subtotal.Add(tax).Add(shipping),
		ItemCount: count,
	}
}

// MarshalJSON renders money as numbers with two decimals.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal  json.Number `json:"subtotal"`
		Tax       json.Number `json:"tax"`
		Shipping  json.Number `json:"shipping"`
		Total     json.Number `json:"total"`
		ItemCount int         `json:"itemCount"`
	}{
		Subtotal:  json.Number(s.Subtotal.StringFixed(2)),
		Tax:       json.Number(s.Tax.StringFixed(2)),
		Shipping:  json.Number(s.Shipping.StringFixed(2)),
		Total:     json.Number(s.Total.StringFixed(2)),
		ItemCount: s.ItemCount,
	})
}
