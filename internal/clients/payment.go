package clients

import (
	"context"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
)

// PaymentClient asks the payment service for a payment intent. It implements
// checkout.PaymentProvider.
type PaymentClient struct{ c *Client }

func NewPaymentClient(c *Client) *PaymentClient { return &PaymentClient{c: c} }

func (pc *PaymentClient) CreateIntent(ctx context.Context, req checkout.PaymentIntentRequest) (checkout.PaymentIntent, error) {
	headers := http.Header{}
	if req.IdempotencyKey != "" {
		headers.Set(HeaderIdempotencyKey, req.IdempotencyKey)
	}

	var intent checkout.PaymentIntent
	if _, err := pc.c.doJSON(ctx, http.MethodPost, "/api/payments/intents", headers, req, &intent); err != nil {
		return checkout.PaymentIntent{}, err
	}
	return intent, nil
}
