package clients

import (
	"context"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// OrderClient talks to the order service. It implements checkout.OrderCreator.
type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

// CreateOrder posts the order with its idempotency key. A replayed key is
// answered with 200 and the original order, which counts as success.
func (oc *OrderClient) CreateOrder(ctx context.Context, req checkout.OrderRequest) (checkout.PlacedOrder, error) {
	headers := http.Header{}
	if req.IdempotencyKey != "" {
		headers.Set(HeaderIdempotencyKey, req.IdempotencyKey)
	}

	var placed checkout.PlacedOrder
	if _, err := oc.c.doJSON(ctx, http.MethodPost, "/api/orders", headers, req, &placed); err != nil {
		return checkout.PlacedOrder{}, err
	}
	return placed, nil
}
