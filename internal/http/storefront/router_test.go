package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type orderStub struct {
	mu       sync.Mutex
	keys     []string
	bodies   []map[string]any
	cids     []string
	failWith int
}

func (s *orderStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)

	s.mu.Lock()
	s.keys = append(s.keys, r.Header.Get(clients.HeaderIdempotencyKey))
	s.bodies = append(s.bodies, payload)
	s.cids = append(s.cids, r.Header.Get(middleware.HeaderCorrelationID))
	fail := s.failWith
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail != 0 {
		w.WriteHeader(fail)
		_, _ = w.Write([]byte(`{"message":"database unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"id":"order-1","status":"pending","total":"42.39","createdAt":"2026-05-01T10:00:00Z"}`))
}

type testEnv struct {
	router http.Handler
	orders *orderStub
	carts  *cart.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stub := &orderStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	base := clients.NewClient("order", srv.URL, &http.Client{Timeout: 5 * time.Second})
	carts := cart.NewRegistry(cart.NewMemoryStore(), zap.NewNop())
	sessions := checkout.NewManager(carts, clients.NewOrderClient(base), zap.NewNop())

	return &testEnv{
		router: NewRouter(Deps{
			Logger:           zap.NewNop(),
			CORSAllowOrigins: []string{"*"},
			Carts:            carts,
			Checkouts:        sessions,
			Upstreams:        []clients.Upstream{{Client: base, Path: "/health"}},
		}),
		orders: stub,
		carts:  carts,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(middleware.HeaderCorrelationID, "cid-test")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

const shirtJSON = `{"productId":"A","name":"Shirt","image":"/a.jpg","price":"10.00","quantity":2,"size":"M","color":"Red"}`

const addressJSON = `{"name":"Ada Lovelace","phone":"555-0100","street":"12 Analytical Row","city":"London","state":"LDN","postalCode":"N1","country":"GB"}`

func snapshotOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	s, ok := body["snapshot"].(map[string]any)
	require.True(t, ok, "missing snapshot in %v", body)
	return s
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "storefront", body["service"])
	assert.Equal(t, "cid-test", rec.Header().Get(middleware.HeaderCorrelationID))
}

func TestHealthUpstreams(t *testing.T) {
	env := newTestEnv(t)

	// The order stub answers 201 to every path, which counts as healthy.
	rec, body := env.do(t, http.MethodGet, "/health/upstreams", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	upstreams, ok := body["upstream"].([]any)
	require.True(t, ok)
	require.Len(t, upstreams, 1)
	first := upstreams[0].(map[string]any)
	assert.Equal(t, "order", first["name"])
	assert.Equal(t, float64(http.StatusCreated), first["statusCode"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/cart/user-1", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/cart/{userId}`)
}

func TestCartLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/cart/user-1/items", shirtJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = env.do(t, http.MethodPost, "/api/cart/user-1/items", strings.Replace(shirtJSON, `"quantity":2`, `"quantity":1`, 1))
	require.Equal(t, http.StatusOK, rec.Code)

	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.EqualValues(t, 3, item["quantity"])
	assert.Equal(t, "10", item["price"])

	snap := snapshotOf(t, body)
	assert.EqualValues(t, 30, snap["subtotal"])
	assert.EqualValues(t, 2.4, snap["tax"])
	assert.EqualValues(t, 9.99, snap["shipping"])
	assert.EqualValues(t, 42.39, snap["total"])

	itemID := item["id"].(string)
	rec, body = env.do(t, http.MethodPatch, "/api/cart/user-1/items/"+itemID, `{"quantity":8}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, snapshotOf(t, body)["shipping"])

	rec, body = env.do(t, http.MethodDelete, "/api/cart/user-1/items/"+itemID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["items"])

	env.do(t, http.MethodPost, "/api/cart/user-1/items", shirtJSON)
	rec, body = env.do(t, http.MethodDelete, "/api/cart/user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["items"])
	assert.EqualValues(t, 0, snapshotOf(t, body)["total"])
}

func TestCartRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := map[string]struct {
		method, path, body string
		wantError          string
	}{
		"invalid json":     {http.MethodPost, "/api/cart/user-1/items", `{`, "invalid JSON body"},
		"missing product":  {http.MethodPost, "/api/cart/user-1/items", `{"price":"1","quantity":1}`, "productId is required"},
		"zero quantity":    {http.MethodPost, "/api/cart/user-1/items", `{"productId":"A","price":"1","quantity":0}`, "quantity must be at least 1"},
		"negative price":   {http.MethodPost, "/api/cart/user-1/items", `{"productId":"A","price":"-1","quantity":1}`, "price must not be negative"},
		"missing quantity": {http.MethodPatch, "/api/cart/user-1/items/x", `{}`, "quantity is required"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec, body := env.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestCheckoutHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/user-1/items", strings.Replace(shirtJSON, `"quantity":2`, `"quantity":3`, 1))

	rec, body := env.do(t, http.MethodPost, "/api/checkout/user-1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "shipping", body["step"])

	rec, _ = env.do(t, http.MethodPut, "/api/checkout/user-1/shipping", `{"email":"ada@example.com","address":`+addressJSON+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = env.do(t, http.MethodPost, "/api/checkout/user-1/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payment", body["step"])

	rec, _ = env.do(t, http.MethodPut, "/api/checkout/user-1/payment", `{"method":"card","sameAsShipping":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = env.do(t, http.MethodPost, "/api/checkout/user-1/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review", body["step"])

	rec, body = env.do(t, http.MethodPost, "/api/checkout/user-1/submit", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "confirmation", body["step"])
	assert.Equal(t, "order-1", body["order"].(map[string]any)["id"])

	require.Len(t, env.orders.keys, 1)
	assert.NotEmpty(t, env.orders.keys[0])
	assert.Equal(t, "cid-test", env.orders.cids[0])
	assert.Equal(t, "42.39", env.orders.bodies[0]["total"])
	assert.Equal(t, "ada@example.com", env.orders.bodies[0]["email"])

	_, cartBody := env.do(t, http.MethodGet, "/api/cart/user-1", "")
	assert.Empty(t, cartBody["items"])

	rec, _ = env.do(t, http.MethodPost, "/api/checkout/user-1/back", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/checkout/user-1", "")

	rec, body := env.do(t, http.MethodPost, "/api/checkout/user-1/next", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation failed", body["error"])
	fields := map[string]string{}
	for _, f := range body["fields"].([]any) {
		fe := f.(map[string]any)
		fields[fe["field"].(string)] = fe["message"].(string)
	}
	assert.Equal(t, "is required", fields["email"])
	assert.Equal(t, "is required", fields["shippingAddress.postalCode"])
	assert.Equal(t, "cart is empty", fields["items"])
}

func TestCheckoutStateConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/checkout/user-1", "")

	rec, body := env.do(t, http.MethodPost, "/api/checkout/user-1/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, checkout.ErrNotInReview.Error(), body["error"])

	rec, _ = env.do(t, http.MethodPut, "/api/checkout/user-1/payment", `{"method":"card"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/checkout/user-1/payment", `{"method":"cash"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckoutBackFromShippingExits(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/checkout/user-1", "")

	rec, body := env.do(t, http.MethodPost, "/api/checkout/user-1/back", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["exited"])

	rec, _ = env.do(t, http.MethodGet, "/api/checkout/user-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutSubmitFailureReusesKey(t *testing.T) {
	env := newTestEnv(t)
	env.orders.failWith = http.StatusServiceUnavailable
	env.do(t, http.MethodPost, "/api/cart/user-1/items", shirtJSON)
	env.do(t, http.MethodPost, "/api/checkout/user-1", "")
	env.do(t, http.MethodPut, "/api/checkout/user-1/shipping", `{"email":"ada@example.com","address":`+addressJSON+`}`)
	env.do(t, http.MethodPost, "/api/checkout/user-1/next", "")
	env.do(t, http.MethodPut, "/api/checkout/user-1/payment", `{"method":"paypal"}`)
	env.do(t, http.MethodPost, "/api/checkout/user-1/next", "")

	rec, body := env.do(t, http.MethodPost, "/api/checkout/user-1/submit", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "We could not place your order. Please try again.", body["error"])

	_, view := env.do(t, http.MethodGet, "/api/checkout/user-1", "")
	assert.Equal(t, "review", view["step"])
	assert.Equal(t, body["error"], view["error"])

	env.orders.failWith = 0
	rec, _ = env.do(t, http.MethodPost, "/api/checkout/user-1/submit", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, env.orders.keys, 2)
	assert.Equal(t, env.orders.keys[0], env.orders.keys[1])
}

func TestCheckoutCartChangedAfterFailedSubmitUsesNewKey(t *testing.T) {
	env := newTestEnv(t)
	env.orders.failWith = http.StatusServiceUnavailable
	env.do(t, http.MethodPost, "/api/cart/user-1/items", shirtJSON)
	env.do(t, http.MethodPost, "/api/checkout/user-1", "")
	env.do(t, http.MethodPut, "/api/checkout/user-1/shipping", `{"email":"ada@example.com","address":`+addressJSON+`}`)
	env.do(t, http.MethodPost, "/api/checkout/user-1/next", "")
	env.do(t, http.MethodPut, "/api/checkout/user-1/payment", `{"method":"card","sameAsShipping":true}`)
	env.do(t, http.MethodPost, "/api/checkout/user-1/next", "")

	rec, _ := env.do(t, http.MethodPost, "/api/checkout/user-1/submit", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/cart/user-1/items", strings.Replace(shirtJSON, `"size":"M"`, `"size":"L"`, 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.orders.failWith = 0

	rec, body := env.do(t, http.MethodPost, "/api/checkout/user-1/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fe := body["fields"].([]any)[0].(map[string]any)
	assert.Equal(t, "items", fe["field"])
	assert.Equal(t, "cart changed since review", fe["message"])
	require.Len(t, env.orders.keys, 1)

	rec, _ = env.do(t, http.MethodPost, "/api/checkout/user-1/submit", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, env.orders.keys, 2)
	assert.NotEqual(t, env.orders.keys[0], env.orders.keys[1])
	assert.Len(t, env.orders.bodies[0]["items"], 1)
	assert.Len(t, env.orders.bodies[1]["items"], 2)

	_, cartBody := env.do(t, http.MethodGet, "/api/cart/user-1", "")
	assert.Empty(t, cartBody["items"])
}

func TestCheckoutMissingSession(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/checkout/nobody", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, checkout.ErrNoSession.Error(), body["error"])
}

func TestWriteCheckoutErrorUnknown(t *testing.T) {
	rec := httptest.NewRecorder()

	writeCheckoutError(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequestWithContext(context.Background(), http.MethodOptions, "/api/cart/user-1", nil)
	req.Header.Set("Origin", "http://shop.test")
	rec := httptest.NewRecorder()

	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
