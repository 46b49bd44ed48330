package janitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
)

type fakeOrders struct {
	requests []checkout.OrderRequest
}

func (f *fakeOrders) CreateOrder(_ context.Context, req checkout.OrderRequest) (checkout.PlacedOrder, error) {
	f.requests = append(f.requests, req)
	return checkout.PlacedOrder{ID: "order-1"}, nil
}

type countingReaper struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (r *countingReaper) Reap(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, cutoff)
	return 0
}

func (r *countingReaper) EvictIdle(cutoff time.Time) int { return r.Reap(cutoff) }

func (r *countingReaper) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func TestRunNowUsesConfiguredTTLs(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions, carts := &countingReaper{}, &countingReaper{}
	j := New(sessions, carts, 30*time.Minute, time.Hour, zap.NewNop())
	j.now = func() time.Time { return now }

	j.RunNow()

	require.Len(t, sessions.cutoffs, 1)
	require.Len(t, carts.cutoffs, 1)
	assert.Equal(t, now.Add(-30*time.Minute), sessions.cutoffs[0])
	assert.Equal(t, now.Add(-time.Hour), carts.cutoffs[0])
}

func TestRunNowSweepsIdleCheckoutsAndCarts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := cart.NewMemoryStore()
	carts := cart.NewRegistry(store, zap.NewNop(), cart.WithClock(clock))
	_, err := carts.Engine(ctx, "user-1").AddItem(ctx, cart.NewItem{ProductID: "A", Price: decimal.NewFromInt(5), Quantity: 1})
	require.NoError(t, err)

	sessions := checkout.NewManager(carts, &fakeOrders{}, zap.NewNop(), checkout.WithClock(clock))
	sessions.Start(ctx, "user-1")

	core, logs := observer.New(zap.InfoLevel)
	j := New(sessions, carts, 30*time.Minute, time.Hour, zap.New(core))
	now = now.Add(2 * time.Hour)
	j.now = clock

	reaped, evicted := j.RunNow()

	assert.Equal(t, 1, reaped)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, sessions.Len())
	assert.Equal(t, 0, carts.Len())
	assert.Equal(t, 1, logs.FilterMessage("janitor sweep").Len())

	items, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNewRaisesCartTTLToCheckoutTTL(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions, carts := &countingReaper{}, &countingReaper{}
	core, logs := observer.New(zap.WarnLevel)
	j := New(sessions, carts, 30*time.Minute, 10*time.Minute, zap.New(core))
	j.now = func() time.Time { return now }

	j.RunNow()

	require.Len(t, carts.cutoffs, 1)
	assert.Equal(t, now.Add(-30*time.Minute), carts.cutoffs[0])
	assert.Equal(t, 1, logs.FilterMessage("cart idle ttl shorter than checkout ttl, raising it").Len())
}

func TestLiveCheckoutKeepsCartLoaded(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := cart.NewMemoryStore()
	carts := cart.NewRegistry(store, zap.NewNop(), cart.WithClock(clock))
	_, err := carts.Engine(ctx, "user-1").AddItem(ctx, cart.NewItem{ProductID: "A", Price: decimal.NewFromInt(5), Quantity: 1})
	require.NoError(t, err)

	orders := &fakeOrders{}
	sessions := checkout.NewManager(carts, orders, zap.NewNop(), checkout.WithClock(clock))
	s := sessions.Start(ctx, "user-1")
	j := New(sessions, carts, 30*time.Minute, 30*time.Minute, zap.NewNop())
	j.now = clock

	// Only the checkout session is used for the next hour.
	now = now.Add(20 * time.Minute)
	require.NoError(t, s.SetContact("ada@example.com"))
	now = now.Add(20 * time.Minute)
	require.NoError(t, s.SetShippingAddress(checkout.Address{
		Name: "Ada Lovelace", Phone: "+44 20 7946 0000", Street: "12 Analytical Row", City: "London",
		State: "Greater London", PostalCode: "N1 9GU", Country: "GB",
	}))
	now = now.Add(20 * time.Minute)
	require.NoError(t, s.Next())

	reaped, evicted := j.RunNow()
	assert.Equal(t, 0, reaped)
	assert.Equal(t, 0, evicted)

	_, err = carts.Engine(ctx, "user-1").AddItem(ctx, cart.NewItem{ProductID: "B", Price: decimal.NewFromInt(7), Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, s.SetPaymentMethod(checkout.PaymentCard))
	require.NoError(t, s.Next())
	_, err = s.SubmitOrder(ctx)
	require.NoError(t, err)

	require.Len(t, orders.requests, 1)
	assert.Len(t, orders.requests[0].Items, 2)
	assert.Empty(t, carts.Engine(ctx, "user-1").Items())
	items, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRunStopsWithContext(t *testing.T) {
	sessions, carts := &countingReaper{}, &countingReaper{}
	j := New(sessions, carts, time.Minute, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx, time.Second)
		close(done)
	}()

	require.Eventually(t, func() bool { return sessions.calls() > 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
