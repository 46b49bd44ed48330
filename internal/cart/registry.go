package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry hands out one Engine per owner, loading it from the Store on first
// use. It is constructed once at startup and passed to whatever needs carts.
type Registry struct {
	store  Store
	logger *zap.Logger
	opts   []Option

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewRegistry(store Store, logger *zap.Logger, opts ...Option) *Registry {
	return &Registry{
		store:   store,
		logger:  logger,
		opts:    opts,
		engines: make(map[string]*Engine),
	}
}

// Engine returns the owner's cart, loading it if it is not cached yet.
func (r *Registry) Engine(ctx context.Context, owner string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[owner]; ok {
		return e
	}
	e := NewEngine(ctx, owner, r.store, r.logger, r.opts...)
	r.engines[owner] = e
	return e
}

// EvictIdle drops cached engines unused since before cutoff. Their items are
// already in the Store and are reloaded on next access.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for owner, e := range r.engines {
		if e.IdleSince().Before(cutoff) {
			delete(r.engines, owner)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}
