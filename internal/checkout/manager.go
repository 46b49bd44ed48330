package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
)

// Manager keeps at most one checkout session per owner.
type Manager struct {
	carts  *cart.Registry
	orders OrderCreator
	logger *zap.Logger
	opts   []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(carts *cart.Registry, orders OrderCreator, logger *zap.Logger, opts ...Option) *Manager {
	return &Manager{
		carts:    carts,
		orders:   orders,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Start opens a fresh session for owner, replacing any previous one.
func (m *Manager) Start(ctx context.Context, owner string) *Session {
	s := NewSession(owner, m.carts.Engine(ctx, owner), m.orders, m.logger, m.opts...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[owner] = s
	return s
}

// Get returns the owner's session. Sessions the shopper backed out of are
// dropped and reported as ErrNoSession. A confirmed session stays readable
// until it is reaped or replaced.
func (m *Manager) Get(owner string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[owner]
	if !ok {
		return nil, ErrNoSession
	}
	if s.Exited() {
		delete(m.sessions, owner)
		return nil, ErrNoSession
	}
	return s, nil
}

func (m *Manager) Discard(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, owner)
}

// Reap discards sessions idle since before cutoff, and every session that
// has exited.
func (m *Manager) Reap(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	for owner, s := range m.sessions {
		if s.Exited() || s.IdleSince().Before(cutoff) {
			delete(m.sessions, owner)
			reaped++
		}
	}
	return reaped
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
