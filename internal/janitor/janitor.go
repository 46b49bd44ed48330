package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type SessionReaper interface {
	Reap(cutoff time.Time) int
}

type CartEvictor interface {
	EvictIdle(cutoff time.Time) int
}

// Janitor drops idle checkout sessions and unloads idle cart engines. Cart
// contents are already persisted, so an evicted engine is rebuilt from the
// store on next use.
type Janitor struct {
	sessions    SessionReaper
	carts       CartEvictor
	checkoutTTL time.Duration
	cartIdleTTL time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// New returns a janitor with the given TTLs. The cart TTL is raised to the
// checkout TTL when shorter, so a cart is never unloaded under a checkout
// session that is still alive.
func New(sessions SessionReaper, carts CartEvictor, checkoutTTL, cartIdleTTL time.Duration, logger *zap.Logger) *Janitor {
	if cartIdleTTL < checkoutTTL {
		logger.Warn("cart idle ttl shorter than checkout ttl, raising it",
			zap.Duration("cart_idle_ttl", cartIdleTTL),
			zap.Duration("checkout_ttl", checkoutTTL),
		)
		cartIdleTTL = checkoutTTL
	}
	return &Janitor{
		sessions:    sessions,
		carts:       carts,
		checkoutTTL: checkoutTTL,
		cartIdleTTL: cartIdleTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// RunNow performs one sweep and reports what it removed.
func (j *Janitor) RunNow() (sessions, carts int) {
	now := j.now()
	sessions = j.sessions.Reap(now.Add(-j.checkoutTTL))
	carts = j.carts.EvictIdle(now.Add(-j.cartIdleTTL))
	if sessions > 0 || carts > 0 {
		j.logger.Info("janitor sweep",
			zap.Int("checkout_sessions_reaped", sessions),
			zap.Int("cart_engines_evicted", carts),
		)
	}
	return sessions, carts
}

// Run sweeps every interval until ctx is done, then waits for a running sweep
// to finish.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(interval), cron.FuncJob(func() { j.RunNow() }))
	c.Start()
	j.logger.Info("janitor started", zap.Duration("interval", interval))

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor stopped")
}
