package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	storefront "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http/storefront"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/janitor"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadStorefront()
	if err != nil {
		return err
	}

	logger, err := logging.New("storefront", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- cart store ---
	var store cart.Store = cart.NewMemoryStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		store = cart.NewRedisStore(rdb, cfg.CartTTL)
		logger.Info("cart store: redis", zap.Duration("ttl", cfg.CartTTL))
	} else {
		logger.Warn("REDIS_URL not set, carts are kept in memory")
	}
	carts := cart.NewRegistry(store, logger)

	// --- upstreams ---
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	orderBase := clients.NewClient("order", cfg.OrderURL, httpClient)
	upstreams := []clients.Upstream{{Client: orderBase, Path: "/health"}}

	var opts []checkout.Option
	if cfg.PaymentURL != "" {
		paymentBase := clients.NewClient("payment", cfg.PaymentURL, httpClient)
		opts = append(opts, checkout.WithPaymentProvider(clients.NewPaymentClient(paymentBase), cfg.Currency))
		upstreams = append(upstreams, clients.Upstream{Client: paymentBase, Path: "/health"})
	}
	sessions := checkout.NewManager(carts, clients.NewOrderClient(orderBase), logger, opts...)

	// --- housekeeping ---
	jan := janitor.New(sessions, carts, cfg.CheckoutTTL, cfg.CartIdleTTL, logger)
	janDone := make(chan struct{})
	go func() {
		defer close(janDone)
		jan.Run(ctx, cfg.ReapInterval)
	}()

	// --- HTTP ---
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: storefront.NewRouter(storefront.Deps{
			Logger:           logger,
			CORSAllowOrigins: cfg.CORSAllowOrigins,
			Carts:            carts,
			Checkouts:        sessions,
			Upstreams:        upstreams,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-janDone

	logger.Info("shutdown complete")
	return nil
}
