package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Storefront struct {
	Port            string
	LogLevel        string
	UpstreamTimeout time.Duration

	OrderURL   string
	PaymentURL string // empty disables payment intents
	Currency   string

	// RedisURL selects the cart store. Empty keeps carts in memory.
	RedisURL string
	CartTTL  time.Duration

	CheckoutTTL  time.Duration
	CartIdleTTL  time.Duration
	ReapInterval time.Duration

	CORSAllowOrigins []string
}

type OrderService struct {
	Port        string
	LogLevel    string
	DatabaseURL string
	// RabbitMQURL empty disables OrderPlaced publishing.
	RabbitMQURL   string
	Producer      string
	RunMigrations bool
}

// LoadDotEnv reads a .env file into the environment if one exists. Variables
// already set win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadStorefront() (Storefront, error) {
	cfg := Storefront{
		Port:            getenv("PORT", "8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		OrderURL:   getenv("ORDER_URL", "http://order-service-go:8082"),
		PaymentURL: os.Getenv("PAYMENT_URL"),
		Currency:   getenv("PAYMENT_CURRENCY", "usd"),

		RedisURL: os.Getenv("REDIS_URL"),
		CartTTL:  parseDuration(getenv("CART_TTL", "720h"), 30*24*time.Hour),

		CheckoutTTL:  parseDuration(getenv("CHECKOUT_TTL", "30m"), 30*time.Minute),
		CartIdleTTL:  parseDuration(getenv("CART_IDLE_TTL", "1h"), time.Hour),
		ReapInterval: parseDuration(getenv("REAP_INTERVAL", "1m"), time.Minute),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
	}

	if cfg.CartIdleTTL < cfg.CheckoutTTL {
		return Storefront{}, fmt.Errorf("CART_IDLE_TTL (%s) must not be shorter than CHECKOUT_TTL (%s)", cfg.CartIdleTTL, cfg.CheckoutTTL)
	}
	if cfg.ReapInterval <= 0 {
		return Storefront{}, fmt.Errorf("REAP_INTERVAL must be positive, got %s", cfg.ReapInterval)
	}
	return cfg, nil
}

func LoadOrderService() (OrderService, error) {
	cfg := OrderService{
		Port:          getenv("PORT", "8082"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		Producer:      getenv("EVENT_PRODUCER", "order-service"),
		RunMigrations: envBool("RUN_MIGRATIONS", true),
	}
	if cfg.DatabaseURL == "" {
		return OrderService{}, errors.New("DATABASE_URL not set")
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
