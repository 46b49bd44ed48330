package storefront

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type Deps struct {
	Logger           *zap.Logger
	CORSAllowOrigins []string

	Carts     *cart.Registry
	Checkouts *checkout.Manager

	Upstreams []clients.Upstream
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.CORS(d.CORSAllowOrigins))
	r.Use(logging.Middleware(d.Logger))
	r.Use(metrics.Instrument)

	health := &HealthHandler{Upstreams: d.Upstreams}
	r.Get("/health", health.Storefront)
	r.Get("/health/upstreams", health.UpstreamsHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	carts := &CartHandler{carts: d.Carts}
	r.Route("/api/cart/{userId}", func(r chi.Router) {
		r.Get("/", carts.Get)
		r.Delete("/", carts.Clear)
		r.Post("/items", carts.AddItem)
		r.Patch("/items/{itemId}", carts.UpdateQuantity)
		r.Delete("/items/{itemId}", carts.RemoveItem)
	})

	co := &CheckoutHandler{sessions: d.Checkouts}
	r.Route("/api/checkout/{userId}", func(r chi.Router) {
		r.Post("/", co.Start)
		r.Get("/", co.Get)
		r.Put("/shipping", co.SetShipping)
		r.Put("/payment", co.SetPayment)
		r.Post("/next", co.Next)
		r.Post("/back", co.Back)
		r.Post("/submit", co.Submit)
	})

	return r
}

type errorResponse struct {
	Error  string                `json:"error"`
	Fields []checkout.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
