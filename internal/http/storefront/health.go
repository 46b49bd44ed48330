package storefront

import (
	"net/http"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
)

type HealthHandler struct {
	Upstreams []clients.Upstream
}

func (h *HealthHandler) Storefront(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront",
	})
}

// UpstreamsHealth checks every collaborator in parallel. Any unhealthy upstream
// turns the response into a 503.
func (h *HealthHandler) UpstreamsHealth(w http.ResponseWriter, r *http.Request) {
	results := make([]clients.UpstreamHealth, len(h.Upstreams))

	var wg sync.WaitGroup
	wg.Add(len(h.Upstreams))
	for i := range h.Upstreams {
		go func() {
			defer wg.Done()
			results[i] = h.Upstreams[i].Check(r.Context())
		}()
	}
	wg.Wait()

	status, code := "ok", http.StatusOK
	for _, res := range results {
		if !res.OK {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"service":  "storefront",
		"upstream": results,
	})
}
