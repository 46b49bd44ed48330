package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
)

const healthTimeout = 2 * time.Second

// Upstream is a collaborator the storefront reports on at /health/upstreams.
type Upstream struct {
	Client *Client
	Path   string
}

// UpstreamHealth is the outcome of one health call. Status and Service are
// copied from the upstream's own health body when it sends one.
type UpstreamHealth struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Status     string `json:"status,omitempty"`
	Service    string `json:"service,omitempty"`
	LatencyMS  int64  `json:"latencyMs"`
	Error      string `json:"error,omitempty"`
}

// Check calls the upstream's health path. Any 2xx answer counts as healthy.
func (u Upstream) Check(ctx context.Context) UpstreamHealth {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	res := UpstreamHealth{
		Name: u.Client.Name,
		URL:  u.Client.BaseURL.ResolveReference(&url.URL{Path: u.Path}).String(),
	}
	start := time.Now()
	resp, err := u.Client.Do(ctx, http.MethodGet, u.Path, nil, nil)
	res.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		metrics.UpstreamUp(res.Name, false)
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.OK = resp.StatusCode >= 200 && resp.StatusCode < 300

	var body struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&body); err == nil {
		res.Status, res.Service = body.Status, body.Service
	}
	metrics.UpstreamUp(res.Name, res.OK)
	return res
}
