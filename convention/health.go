package convention

import (
	"cmp"
	"context"
	"maps"
	"net/http"
	"sync"

	"github.com/bjaus/rest"
)

// Check reports whether one dependency of the service is healthy.
type Check func(ctx context.Context) error

// CheckResult is the outcome of a single check.
type CheckResult struct {
	OK      bool   `json:"ok" required:"true"`
	Message string `json:"message" required:"true"`
}

// HealthResponse reports the overall health of the service.
type HealthResponse struct {
	Name   string                 `json:"name" required:"true"`
	OK     bool                   `json:"ok" required:"true"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// StatusCode is 200 when every check passed and 503 otherwise.
func (h *HealthResponse) StatusCode() int {
	if h.OK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// Health holds the checks evaluated by the health endpoint.
type Health struct {
	Name string

	mu     sync.Mutex
	checks map[string]Check
}

// AddCheck registers a named check. A check with the same key is replaced.
func (h *Health) AddCheck(key string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.checks == nil {
		h.checks = make(map[string]Check)
	}
	h.checks[key] = check
}

// Evaluate runs every check.
func (h *Health) Evaluate(ctx context.Context) *HealthResponse {
	h.mu.Lock()
	checks := maps.Clone(h.checks)
	h.mu.Unlock()

	resp := &HealthResponse{Name: h.Name, OK: true}
	if len(checks) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(checks))
	for key, check := range checks {
		result := CheckResult{OK: true, Message: "ok"}
		if err := check(ctx); err != nil {
			result = CheckResult{OK: false, Message: rest.ErrorMessage(err)}
			resp.OK = false
		}
		resp.Checks[key] = result
	}
	return resp
}

// RegisterHealth registers GET /<prefix>/health, answering 200 when all
// checks pass and 503 otherwise. The prefix comes from the router's health
// config. The returned Health accepts checks at any time.
func RegisterHealth(r *rest.Router, opts ...rest.RouteOption) *Health {
	cfg := r.Config()
	health := &Health{Name: cfg.Name}

	ns := &rest.Namespace{
		Subject: "health",
		Path:    cmp.Or(cfg.Health.PathPrefix, rest.DefaultPath),
	}

	rest.Route(r, ns.SingletonPath(), rest.Retrieve, ns, func(ctx context.Context, _ *rest.Void) (*HealthResponse, error) {
		return health.Evaluate(ctx), nil
	}, opts...)

	return health
}
