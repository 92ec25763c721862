package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// backendType labels metrics recorded by the route decorator.
const backendType = "http"

type routeMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// routeMetrics returns the collectors of the router, creating and
// registering them on first use.
func (r *Router) routeMetrics() *routeMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.metrics == nil {
		r.metrics = newRouteMetrics(r.registerer)
	}
	return r.metrics
}

func newRouteMetrics(reg prometheus.Registerer) *routeMetrics {
	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_calls_total",
			Help: "Number of calls to convention routes, by response status class.",
		},
		[]string{"endpoint", "backend_type", "classifier"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "route_duration_seconds",
			Help:    "Duration of calls to convention routes.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "backend_type"},
	)

	return &routeMetrics{
		calls:    mustRegister(reg, calls),
		duration: mustRegister(reg, duration),
	}
}

// mustRegister registers c, reusing an identical collector registered by
// another router on the same registerer.
func mustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *routeMetrics) middleware(endpoint string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newResponseRecorder(w, false)
			next.ServeHTTP(rec, r)

			m.duration.WithLabelValues(endpoint, backendType).Observe(time.Since(start).Seconds())
			m.calls.WithLabelValues(endpoint, backendType, statusClass(rec.status)).Inc()
		})
	}
}

// statusClass maps 404 to "4xx", 201 to "2xx" and so on.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
