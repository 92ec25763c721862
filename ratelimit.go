package rest

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate  float64 // tokens per second
	Burst int

	// KeyFunc partitions callers. Defaults to the remote host.
	KeyFunc func(r *http.Request) string

	// OnLimit writes the rejection. Defaults to a retryable 429 ErrorResponse.
	OnLimit func(w http.ResponseWriter, r *http.Request)

	// Idle buckets are pruned every Sweep once unused for Expire.
	Sweep  time.Duration // default: 1m
	Expire time.Duration // default: 5m
}

// RateLimit returns middleware that applies a token bucket per caller key.
// The router installs it when Config.RateLimit.Rate is positive.
func RateLimit(cfg RateLimitConfig) Middleware {
	keyOf := cfg.KeyFunc
	if keyOf == nil {
		keyOf = remoteHost
	}
	reject := cfg.OnLimit
	if reject == nil {
		reject = tooManyRequests
	}

	set := &clientLimiters{
		limit:   rate.Limit(cfg.Rate),
		burst:   cfg.Burst,
		sweep:   cmpDuration(cfg.Sweep, time.Minute),
		expire:  cmpDuration(cfg.Expire, 5*time.Minute),
		buckets: map[string]*bucket{},
	}
	retryAfter := strconv.Itoa(int(math.Ceil(max(1/cfg.Rate, 1))))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if set.allow(keyOf(r), time.Now()) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", retryAfter)
			reject(w, r)
		})
	}
}

type bucket struct {
	*rate.Limiter
	seen time.Time
}

type clientLimiters struct {
	limit  rate.Limit
	burst  int
	sweep  time.Duration
	expire time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

func (c *clientLimiters) allow(key string, now time.Time) bool {
	c.mu.Lock()
	if now.Sub(c.swept) >= c.sweep {
		for k, b := range c.buckets {
			if now.Sub(b.seen) > c.expire {
				delete(c.buckets, k)
			}
		}
		c.swept = now
	}
	b, ok := c.buckets[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(c.limit, c.burst)}
		c.buckets[key] = b
	}
	b.seen = now
	c.mu.Unlock()

	return b.AllowN(now, 1)
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	writeErrorResponse(w, &HTTPError{
		Status:  http.StatusTooManyRequests,
		Message: http.StatusText(http.StatusTooManyRequests),
		Retry:   true,
	})
}

func cmpDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
