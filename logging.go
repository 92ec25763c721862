package rest

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// responseRecorder wraps http.ResponseWriter to capture the status code,
// size and optionally the body.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
	body        *bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter, captureBody bool) *responseRecorder {
	rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
	if captureBody {
		rec.body = new(bytes.Buffer)
	}
	return rec
}

func (r *responseRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	if r.body != nil {
		r.body.Write(b[:n])
	}
	return n, err
}

// Unwrap returns the underlying ResponseWriter (supports http.ResponseController).
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Logger returns middleware that logs each request using the provided slog.Logger.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newResponseRecorder(w, false)
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", rec.size),
				slog.String("remote", r.RemoteAddr),
			}

			if id := GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
		})
	}
}

type loggerKey struct{}

// Log returns the request-scoped logger of ctx, or slog.Default() outside
// of routes with a context logger.
func Log(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// contextLogger attaches a logger named after the namespace controller to
// the request. It carries the endpoint, the request ID and every
// X-Request-* header so handler logs can be correlated.
func contextLogger(base *slog.Logger, ri *routeInfo) Middleware {
	named := base.With(
		slog.String("logger", ri.ns.Controller),
		slog.String("endpoint", ri.endpoint),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var attrs []any
			id := GetRequestID(r.Context())
			if id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			for name, vals := range r.Header {
				if len(vals) == 0 || !strings.HasPrefix(name, "X-Request-") || (id != "" && name == RequestIDHeader) {
					continue
				}
				key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
				attrs = append(attrs, slog.String(key, vals[0]))
			}

			logger := named
			if len(attrs) > 0 {
				logger = named.With(attrs...)
			}

			ctx := context.WithValue(r.Context(), loggerKey{}, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
