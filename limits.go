package rest

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// LimitConfig bounds the resources a single request may use. Zero values
// disable the corresponding limit.
type LimitConfig struct {
	// MaxBodyBytes rejects larger request bodies with 413.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// Timeout is the deadline put on every request context.
	Timeout time.Duration `yaml:"timeout"`
}

// BodyLimit returns middleware that caps the request body at maxBytes.
// Handlers that read past the cap fail with 413 Payload Too Large.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout returns middleware that puts a deadline of d on the request
// context. Handlers are expected to honor ctx.Done.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// limitError maps errors caused by request limits to their status code.
// Other errors are returned unchanged.
func limitError(err error) error {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return &HTTPError{Status: http.StatusRequestEntityTooLarge, Message: http.StatusText(http.StatusRequestEntityTooLarge), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &HTTPError{Status: http.StatusServiceUnavailable, Message: "request timed out", Retry: true, Err: err}
	}
	return err
}
