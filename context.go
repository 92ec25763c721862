package rest

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	ctx := context.WithValue(r.Context(), contextKey[T]{}, val)
	return r.WithContext(ctx)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

// PathValue returns the value of a path wildcard of the route serving ctx,
// or "" when ctx does not belong to a routed request.
func PathValue(ctx context.Context, name string) string {
	l, ok := linkerFrom(ctx)
	if !ok {
		return ""
	}
	return l.req.PathValue(name)
}

// RequestFrom returns the matched request serving ctx.
func RequestFrom(ctx context.Context) (*http.Request, bool) {
	l, ok := linkerFrom(ctx)
	if !ok {
		return nil, false
	}
	return l.req, true
}
