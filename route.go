package rest

import (
	"net/http"
	"reflect"
)

// routeInfo holds metadata for a registered route, used for both
// request dispatch and OpenAPI spec generation.
type routeInfo struct {
	method   string
	pattern  string
	endpoint string
	op       Operation
	ns       *Namespace

	summary    string
	desc       string
	tags       []string
	status     int
	deprecated bool
	hidden     bool

	operationID string
	funcName    string

	reqType  reflect.Type
	respType reflect.Type

	handler http.Handler
}

// RouteInfo describes a registered convention route.
type RouteInfo struct {
	Method    string
	Pattern   string
	Endpoint  string
	Operation Operation
	Namespace *Namespace
}

func (ri *routeInfo) public() RouteInfo {
	return RouteInfo{
		Method:    ri.method,
		Pattern:   ri.pattern,
		Endpoint:  ri.endpoint,
		Operation: ri.op,
		Namespace: ri.ns,
	}
}

// RouteOption configures a route at registration time.
type RouteOption func(*routeInfo)

// WithStatus overrides the default status code of the operation.
func WithStatus(code int) RouteOption {
	return func(ri *routeInfo) {
		ri.status = code
	}
}

// WithSummary sets the OpenAPI summary for the route.
func WithSummary(s string) RouteOption {
	return func(ri *routeInfo) {
		ri.summary = s
	}
}

// WithDescription sets the OpenAPI description for the route. Only the
// first line is used.
func WithDescription(d string) RouteOption {
	return func(ri *routeInfo) {
		ri.desc = d
	}
}

// WithTags replaces the default tag (the subject name).
func WithTags(tags ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.tags = append(ri.tags, tags...)
	}
}

// WithDeprecated marks the route as deprecated in the OpenAPI spec.
func WithDeprecated() RouteOption {
	return func(ri *routeInfo) {
		ri.deprecated = true
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) RouteOption {
	return func(ri *routeInfo) {
		ri.operationID = id
	}
}

// WithHidden keeps the route out of generated documents and discovery.
// It can still be linked to.
func WithHidden() RouteOption {
	return func(ri *routeInfo) {
		ri.hidden = true
	}
}
