package rest

import (
	"net/http"
	"reflect"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Route registers h for op on ns. The route path is path below the
// namespace prefix, the method and default status come from op:
//
//	ns := &rest.Namespace{Subject: "pet", Version: "v1"}
//	rest.Route(r, ns.InstancePath(), rest.Retrieve, ns, getPet)
//	// GET /api/v1/pet/{pet_id}, endpoint "retrieve.pet"
//
// Every route is wrapped in the decorators selected by the router Config
// and the namespace flags. Registering the same endpoint twice panics.
func Route[Req, Resp any](r *Router, path string, op Operation, ns *Namespace, h Handler[Req, Resp], opts ...RouteOption) {
	ri := routeInfo{
		method:   op.Method(),
		pattern:  buildRoutePath(path, ns.Prefix()),
		endpoint: ns.EndpointFor(op),
		op:       op,
		ns:       ns,
		status:   op.DefaultCode(),
		funcName: funcName(h),
		reqType:  reflect.TypeFor[Req](),
		respType: reflect.TypeFor[Resp](),
	}

	for _, opt := range opts {
		opt(&ri)
	}

	if ri.method == "" {
		panic("rest: unknown operation " + op.String())
	}
	if ri.respType == reflect.TypeFor[Void]() && ri.status == http.StatusOK {
		ri.status = http.StatusNoContent
	}

	ri.handler = r.decorate(&ri, buildHandler(r, h, ri.status))
	r.addRoute(ri)

	if r.cfg.Route.EnableCORS {
		r.addPreflight(ri.pattern, CORS(r.cors)(http.NotFoundHandler()))
	}
}

// decorate wraps a route handler. From the inside out: CORS, basic auth,
// context logger, metrics, tracing, audit and finally the path converter.
func (r *Router) decorate(ri *routeInfo, h http.Handler) http.Handler {
	cfg := r.cfg.Route

	if cfg.EnableCORS {
		h = CORS(r.cors)(h)
	}
	if cfg.EnableBasicAuth || ri.ns.EnableBasicAuth {
		h = basicAuth(r.cfg.BasicAuth, r.writeError)(h)
	}
	if cfg.EnableContextLogger && ri.ns.Controller != "" {
		h = contextLogger(r.logger, ri)(h)
	}
	if cfg.EnableMetrics || ri.ns.EnableMetrics {
		h = r.routeMetrics().middleware(ri.endpoint)(h)
	}
	if r.tracer != nil {
		h = tracing(r.tracer, ri)(h)
	}
	if cfg.EnableAudit {
		h = audit(r.logger, r.cfg.Debug, ri)(h)
	}
	if cfg.HasConverter("uuid") && ri.ns.Identifier() == IdentifierUUID &&
		strings.Contains(ri.pattern, "{"+ri.ns.IdentifierKey()+"}") {
		h = uuidConverter(ri.ns.IdentifierKey())(h)
	}
	return h
}

// uuidConverter answers 404 when the identifier wildcard is not a UUID,
// as if no route matched.
func uuidConverter(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := uuid.Validate(r.PathValue(key)); err != nil {
				writeErrorResponse(w, Error(http.StatusNotFound, http.StatusText(http.StatusNotFound)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// buildHandler wraps a typed Handler into an http.Handler.
func buildHandler[Req, Resp any](router *Router, h Handler[Req, Resp], defaultStatus int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = withLinker(r, router)

		req, err := decodeRequest[Req](r, router.codecs)
		if err != nil {
			router.writeError(w, r, &HTTPError{Status: http.StatusBadRequest, Err: err})
			return
		}

		// Run constraint validation on struct tags.
		if err := validateConstraints(req); err != nil {
			router.writeError(w, r, err)
			return
		}

		// Run SelfValidator if implemented.
		if sv, ok := any(req).(SelfValidator); ok {
			if err := sv.Validate(); err != nil {
				router.writeError(w, r, err)
				return
			}
		}

		// Run global validator if set.
		if router.validator != nil {
			if err := router.validator.Validate(req); err != nil {
				router.writeError(w, r, err)
				return
			}
		}

		resp, err := h(r.Context(), req)
		if err != nil {
			router.writeError(w, r, err)
			return
		}

		// Void response.
		if _, ok := any(resp).(*Void); ok || resp == nil {
			w.WriteHeader(defaultStatus)
			return
		}

		encodeResponse(w, r, resp, defaultStatus, router.codecs)
	})
}

// funcName returns the qualified name of a handler function.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return ""
}
