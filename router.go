package rest

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// specCacheSize bounds the number of generated documents kept per router.
const specCacheSize = 16

// Router is the central type that holds routes, middleware, and configuration.
// It implements http.Handler.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
	routes     []routeInfo
	endpoints  map[string]routeInfo
	preflight  map[string]bool

	title   string
	version string

	cfg        Config
	logger     *slog.Logger
	registerer prometheus.Registerer
	metrics    *routeMetrics
	cors       CORSConfig

	validator    Validator
	errorHandler ErrorHandler

	encoders []Encoder
	decoders []Decoder
	codecs   *codecRegistry

	tracer SpanStarter

	specs *lru.Cache[string, *OpenAPISpec]

	mu         sync.Mutex
	generation uint64 // bumped by every registration
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) RouterOption {
	return func(r *Router) {
		r.cfg = cfg
	}
}

// WithLogger sets the logger used for audit records, context loggers and
// document validation failures.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithRegisterer sets the prometheus registerer for route metrics.
// Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) RouterOption {
	return func(r *Router) {
		r.registerer = reg
	}
}

// WithCORS overrides the CORS settings of convention routes.
func WithCORS(cfg CORSConfig) RouterOption {
	return func(r *Router) {
		r.cors = cfg
	}
}

// WithValidator sets a global request validator.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.encoders = append(r.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.decoders = append(r.decoders, dec)
	}
}

// SpanStarter is a tracing hook interface for creating spans per request.
// OTelTracer adapts an OpenTelemetry tracer.
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func())
}

// WithTracer sets a tracing hook for the router.
func WithTracer(s SpanStarter) RouterOption {
	return func(r *Router) {
		r.tracer = s
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		endpoints:  make(map[string]routeInfo),
		preflight:  make(map[string]bool),
		cfg:        DefaultConfig(),
		registerer: prometheus.DefaultRegisterer,
		cors:       DefaultCORSConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	r.codecs = newCodecRegistry(r.encoders, r.decoders)

	specs, err := lru.New[string, *OpenAPISpec](specCacheSize)
	if err != nil {
		panic(err)
	}
	r.specs = specs

	if rl := r.cfg.RateLimit; rl.Rate > 0 {
		r.Use(RateLimit(RateLimitConfig{Rate: rl.Rate, Burst: max(rl.Burst, 1)}))
	}
	if n := r.cfg.Limits.MaxBodyBytes; n > 0 {
		r.Use(BodyLimit(n))
	}
	if d := r.cfg.Limits.Timeout; d > 0 {
		r.Use(Timeout(d))
	}
	return r
}

// Config returns the router configuration.
func (r *Router) Config() Config { return r.cfg }

// Logger returns the router logger.
func (r *Router) Logger() *slog.Logger { return r.logger }

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// Mount registers a plain handler that is not part of any namespace, such
// as a metrics endpoint. Mounted handlers are not documented.
func (r *Router) Mount(pattern string, h http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mux.Handle(pattern, h)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Routes returns the documented convention routes in registration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RouteInfo, 0, len(r.routes))
	for _, ri := range r.routes {
		if ri.hidden {
			continue
		}
		out = append(out, ri.public())
	}
	return out
}

// addRoute registers a routeInfo with the router's mux and indexes it by
// endpoint. Registering an endpoint twice panics.
func (r *Router) addRoute(ri routeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.endpoints[ri.endpoint]; ok {
		panic("rest: endpoint " + ri.endpoint + " already registered for " + existing.method + " " + existing.pattern)
	}

	r.mux.Handle(ri.method+" "+ri.pattern, ri.handler)
	r.routes = append(r.routes, ri)
	r.endpoints[ri.endpoint] = ri
	r.generation++
	r.specs.Purge()
}

// addPreflight registers an OPTIONS handler for pattern unless one exists.
func (r *Router) addPreflight(pattern string, h http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.preflight[pattern] {
		return
	}
	r.mux.Handle(http.MethodOptions+" "+pattern, h)
	r.preflight[pattern] = true
}

// writeError records err for the audit decorator and writes the error response.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	err = limitError(err)
	recordError(req.Context(), err)

	if r.errorHandler != nil {
		r.errorHandler(w, req, err)
		return
	}
	writeErrorResponse(w, err)
}
