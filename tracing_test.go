package rest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/rest"
)

func TestTracing_otel(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		handler rest.Handler[rest.Void, gadget]
		status  int
		code    codes.Code
	}{
		"ok": {
			handler: noop[rest.Void, gadget],
			status:  http.StatusOK,
			code:    codes.Unset,
		},
		"client error": {
			handler: func(context.Context, *rest.Void) (*gadget, error) {
				return nil, rest.Error(http.StatusNotFound, "missing")
			},
			status: http.StatusNotFound,
			code:   codes.Unset,
		},
		"server error": {
			handler: func(context.Context, *rest.Void) (*gadget, error) {
				return nil, rest.Error(http.StatusBadGateway, "upstream")
			},
			status: http.StatusBadGateway,
			code:   codes.Error,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

			r := newTestRouter(rest.WithTracer(rest.OTelTracer(tp.Tracer("rest_test"))))
			ns := &rest.Namespace{Subject: "gadget", Version: "v1"}
			rest.Route(r, ns.SingletonPath(), rest.Retrieve, ns, tc.handler)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gadget", nil))
			require.Equal(t, tc.status, rec.Code)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			span := spans[0]

			assert.Equal(t, "retrieve.gadget", span.Name())
			assert.Equal(t, trace.SpanKindServer, span.SpanKind())
			assert.Equal(t, tc.code, span.Status().Code)

			attrs := make(map[attribute.Key]attribute.Value)
			for _, kv := range span.Attributes() {
				attrs[kv.Key] = kv.Value
			}
			assert.Equal(t, http.MethodGet, attrs["http.method"].AsString())
			assert.Equal(t, "/api/v1/gadget", attrs["http.route"].AsString())
			assert.Equal(t, "retrieve.gadget", attrs["endpoint"].AsString())
			assert.Equal(t, int64(tc.status), attrs["http.status_code"].AsInt64())
		})
	}
}

type spanLog struct {
	mu    sync.Mutex
	names []string
	ended int
}

func (s *spanLog) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name+" "+attrs["http.route"])
	return ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ended++
	}
}

func TestTracing_span_starter(t *testing.T) {
	t.Parallel()

	spans := &spanLog{}
	r := newTestRouter(rest.WithTracer(spans))
	ns := &rest.Namespace{Subject: "gadget"}
	rest.Route(r, ns.SingletonPath(), rest.Retrieve, ns, noop[rest.Void, gadget])

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/gadget", nil))

	assert.Equal(t, []string{"retrieve.gadget /api/gadget"}, spans.names)
	assert.Equal(t, 1, spans.ended)
}
