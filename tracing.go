package rest

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracer adapts an OpenTelemetry tracer to SpanStarter.
func OTelTracer(tracer trace.Tracer) SpanStarter {
	return otelTracer{tracer: tracer}
}

type otelTracer struct {
	tracer trace.Tracer
}

func (o otelTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func()) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(kvs...),
	)
	return ctx, func() { span.End() }
}

// tracing starts one span per call, named after the endpoint. When the
// span is an OpenTelemetry span, the response status is recorded on it.
func tracing(s SpanStarter, ri *routeInfo) Middleware {
	attrs := map[string]string{
		"http.method": ri.method,
		"http.route":  ri.pattern,
		"endpoint":    ri.endpoint,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, end := s.StartSpan(r.Context(), ri.endpoint, attrs)
			defer end()

			rec := newResponseRecorder(w, false)
			next.ServeHTTP(rec, r.WithContext(ctx))

			span := trace.SpanFromContext(ctx)
			span.SetAttributes(attribute.Int("http.status_code", rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, strconv.Itoa(rec.status))
			}
		})
	}
}
