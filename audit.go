package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

const (
	// maxAuditMessage bounds the failure message of an audit record, in runes.
	maxAuditMessage = 2048
	// maxAuditFrames bounds the stack trace of an audit record.
	maxAuditFrames = 10
)

type outcomeKey struct{}

// callOutcome collects the error a route answered with and where it was
// written.
type callOutcome struct {
	err   error
	stack []string
}

// recordError remembers err for the audit decorator of the current call.
// It is called from Router.writeError; the stack starts at its caller.
func recordError(ctx context.Context, err error) {
	if o, ok := ctx.Value(outcomeKey{}).(*callOutcome); ok {
		o.err = err
		o.stack = stackTrace(4, maxAuditFrames)
	}
}

// errReader replays a read error after the buffered part of a body.
type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// audit emits exactly one INFO record per call, whether the handler
// succeeds, returns an error or panics. Panics are re-raised after the
// record is written.
func audit(logger *slog.Logger, debug bool, ri *routeInfo) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := &callOutcome{}
			r = r.WithContext(context.WithValue(r.Context(), outcomeKey{}, outcome))

			var reqBody []byte
			if debug && r.Body != nil {
				var err error
				reqBody, err = io.ReadAll(r.Body)
				_ = r.Body.Close()
				var body io.Reader = bytes.NewReader(reqBody)
				if err != nil {
					body = io.MultiReader(body, errReader{err})
				}
				r.Body = io.NopCloser(body)
			}

			rec := newResponseRecorder(w, debug)

			defer func() {
				rv := recover()

				attrs := []slog.Attr{
					slog.String("operation", ri.pattern),
					slog.String("endpoint", ri.endpoint),
					slog.String("func", ri.funcName),
					slog.String("method", r.Method),
				}

				status := rec.status
				var message string
				switch {
				case rv != nil:
					status = http.StatusInternalServerError
					message = fmt.Sprint(rv)
				case outcome.err != nil:
					message = outcome.err.Error()
				case status >= http.StatusBadRequest:
					message = http.StatusText(status)
				}

				success := rv == nil && outcome.err == nil && status < http.StatusBadRequest
				attrs = append(attrs,
					slog.Bool("success", success),
					slog.Int("status_code", status),
				)
				if !success {
					attrs = append(attrs, slog.String("message", truncate(message, maxAuditMessage)))
				}
				switch {
				case rv != nil:
					attrs = append(attrs, slog.Any("stack_trace", stackTrace(3, maxAuditFrames)))
				case len(outcome.stack) > 0:
					attrs = append(attrs, slog.Any("stack_trace", outcome.stack))
				}
				if debug {
					if len(reqBody) > 0 {
						attrs = append(attrs, slog.Any("request_body", bodyValue(reqBody)))
					}
					if rec.body.Len() > 0 {
						attrs = append(attrs, slog.Any("response_body", bodyValue(rec.body.Bytes())))
					}
				}

				logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", attrs...)

				if rv != nil {
					panic(rv)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// bodyValue logs JSON bodies as structured values and anything else as text.
func bodyValue(b []byte) any {
	if json.Valid(b) {
		return json.RawMessage(bytes.TrimSpace(b))
	}
	return string(b)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// stackTrace returns up to limit frames of the current goroutine, skipping
// runtime frames and the innermost skip frames as counted by runtime.Callers.
func stackTrace(skip, limit int) []string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for len(out) < limit {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			out = append(out, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return out
}
