package rest_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// auditRecords returns the decoded "audit" records written to buf.
func auditRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		if rec["msg"] == "audit" {
			records = append(records, rec)
		}
	}
	require.NoError(t, scanner.Err())
	return records
}

func auditRouter(debug bool) (*rest.Router, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := rest.DefaultConfig()
	cfg.Debug = debug
	r := rest.New(
		rest.WithConfig(cfg),
		rest.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
	)
	return r, &buf
}

type gadget struct {
	Name string `json:"name" required:"true"`
}

func TestAudit_records(t *testing.T) {
	t.Parallel()

	ns := &rest.Namespace{Subject: "gadget"}

	tests := map[string]struct {
		handler rest.Handler[gadget, gadget]
		body    string
		status  int
		success bool
		message string
	}{
		"success": {
			handler: func(_ context.Context, g *gadget) (*gadget, error) { return g, nil },
			body:    `{"name":"g"}`,
			status:  http.StatusCreated,
			success: true,
		},
		"handler error": {
			handler: func(context.Context, *gadget) (*gadget, error) {
				return nil, rest.Error(http.StatusConflict, "gadget exists")
			},
			body:    `{"name":"g"}`,
			status:  http.StatusConflict,
			message: "gadget exists",
		},
		"plain error": {
			handler: func(context.Context, *gadget) (*gadget, error) {
				return nil, errors.New("database unavailable")
			},
			body:    `{"name":"g"}`,
			status:  http.StatusInternalServerError,
			message: "database unavailable",
		},
		"binding error": {
			handler: func(_ context.Context, g *gadget) (*gadget, error) { return g, nil },
			body:    `{"name":`,
			status:  http.StatusBadRequest,
			message: "bind body: unexpected EOF",
		},
		"constraint error": {
			handler: func(_ context.Context, g *gadget) (*gadget, error) { return g, nil },
			body:    `{}`,
			status:  http.StatusUnprocessableEntity,
			message: "1 constraint violation(s)",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, buf := auditRouter(false)
			rest.Route(r, ns.CollectionPath(), rest.Create, ns, tc.handler)

			req := httptest.NewRequest(http.MethodPost, "/api/gadget", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)

			records := auditRecords(t, buf)
			require.Len(t, records, 1)
			got := records[0]

			assert.Equal(t, "INFO", got["level"])
			assert.Equal(t, "/api/gadget", got["operation"])
			assert.Equal(t, "create.gadget", got["endpoint"])
			assert.Equal(t, http.MethodPost, got["method"])
			assert.Contains(t, got["func"], "rest_test")
			assert.Equal(t, tc.success, got["success"])
			assert.InDelta(t, float64(tc.status), got["status_code"], 0)
			assert.NotContains(t, got, "request_body")

			if tc.success {
				assert.NotContains(t, got, "message")
				assert.NotContains(t, got, "stack_trace")
				return
			}
			assert.Equal(t, tc.message, got["message"])

			stack, ok := got["stack_trace"].([]any)
			require.True(t, ok)
			require.NotEmpty(t, stack)
			assert.LessOrEqual(t, len(stack), 10)
			assert.Contains(t, stack[0], "register.go")
		})
	}
}

func TestAudit_truncates_message(t *testing.T) {
	t.Parallel()

	ns := &rest.Namespace{Subject: "gadget"}
	r, buf := auditRouter(false)
	rest.Route(r, ns.CollectionPath(), rest.Search, ns, func(context.Context, *rest.Void) (*[]gadget, error) {
		return nil, errors.New(strings.Repeat("é", 3000))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gadget", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	records := auditRecords(t, buf)
	require.Len(t, records, 1)
	msg, ok := records[0]["message"].(string)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("é", 2048), msg)
}

func TestAudit_debug_bodies(t *testing.T) {
	t.Parallel()

	ns := &rest.Namespace{Subject: "gadget"}
	r, buf := auditRouter(true)
	rest.Route(r, ns.CollectionPath(), rest.Create, ns, func(_ context.Context, g *gadget) (*gadget, error) {
		return &gadget{Name: strings.ToUpper(g.Name)}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/gadget", strings.NewReader(`{"name":"g"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body gadget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "G", body.Name)

	records := auditRecords(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"name": "g"}, records[0]["request_body"])
	assert.Equal(t, map[string]any{"name": "G"}, records[0]["response_body"])
}

func TestAudit_debug_text_body(t *testing.T) {
	t.Parallel()

	ns := &rest.Namespace{Subject: "gadget"}
	r, buf := auditRouter(true)
	rest.Route(r, ns.CollectionPath(), rest.Create, ns, func(_ context.Context, g *gadget) (*gadget, error) {
		return g, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/gadget", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	records := auditRecords(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, "not json", records[0]["request_body"])
	assert.Equal(t, false, records[0]["success"])
}

func TestAudit_panic(t *testing.T) {
	t.Parallel()

	ns := &rest.Namespace{Subject: "gadget"}
	handler := func(context.Context, *rest.Void) (*gadget, error) {
		panic("boom")
	}

	t.Run("re-raised", func(t *testing.T) {
		t.Parallel()

		r, buf := auditRouter(false)
		rest.Route(r, ns.SingletonPath(), rest.Retrieve, ns, handler)

		assert.PanicsWithValue(t, "boom", func() {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/gadget", nil))
		})

		records := auditRecords(t, buf)
		require.Len(t, records, 1)
		got := records[0]
		assert.Equal(t, false, got["success"])
		assert.InDelta(t, float64(http.StatusInternalServerError), got["status_code"], 0)
		assert.Equal(t, "boom", got["message"])

		stack, ok := got["stack_trace"].([]any)
		require.True(t, ok)
		assert.NotEmpty(t, stack)
		assert.LessOrEqual(t, len(stack), 10)
	})

	t.Run("recovered", func(t *testing.T) {
		t.Parallel()

		r, buf := auditRouter(false)
		r.Use(rest.Recovery())
		rest.Route(r, ns.SingletonPath(), rest.Retrieve, ns, handler)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gadget", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp rest.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusInternalServerError, resp.Code)

		assert.Len(t, auditRecords(t, buf), 1)
	})
}

func TestAudit_disabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newTestRouter(rest.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	ns := &rest.Namespace{Subject: "gadget"}
	rest.Route(r, ns.SingletonPath(), rest.Retrieve, ns, noop[rest.Void, gadget])

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gadget", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, auditRecords(t, &buf))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		n    int
		want string
	}{
		"short":     {in: "abc", n: 5, want: "abc"},
		"exact":     {in: "abcde", n: 5, want: "abcde"},
		"long":      {in: "abcdef", n: 5, want: "abcde"},
		"multibyte": {in: "ééé", n: 2, want: "éé"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, rest.Truncate(tc.in, tc.n))
		})
	}
}
