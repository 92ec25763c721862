// Package apitest provides typed test helpers for services built on rest.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bjaus/rest"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
}

// NewClient creates a test client from a router.
func NewClient(t testing.TB, r *rest.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// URL returns the absolute URL of path on the test server.
func (c *Client) URL(path string) string { return c.Server.URL + path }

// Response holds a decoded API response. Error is set for error
// responses in the ErrorResponse format and Body otherwise.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Error   *rest.ErrorResponse
	Raw     []byte
}

// RequestOption customizes a test request.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithBasicAuth sets basic auth credentials.
func WithBasicAuth(username, password string) RequestOption {
	return func(r *http.Request) {
		r.SetBasicAuth(username, password)
	}
}

// WithQuery adds query arguments.
func WithQuery(q url.Values) RequestOption {
	return func(r *http.Request) {
		values := r.URL.Query()
		for key, vals := range q {
			for _, v := range vals {
				values.Add(key, v)
			}
		}
		r.URL.RawQuery = values.Encode()
	}
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil, opts)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body, opts)
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body, opts)
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body, opts)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil, opts)
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any, opts []RequestOption) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.URL(path), reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     raw,
	}
	if len(raw) == 0 {
		return result
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e rest.ErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Code != 0 {
			result.Error = &e
			return result
		}
	}

	var decoded Resp
	if json.Unmarshal(raw, &decoded) == nil {
		result.Body = &decoded
	}
	return result
}
