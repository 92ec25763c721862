package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/rest"
)

func TestOperation_metadata(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		op      rest.Operation
		name    string
		method  string
		pattern rest.Pattern
		code    int
	}{
		"discover":     {op: rest.Discover, name: "discover", method: http.MethodGet, pattern: rest.NodePattern, code: http.StatusOK},
		"search":       {op: rest.Search, name: "search", method: http.MethodGet, pattern: rest.NodePattern, code: http.StatusOK},
		"create":       {op: rest.Create, name: "create", method: http.MethodPost, pattern: rest.NodePattern, code: http.StatusCreated},
		"retrieve":     {op: rest.Retrieve, name: "retrieve", method: http.MethodGet, pattern: rest.NodePattern, code: http.StatusOK},
		"delete":       {op: rest.Delete, name: "delete", method: http.MethodDelete, pattern: rest.NodePattern, code: http.StatusNoContent},
		"replace":      {op: rest.Replace, name: "replace", method: http.MethodPut, pattern: rest.NodePattern, code: http.StatusOK},
		"update":       {op: rest.Update, name: "update", method: http.MethodPatch, pattern: rest.NodePattern, code: http.StatusOK},
		"create_for":   {op: rest.CreateFor, name: "create_for", method: http.MethodPost, pattern: rest.EdgePattern, code: http.StatusCreated},
		"retrieve_for": {op: rest.RetrieveFor, name: "retrieve_for", method: http.MethodGet, pattern: rest.EdgePattern, code: http.StatusOK},
		"search_for":   {op: rest.SearchFor, name: "search_for", method: http.MethodGet, pattern: rest.EdgePattern, code: http.StatusOK},
		"command":      {op: rest.Command, name: "command", method: http.MethodPost, pattern: rest.NodePattern, code: http.StatusOK},
		"query":        {op: rest.Query, name: "query", method: http.MethodGet, pattern: rest.NodePattern, code: http.StatusOK},
		"upload":       {op: rest.Upload, name: "upload", method: http.MethodPost, pattern: rest.NodePattern, code: http.StatusOK},
		"upload_for":   {op: rest.UploadFor, name: "upload_for", method: http.MethodPost, pattern: rest.EdgePattern, code: http.StatusOK},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.name, tc.op.Name())
			assert.Equal(t, tc.name, tc.op.String())
			assert.Equal(t, tc.method, tc.op.Method())
			assert.Equal(t, tc.pattern, tc.op.Pattern())
			assert.Equal(t, tc.code, tc.op.DefaultCode())
			assert.Equal(t, tc.pattern == rest.EdgePattern, tc.op.IsEdge())
		})
	}
}

func TestOperations_declaration_order(t *testing.T) {
	t.Parallel()

	ops := rest.Operations()
	require.Len(t, ops, 14)
	assert.Equal(t, rest.Discover, ops[0])
	assert.Equal(t, rest.UploadFor, ops[len(ops)-1])
}

func TestOperation_unknown(t *testing.T) {
	t.Parallel()

	op := rest.Operation(99)
	assert.Empty(t, op.Name())
	assert.Empty(t, op.Method())
	assert.Equal(t, "Operation(99)", op.String())
}

func TestParseOperation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		want    rest.Operation
		wantErr bool
	}{
		"exact":        {input: "search_for", want: rest.SearchFor},
		"mixed case":   {input: "Retrieve", want: rest.Retrieve},
		"unknown verb": {input: "explode", wantErr: true},
		"empty":        {input: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			op, err := rest.ParseOperation(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, rest.ErrUnknownOperation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, op)
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		endpoint string
		op       rest.Operation
		subject  string
		object   string
		wantErr  error
	}{
		"node": {
			endpoint: "search.foo",
			op:       rest.Search,
			subject:  "foo",
		},
		"edge": {
			endpoint: "search_for.foo.bar",
			op:       rest.SearchFor,
			subject:  "foo",
			object:   "bar",
		},
		"node operation with object": {
			endpoint: "search.foo.bar",
			wantErr:  rest.ErrInvalidEndpoint,
		},
		"edge operation without object": {
			endpoint: "search_for.foo",
			wantErr:  rest.ErrInvalidEndpoint,
		},
		"unknown verb": {
			endpoint: "frobnicate.foo",
			wantErr:  rest.ErrUnknownOperation,
		},
		"empty segment": {
			endpoint: "search..foo",
			wantErr:  rest.ErrInvalidEndpoint,
		},
		"no dot": {
			endpoint: "search",
			wantErr:  rest.ErrInvalidEndpoint,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			op, subject, object, err := rest.ParseEndpoint(tc.endpoint)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.op, op)
			assert.Equal(t, tc.subject, subject)
			assert.Equal(t, tc.object, object)
		})
	}
}

func TestParseEndpoint_round_trip(t *testing.T) {
	t.Parallel()

	ns := &rest.Namespace{Subject: "PetOwner", Object: "Pet"}
	for _, op := range rest.Operations() {
		got, subject, object, err := rest.ParseEndpoint(ns.EndpointFor(op))
		require.NoError(t, err, op.Name())
		assert.Equal(t, op, got)
		assert.Equal(t, "pet_owner", subject)
		if op.IsEdge() {
			assert.Equal(t, "pet", object)
		} else {
			assert.Empty(t, object)
		}
	}
}
