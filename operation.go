package rest

import (
	"fmt"
	"net/http"
	"strings"
)

// Pattern describes the shape of an endpoint identifier.
type Pattern int

const (
	// NodePattern identifies an operation on a single resource: "<op>.<subject>".
	NodePattern Pattern = iota + 1
	// EdgePattern identifies an operation on a relation: "<op>.<subject>.<object>".
	EdgePattern
)

// Operation is one of a fixed set of endpoint conventions. Each operation
// knows its HTTP method, its endpoint pattern and its default status code.
type Operation int

const (
	Discover Operation = iota + 1

	// collection operations
	Search
	Create

	// instance operations
	Retrieve
	Delete
	Replace
	Update

	// relation operations
	CreateFor
	RetrieveFor
	SearchFor

	// ad hoc operations
	Command
	Query

	// file operations
	Upload
	UploadFor
)

type operationInfo struct {
	name        string
	method      string
	pattern     Pattern
	defaultCode int
}

var operations = [...]operationInfo{
	Discover:    {"discover", http.MethodGet, NodePattern, http.StatusOK},
	Search:      {"search", http.MethodGet, NodePattern, http.StatusOK},
	Create:      {"create", http.MethodPost, NodePattern, http.StatusCreated},
	Retrieve:    {"retrieve", http.MethodGet, NodePattern, http.StatusOK},
	Delete:      {"delete", http.MethodDelete, NodePattern, http.StatusNoContent},
	Replace:     {"replace", http.MethodPut, NodePattern, http.StatusOK},
	Update:      {"update", http.MethodPatch, NodePattern, http.StatusOK},
	CreateFor:   {"create_for", http.MethodPost, EdgePattern, http.StatusCreated},
	RetrieveFor: {"retrieve_for", http.MethodGet, EdgePattern, http.StatusOK},
	SearchFor:   {"search_for", http.MethodGet, EdgePattern, http.StatusOK},
	Command:     {"command", http.MethodPost, NodePattern, http.StatusOK},
	Query:       {"query", http.MethodGet, NodePattern, http.StatusOK},
	Upload:      {"upload", http.MethodPost, NodePattern, http.StatusOK},
	UploadFor:   {"upload_for", http.MethodPost, EdgePattern, http.StatusOK},
}

func (op Operation) info() operationInfo {
	if op <= 0 || int(op) >= len(operations) {
		return operationInfo{}
	}
	return operations[op]
}

// Name returns the snake_case operation name (e.g. "search_for").
func (op Operation) Name() string { return op.info().name }

// Method returns the HTTP method used by the operation.
func (op Operation) Method() string { return op.info().method }

// Pattern returns the endpoint pattern of the operation.
func (op Operation) Pattern() Pattern { return op.info().pattern }

// DefaultCode returns the status code for a successful call.
func (op Operation) DefaultCode() int { return op.info().defaultCode }

// IsEdge reports whether the operation acts on a subject/object relation.
func (op Operation) IsEdge() bool { return op.Pattern() == EdgePattern }

// String implements fmt.Stringer.
func (op Operation) String() string {
	if name := op.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("Operation(%d)", int(op))
}

// Operations returns every operation in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, len(operations)-1)
	for i := 1; i < len(operations); i++ {
		ops = append(ops, Operation(i))
	}
	return ops
}

// ParseOperation looks up an operation by name, ignoring case.
func ParseOperation(name string) (Operation, error) {
	for _, op := range Operations() {
		if strings.EqualFold(op.Name(), name) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// ParseEndpoint splits an endpoint identifier produced by
// Namespace.EndpointFor back into its operation, subject and object.
// The object is empty for node operations.
func ParseEndpoint(endpoint string) (op Operation, subject, object string, err error) {
	parts := strings.Split(endpoint, ".")
	for _, part := range parts {
		if part == "" {
			return 0, "", "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
		}
	}

	op, err = ParseOperation(parts[0])
	if err != nil {
		return 0, "", "", err
	}

	switch {
	case op.Pattern() == NodePattern && len(parts) == 2:
		return op, parts[1], "", nil
	case op.Pattern() == EdgePattern && len(parts) == 3:
		return op, parts[1], parts[2], nil
	default:
		return 0, "", "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}
}
