package rest

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request binding.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindBody   = errors.New("bind body")
	ErrBindForm   = errors.New("bind form")
)

// Sentinel errors for operation and endpoint resolution.
var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidEndpoint  = errors.New("endpoint does not follow the operation convention")
	ErrUnknownEndpoint  = errors.New("no route registered for endpoint")
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidSpec      = errors.New("openapi document is invalid")
)

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// Retrier is implemented by errors that tell the client a retry may succeed.
type Retrier interface {
	Retryable() bool
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code      int           `json:"code" yaml:"code" required:"true"`
	Message   string        `json:"message" yaml:"message" required:"true"`
	Retryable bool          `json:"retryable" yaml:"retryable"`
	Context   *ErrorContext `json:"context,omitempty" yaml:"context,omitempty"`
}

// ErrorContext carries structured detail about an error.
type ErrorContext struct {
	Errors []SubError `json:"errors" yaml:"errors"`
}

// SubError describes one of several problems, e.g. a single invalid field.
type SubError struct {
	Message string `json:"message" yaml:"message" required:"true"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status    int
	Message   string
	Retry     bool
	SubErrors []SubError
	Err       error
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *HTTPError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Retryable reports whether the request may be retried.
func (e *HTTPError) Retryable() bool { return e.Retry }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// ErrorMessage extracts the client-facing message of an error.
func ErrorMessage(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Error()
	}
	return err.Error()
}

// ErrorRetryable reports whether any error in the chain is retryable.
func ErrorRetryable(err error) bool {
	var r Retrier
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// NewErrorResponse converts an error into its response body.
func NewErrorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{
		Code:      ErrorStatus(err),
		Message:   ErrorMessage(err),
		Retryable: ErrorRetryable(err),
	}

	var he *HTTPError
	if errors.As(err, &he) && len(he.SubErrors) > 0 {
		resp.Context = &ErrorContext{Errors: he.SubErrors}
	}
	return resp
}
