package rest

// SelfValidator is implemented by request types that validate themselves.
// Returned errors without a status code are answered with 500; wrap them
// with Error(http.StatusUnprocessableEntity, ...) to report bad input.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request.
type Validator interface {
	Validate(req any) error
}
