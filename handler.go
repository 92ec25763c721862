package rest

import (
	"context"
)

// Void is used as a type parameter when a request has no parameters/body
// or a response has no body. A Void response is sent as 204 No Content
// when the operation would otherwise answer 200.
type Void struct{}

// Handler is the core typed handler signature. The framework owns
// serialization; handlers never see http.ResponseWriter or *http.Request.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)
