package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for inference API operations.
var (
	ErrUnauthorized = errors.New("inference: unauthorized")
	ErrRateLimited  = errors.New("inference: rate limited by server")
	ErrBadRequest   = errors.New("inference: bad request")
	ErrServer       = errors.New("inference: server error")
	ErrEmptyReply   = errors.New("inference: empty completion")
	ErrNoAPIKey     = errors.New("inference: api key not configured")
	ErrTooLarge     = errors.New("inference: response too large")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "complete"
	Model string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("inference %s [%s]: %v", e.Op, e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, model string, err error) error {
	return &Error{Op: op, Model: model, Err: err}
}
