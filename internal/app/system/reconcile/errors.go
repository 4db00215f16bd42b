package reconcile

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: what + " not found"}
}

func forbidden(what string) error {
	return &Error{Kind: ErrForbidden, Msg: "you do not have access to this " + what}
}

func conflict(err error, format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...), Err: err}
}

func badRequest(err error, format string, args ...any) error {
	return &Error{Kind: ErrBadRequest, Msg: fmt.Sprintf(format, args...), Err: err}
}
