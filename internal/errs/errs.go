package errs

import (
	"errors"
	"fmt"
)

// Failure kinds shared by the provider, registry, resolver, prompt and chat
// packages. Match them with errors.Is.
var (
	// ErrConnection means a provider was unreachable or its handshake failed.
	ErrConnection = errors.New("provider connection failed")
	// ErrNotFound means no provider owns the requested tool, resource or prompt.
	ErrNotFound = errors.New("not found")
	// ErrInvocation means a provider failed while running an operation.
	ErrInvocation = errors.New("provider invocation failed")
	// ErrMalformedResponse means a provider or model reply had an unexpected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// NotFound returns an ErrNotFound for the given kind ("tool", "resource",
// "prompt") and name.
func NotFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}

// Connection wraps err as an ErrConnection for provider id.
func Connection(id string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConnection, id, err)
}

// Invocation wraps err as an ErrInvocation for the given operation.
func Invocation(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvocation, op, err)
}

// Malformed returns an ErrMalformedResponse with a formatted detail.
func Malformed(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, a...))
}

// UserErrorf is a user-facing error.
// This helper exists mostly to avoid linters complaining about errors starting
// with a capitalized letter.
func UserErrorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// Error wraps an underlying error with a user-facing reason.
//
// Reason is meant to be short and actionable; Err may contain technical details.
// When Err is nil, Error() falls back to Reason.
type Error struct {
	Err    error
	Reason string
}

// Wrap creates an Error with the given underlying error and user-facing reason.
func Wrap(err error, reason string) Error {
	return Error{Err: err, Reason: reason}
}

// Wrapf creates an Error with the given underlying error and a formatted reason.
func Wrapf(err error, format string, a ...any) Error {
	return Error{Err: err, Reason: fmt.Sprintf(format, a...)}
}

func (e Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func (e Error) Unwrap() error {
	return e.Err
}

// ReasonText returns the user-facing reason for the error.
func (e Error) ReasonText() string {
	return e.Reason
}

// Describe returns a short user-facing reason for one of the failure kinds,
// or fallback when err matches none of them.
func Describe(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrConnection):
		return "Could not reach the provider."
	case errors.Is(err, ErrInvocation):
		return "The provider reported a failure."
	case errors.Is(err, ErrMalformedResponse):
		return "Received a malformed response."
	default:
		return fallback
	}
}
