// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client, transport and backend layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication (bad credentials, missing or expired token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller acting on another user's data.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (email taken, already enrolled).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates input rejected before any remote call or state change.
	ErrValidation = errors.New("validation")

	// ErrClosed indicates the state store no longer accepts actions.
	ErrClosed = errors.New("store closed")
)

// Validation wraps msg as an ErrValidation.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return "validation: " + e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// Message returns the human-readable part of err: the text given to
// Validation or WithMessage, even when wrapped. Other errors are returned as
// err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var v *validationError
	if errors.As(err, &v) {
		return v.msg
	}
	var k *kindError
	if errors.As(err, &k) {
		return k.msg
	}
	return err.Error()
}

// WithMessage returns an error that matches kind with errors.Is but reads as
// msg. The transport uses it to keep backend messages intact.
func WithMessage(kind error, msg string) error {
	if msg == "" {
		return kind
	}
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
