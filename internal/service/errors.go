package service

import "errors"

// Error kinds. Every error returned by a service either is, or wraps, one of
// these, so handlers can map it without string matching.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrDependency   = errors.New("dependency failed")
)

// reasonError carries a user-facing reason and unwraps to its kind.
type reasonError struct {
	kind   error
	reason string
	cause  error
}

func (e *reasonError) Error() string {
	return e.reason
}

func (e *reasonError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func validationError(reason string) error {
	return &reasonError{kind: ErrValidation, reason: reason}
}

func notFound(reason string) error {
	return &reasonError{kind: ErrNotFound, reason: reason}
}

func forbidden(reason string) error {
	return &reasonError{kind: ErrForbidden, reason: reason}
}

func conflict(reason string) error {
	return &reasonError{kind: ErrConflict, reason: reason}
}

func dependencyError(reason string, cause error) error {
	return &reasonError{kind: ErrDependency, reason: reason, cause: cause}
}
