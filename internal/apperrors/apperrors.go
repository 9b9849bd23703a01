package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error. Only Infrastructure is retryable.
type Kind int

const (
	NotFound Kind = iota
	Forbidden
	Conflict
	ValidationFailed
	Unauthenticated
	Infrastructure
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case ValidationFailed:
		return "validation_failed"
	case Unauthenticated:
		return "unauthenticated"
	case Infrastructure:
		return "infrastructure"
	}
	return "unknown"
}

// Error is a typed application error with a machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can compare against the kind sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || t.Code == e.Code)
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Kind sentinels for errors.Is checks.
var (
	ErrNotFound         = &Error{Kind: NotFound}
	ErrForbidden        = &Error{Kind: Forbidden}
	ErrConflict         = &Error{Kind: Conflict}
	ErrValidationFailed = &Error{Kind: ValidationFailed}
	ErrUnauthenticated  = &Error{Kind: Unauthenticated}
	ErrInfrastructure   = &Error{Kind: Infrastructure}
)

func NotFoundf(code, format string, args ...any) *Error {
	return New(NotFound, code, fmt.Sprintf(format, args...))
}

func Forbiddenf(code, format string, args ...any) *Error {
	return New(Forbidden, code, fmt.Sprintf(format, args...))
}

func Conflictf(code, format string, args ...any) *Error {
	return New(Conflict, code, fmt.Sprintf(format, args...))
}

func Invalidf(code, format string, args ...any) *Error {
	return New(ValidationFailed, code, fmt.Sprintf(format, args...))
}

// Infra wraps a store/transport failure; the only class callers may retry.
func Infra(err error, code string) *Error {
	return Wrap(err, Infrastructure, code, "infrastructure failure")
}

// KindOf extracts the Kind of err, or Infrastructure for untyped errors
// (unknown failures are treated as non-domain by the boundary layer).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Infrastructure
}

// CodeOf extracts the machine-readable code of err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
