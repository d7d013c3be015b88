package calerr

import (
	"errors"
	"fmt"
)

// ErrorType classifies a failure raised by the date model or the recurrence engine
type ErrorType string

const (
	// InvalidRule marks a malformed or semantically inconsistent recurrence rule
	InvalidRule ErrorType = "invalid_rule"
	// UnsupportedOperation marks an operation that does not apply to the current date value kind
	UnsupportedOperation ErrorType = "unsupported_operation"
	// Validation marks a property whose parameters disagree with its value
	Validation ErrorType = "validation"
	// InvalidInput marks bad arguments such as an inverted window
	InvalidInput ErrorType = "invalid_input"
	// UnknownZone marks a timezone identifier the provider cannot resolve
	UnknownZone ErrorType = "unknown_zone"
	// LimitExceeded marks an expansion that would produce more occurrences than allowed
	LimitExceeded ErrorType = "limit_exceeded"
)

// Sentinels for errors.Is matching. They compare by Type only.
var (
	ErrInvalidRule          = &Error{Type: InvalidRule}
	ErrUnsupportedOperation = &Error{Type: UnsupportedOperation}
	ErrValidation           = &Error{Type: Validation}
	ErrInvalidInput         = &Error{Type: InvalidInput}
	ErrUnknownZone          = &Error{Type: UnknownZone}
	ErrLimitExceeded        = &Error{Type: LimitExceeded}
)

// Error is the error type returned by every package of this module
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Type)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Type.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// New creates an error of the given type
func New(typ ErrorType, format string, args ...any) *Error {
	return &Error{Type: typ, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given type around a cause
func Wrap(typ ErrorType, err error, format string, args ...any) *Error {
	return &Error{Type: typ, Message: fmt.Sprintf(format, args...), Err: err}
}

// TypeOf returns the ErrorType carried by err, or "" when err is not an *Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}
