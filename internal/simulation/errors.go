package simulation

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is the sentinel matched by errors.Is for every
// parameter-validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// Error represents a simulation error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Field names the offending parameter, if any.
	Field string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Op != "" && e.Field != "" {
		prefix = fmt.Sprintf("%s: %s", e.Op, e.Field)
	} else if e.Op != "" {
		prefix = e.Op
	} else if e.Field != "" {
		prefix = e.Field
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// NewErrorf creates a new simulation error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// AsError returns the *Error in err's chain, if there is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsInvalidParameter reports whether err is a parameter-validation failure.
func IsInvalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

func invalidParameter(op, field, format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Op:      op,
		Field:   field,
		Err:     ErrInvalidParameter,
	}
}
