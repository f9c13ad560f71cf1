package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrEmptyCart    = errors.New("cart is empty")
	// ErrValidation marks a stored cart line that breaks the cart invariants.
	ErrValidation   = errors.New("validation failed")
	ErrStorage      = errors.New("storage failure")
	ErrNotification = errors.New("notification failure")
)

// Error carries one of the kinds above plus the field or entity that failed.
// errors.Is matches both the kind and the wrapped cause.
type Error struct {
	Kind   error
	Field  string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalid(field, format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Field: field, Detail: fmt.Sprintf(format, args...)}
}

func notFound(entity, id string) error {
	return &Error{Kind: ErrNotFound, Field: entity, Detail: fmt.Sprintf("%q does not exist", id)}
}

func storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Field: op, Err: err}
}

// FieldOf returns the field or entity named by err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
