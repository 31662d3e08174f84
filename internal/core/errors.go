package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures that are surfaced to the user.
type ErrorKind string

const (
	KindAuth         ErrorKind = "auth_error"
	KindWrite        ErrorKind = "write_error"
	KindSubscription ErrorKind = "subscription_error"
	KindValidation   ErrorKind = "validation_error"
)

// Error carries a display message from the backend together with the
// operation that failed. Error() returns only the message so it can be shown
// as-is.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// String includes the operation, for logs.
func (e *Error) String() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the text to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
