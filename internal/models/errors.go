package models

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transport can map it to a status code and
// callers can tell retryable from terminal. Only KindInternal is retryable.
type Kind string

const (
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindNotYetOpen        Kind = "not_yet_open"
	KindClosed            Kind = "closed"
	KindAttemptsExhausted Kind = "attempts_exhausted"
	KindValidation        Kind = "validation_error"
	KindInternal          Kind = "internal_failure"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ErrUnauthorized(message string) *Error { return NewError(KindUnauthorized, message) }
func ErrNotFound(message string) *Error     { return NewError(KindNotFound, message) }
func ErrValidation(message string) *Error   { return NewError(KindValidation, message) }

func ErrInternal(err error) *Error {
	return WrapError(KindInternal, "internal failure", err)
}

// KindOf unwraps err to its Kind; anything unclassified is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
