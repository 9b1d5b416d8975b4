// Package ledgererror defines the discriminated error kinds returned by the
// ledger engine and its stores.
package ledgererror

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindForbidden         Kind = "FORBIDDEN"
	KindInvalidAmount     Kind = "INVALID_AMOUNT"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindInvalidOperation  Kind = "INVALID_OPERATION"
	KindInternal          Kind = "INTERNAL_FAILURE"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message to err. A nil err yields nil.
func Wrap(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps err as an INTERNAL_FAILURE unless it already carries a kind.
func Internal(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return Wrap(err, KindInternal, format, args...)
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal for errors that carry none.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// MessageOf returns the user-visible message for err. Internal failures are
// reported generically so driver details never leak.
func MessageOf(err error) string {
	var le *Error
	if errors.As(err, &le) && le.Kind != KindInternal {
		return le.Message
	}
	return "internal error"
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func InvalidAmount(format string, args ...any) *Error {
	return New(KindInvalidAmount, format, args...)
}

func InsufficientFunds(format string, args ...any) *Error {
	return New(KindInsufficientFunds, format, args...)
}

func InvalidOperation(format string, args ...any) *Error {
	return New(KindInvalidOperation, format, args...)
}
