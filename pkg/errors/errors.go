package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies the failures the scraper core can surface
type ErrorType string

const (
	// ErrorTypeStoreUnavailable means the backing account database could not
	// be opened or reached. Fatal to the operation that needed it, not to
	// the whole process.
	ErrorTypeStoreUnavailable ErrorType = "store_unavailable"
	// ErrorTypeFetchFailed is a transport or decode error on a page request.
	// It ends the current account's pagination run only.
	ErrorTypeFetchFailed ErrorType = "fetch_failed"
	// ErrorTypeClaimExhausted means the backup pool has no eligible account.
	ErrorTypeClaimExhausted ErrorType = "claim_exhausted"
	// ErrorTypeConfiguration covers startup-time problems: mismatched
	// worker/proxy counts, malformed credential lines. Fatal before any
	// worker is dispatched.
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error carries a type alongside the underlying cause
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a typed error without an underlying cause
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap creates a typed error around an underlying cause
func Wrap(t ErrorType, msg string, cause error) *Error {
	return &Error{Type: t, Message: msg, Cause: cause}
}

// IsType reports whether err (or anything it wraps) carries the given type
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsFatal reports whether an error should abort the process rather than
// one account or one worker. Only configuration and store-initialization
// failures qualify.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrorTypeConfiguration || e.Type == ErrorTypeStoreUnavailable
	}
	return false
}
