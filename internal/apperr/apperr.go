// Package apperr provides structured domain error conditions so that a
// transport layer can map them to protocol statuses without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Entity lookups
	CodeNotFound Code = "NOT_FOUND"

	// Dictionary generation
	CodeUnsupportedArgument Code = "DICTIONARY_UNSUPPORTED_ARGUMENT"
	CodeDictionaryInvalid   Code = "DICTIONARY_INVALID"

	// Expansion
	CodeExpansionSetImmutable Code = "EXPANSION_SET_IMMUTABLE"
	CodeLogicRejected         Code = "EXPANSION_LOGIC_REJECTED"

	// Wire format
	CodeSeqJSONInvalid Code = "SEQJSON_INVALID"
)

// Error is a domain error carrying a code and a user-facing message.
type Error struct {
	Code    Code
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

// New builds a domain error with the given code.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound reports a missing entity by kind and identifier. Callers test for
// it with IsNotFound rather than comparing strings.
func NotFound(kind string, id any) *Error {
	return New(CodeNotFound, "%s %v not found", kind, id)
}

// IsNotFound reports whether err is (or wraps) a not-found condition.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// CodeOf extracts the domain code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
