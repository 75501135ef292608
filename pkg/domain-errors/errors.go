// Package derrors defines the coded error type the service layer speaks.
//
// Domain and service code fail with a Code so transport layers can map
// failures mechanically (HTTP status, metrics label) without string matching.
// Infrastructure facts (row missing, constraint violated) start life as
// pkg/platform/sentinel errors and are translated into these codes at the
// service boundary.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeInvalidInput marks malformed or missing caller input. Always
	// recoverable by correcting the input. Carries the offending field
	// when raised by a value object.
	CodeInvalidInput Code = "invalid_input"

	// CodeDuplicate marks a uniqueness violation, detected either by the
	// advisory pre-check or by storage constraint translation.
	CodeDuplicate Code = "duplicate"

	// CodeNotFound marks a reference to an aggregate that does not exist.
	CodeNotFound Code = "not_found"

	// CodeInvalidState marks an operation attempted against an aggregate
	// whose current state forbids it.
	CodeInvalidState Code = "invalid_state"

	// CodeInternal marks unexpected infrastructure failure. Details are
	// logged, never surfaced to callers.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Field is set for validation failures so the
// external layer can produce an actionable message.
type Error struct {
	Code  Code
	Field string
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// NewField builds a validation error attributed to a named field.
func NewField(code Code, field, msg string) error {
	return &Error{Code: code, Field: field, Msg: msg}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As inspection.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Msg: msg, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err carries
// none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf returns the offending field for validation errors, or "".
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
