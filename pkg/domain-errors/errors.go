// Package derrors provides typed domain errors with stable codes.
//
// Services create errors with New or Wrap and callers branch on codes via
// HasCode instead of string matching. Transport layers map codes to HTTP
// statuses in one place.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for programmatic handling.
type Code string

const (
	CodeInternal           Code = "internal"
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"

	// Domain codes for the privacy mediation engine.
	CodeInsufficientBudget   Code = "insufficient_budget"
	CodePolicyMismatch       Code = "policy_mismatch"
	CodeSuppressionThreshold Code = "suppression_threshold_exceeded"
	CodeSchemeUnavailable    Code = "scheme_unavailable"
	CodeAuditWriteFailure    Code = "audit_write_failure"
	CodeConfiguration        Code = "configuration"
)

// Error is a domain error carrying a code, a message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Unwrap so errors.Is/As keep working.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// Is reports whether target appears in err's chain. Thin wrapper so call
// sites only import this package for error handling.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
