package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in governance terms, not HTTP terms.
type Code string

const (
	CodeInvalidArgument    Code = "invalid_argument"
	CodeInvalidTimeline    Code = "invalid_timeline"
	CodeInvalidActivity    Code = "invalid_activity"
	CodeConsentNotFound    Code = "consent_not_found"
	CodeUnknownActivity    Code = "unknown_activity"
	CodeAssessmentNotFound Code = "assessment_not_found"
	CodeBreachNotFound     Code = "breach_not_found"
	CodeConsentRequired    Code = "consent_required"
	CodeInvalidTransition  Code = "invalid_transition"
	CodeGatewayFailure     Code = "gateway_failure"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error in the chain,
// or CodeInternal for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsInvalidArgument reports malformed input, including the timeline and
// catalog-entry refinements.
func IsInvalidArgument(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeInvalidTimeline, CodeInvalidActivity:
		return err != nil
	}
	return false
}

// IsNotFound reports any of the not-found variants.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeConsentNotFound, CodeUnknownActivity, CodeAssessmentNotFound, CodeBreachNotFound:
		return err != nil
	}
	return false
}
