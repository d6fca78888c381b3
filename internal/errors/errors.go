// SPDX-License-Identifier: Apache-2.0

// Package errors defines the structured errors raised by the interop,
// result and conversion layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies zosgo errors.
type ErrorCode string

const (
	// ErrResolution means a registered capability had no concrete implementation to expose.
	ErrResolution ErrorCode = "RESOLUTION_ERROR"

	// ErrSchemaValidation means a record does not match the schema of its analysis kind.
	ErrSchemaValidation ErrorCode = "SCHEMA_VALIDATION_ERROR"

	// ErrConstantLookup means an integer settings value has no named constant.
	ErrConstantLookup ErrorCode = "CONSTANT_LOOKUP_ERROR"

	// ErrConversionConfiguration means a mapping rule produced output its schema rejects.
	ErrConversionConfiguration ErrorCode = "CONVERSION_CONFIGURATION_ERROR"

	ErrSessionClosed  ErrorCode = "SESSION_CLOSED"
	ErrMemberNotFound ErrorCode = "MEMBER_NOT_FOUND"
	ErrRuleNotFound   ErrorCode = "RULE_NOT_FOUND"
	ErrInvalidRule    ErrorCode = "INVALID_RULE"
	ErrNotFound       ErrorCode = "NOT_FOUND"
)

// Error is a structured error with a code, a message and optional details.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to the error details.
// Returns the error for method chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an error with the given code and message.
func New(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates an error with the given code, message and cause.
func Wrap(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Err: cause}
}

// NewResolution creates an error for a handle whose concrete capability cannot be exposed.
func NewResolution(declared, concrete string) *Error {
	return &Error{
		Code:    ErrResolution,
		Message: fmt.Sprintf("cannot resolve %q: no concrete implementation %q", declared, concrete),
		Details: map[string]any{"declared": declared, "concrete": concrete},
	}
}

// NewSchemaValidation creates an error naming the offending path.
func NewSchemaValidation(path, msg string) *Error {
	if path == "" {
		path = "."
	}
	return &Error{
		Code:    ErrSchemaValidation,
		Message: fmt.Sprintf("%s: %s", path, msg),
		Details: map[string]any{"path": path},
	}
}

// NewConstantLookup creates an error for an integer code missing from a constant table.
func NewConstantLookup(key string, value any, constant string) *Error {
	return &Error{
		Code:    ErrConstantLookup,
		Message: fmt.Sprintf("no constant of %s for %s=%v", constant, key, value),
		Details: map[string]any{"key": key, "value": value, "constant": constant},
	}
}

// NewConversionConfiguration reports a rule whose output is rejected by its schema.
func NewConversionConfiguration(rule, source string, cause error) *Error {
	return &Error{
		Code:    ErrConversionConfiguration,
		Message: fmt.Sprintf("rule %q produced an invalid record for %s", rule, source),
		Err:     cause,
		Details: map[string]any{"rule": rule, "source": source},
	}
}

// NewSessionClosed reports use of a handle after its session ended.
func NewSessionClosed(session string) *Error {
	return &Error{
		Code:    ErrSessionClosed,
		Message: fmt.Sprintf("session %s is closed", session),
		Details: map[string]any{"session": session},
	}
}

// NewMemberNotFound reports access to a member the current capability view does not expose.
func NewMemberNotFound(capability, member string) *Error {
	return &Error{
		Code:    ErrMemberNotFound,
		Message: fmt.Sprintf("%s has no member %q", capability, member),
		Details: map[string]any{"capability": capability, "member": member},
	}
}

// NewRuleNotFound reports an analysis kind without a mapping rule.
func NewRuleNotFound(analysis string) *Error {
	return &Error{
		Code:    ErrRuleNotFound,
		Message: fmt.Sprintf("no mapping rule for analysis %q", analysis),
		Details: map[string]any{"analysis": analysis},
	}
}

// NewInvalidRule reports a malformed mapping rule declaration.
func NewInvalidRule(rule, msg string) *Error {
	return &Error{
		Code:    ErrInvalidRule,
		Message: fmt.Sprintf("rule %q: %s", rule, msg),
		Details: map[string]any{"rule": rule},
	}
}

// NewNotFound reports a missing archived record.
func NewNotFound(id string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("record not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// Is reports whether any error in err's chain is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}
