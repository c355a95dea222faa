// Package errors provides standardized error values for nushape
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"

	"github.com/nushape/nushape/internal/position"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryType     ErrorCategory = "TYPE"
	CategoryParse    ErrorCategory = "PARSE"
	CategoryRuntime  ErrorCategory = "RUNTIME"
	CategoryConfig   ErrorCategory = "CONFIG"
	CategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes shared across packages.
const (
	CodeTypeConflict    = "TYPE_CONFLICT"
	CodeTypeMismatch    = "TYPE_MISMATCH"
	CodeParse           = "PARSE_ERROR"
	CodeCommandNotFound = "COMMAND_NOT_FOUND"
	CodeUnknownVariable = "UNKNOWN_VARIABLE"
	CodeRuntime         = "RUNTIME_ERROR"
	CodeConfig          = "CONFIG_ERROR"
	CodeInvalidAlias    = "INVALID_ALIAS"
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Span     position.Span
	Context  map[string]interface{}
	Caller   string
	Cause    error
}

// Error implements the error interface
func (e *StandardError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	if e.Span.IsValid() {
		msg += " at " + e.Span.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *StandardError) Unwrap() error { return e.Cause }

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, span position.Span, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Span:     span,
		Context:  context,
		Caller:   caller,
	}
}

// TypeConflict reports an alias parameter used at two incompatible shapes.
func TypeConflict(variable string, span position.Span) *StandardError {
	return NewStandardError(CategoryType, CodeTypeConflict,
		fmt.Sprintf("Type conflict in alias variable use: $%s creates type conflict", variable),
		span, map[string]interface{}{"variable": variable})
}

// TypeMismatch reports an argument that does not fit its declared shape.
func TypeMismatch(expected, found string, span position.Span) *StandardError {
	return NewStandardError(CategoryType, CodeTypeMismatch,
		fmt.Sprintf("Type Error: expected %s, found %s", expected, found),
		span, map[string]interface{}{"expected": expected, "found": found})
}

// InvalidAlias reports a malformed alias declaration.
func InvalidAlias(message string, span position.Span) *StandardError {
	return NewStandardError(CategoryType, CodeInvalidAlias, message, span, nil)
}

func ParseError(message string, span position.Span) *StandardError {
	return NewStandardError(CategoryParse, CodeParse, message, span, nil)
}

func CommandNotFound(name string, span position.Span) *StandardError {
	return NewStandardError(CategoryRuntime, CodeCommandNotFound,
		fmt.Sprintf("Command not found: %s", name),
		span, map[string]interface{}{"name": name})
}

func UnknownVariable(name string, span position.Span) *StandardError {
	return NewStandardError(CategoryRuntime, CodeUnknownVariable,
		fmt.Sprintf("Unknown variable: $%s", name),
		span, map[string]interface{}{"variable": name})
}

func RuntimeError(message string, span position.Span) *StandardError {
	return NewStandardError(CategoryRuntime, CodeRuntime, message, span, nil)
}

// ConfigError wraps a configuration failure.
func ConfigError(message string, cause error) *StandardError {
	err := NewStandardError(CategoryConfig, CodeConfig, message, position.Span{}, nil)
	err.Cause = cause
	return err
}

// HasCode reports whether err (or anything it wraps) is a StandardError with code.
func HasCode(err error, code string) bool {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsTypeConflict reports whether err is an alias type conflict.
func IsTypeConflict(err error) bool {
	return HasCode(err, CodeTypeConflict)
}

// Variable returns the offending variable recorded on a type conflict.
func Variable(err error) (string, bool) {
	var se *StandardError
	if !stderrors.As(err, &se) || se.Code != CodeTypeConflict {
		return "", false
	}
	name, ok := se.Context["variable"].(string)
	return name, ok
}
