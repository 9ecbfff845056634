package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryHTTP      Category = "http"
	CategoryWebSocket Category = "websocket"
	CategoryCompile   Category = "compile"
	CategoryResolve   Category = "resolve"
	CategoryWatch     Category = "watch"
	CategoryCLI       Category = "cli"
)

// WuError is a structured error with a code, suggestions, and an optional
// wrapped cause.
type WuError struct {
	// Code is a unique error identifier (e.g., "E120").
	Code string

	// Category is the error type (config, compile, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *WuError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *WuError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *WuError) WithDetail(d string) *WuError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *WuError) WithSuggestion(s string) *WuError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *WuError) Wrap(err error) *WuError {
	e.Wrapped = err
	return e
}

// New creates a WuError from a registered error code.
func New(code string) *WuError {
	template, ok := registry[code]
	if !ok {
		return &WuError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &WuError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new WuError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *WuError {
	return &WuError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a WuError.
func FromError(err error, code string) *WuError {
	if err == nil {
		return nil
	}
	if we, ok := err.(*WuError); ok {
		return we
	}
	return New(code).Wrap(err)
}
