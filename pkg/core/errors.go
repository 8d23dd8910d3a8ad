package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured step failure with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: status_mismatch, element_not_found, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context (expected/actual values)
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches another ExecutionError with the same code
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with fmt.Sprintf formatting
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Expected is a shorthand for WithDetails carrying expected and actual values
func (e *ExecutionError) Expected(expected, actual interface{}) *ExecutionError {
	return e.WithDetails(map[string]interface{}{
		"expected": expected,
		"actual":   actual,
	})
}

// Predefined errors
var (
	// Assertion errors
	ErrStatusMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "status_mismatch",
		Message:  "unexpected response status",
	}
	ErrRedirectExpected = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "redirect_expected",
		Message:  "expected a redirect",
	}
	ErrDOMMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "dom_mismatch",
		Message:  "expected DOM doesn't match redirected DOM",
	}
	ErrTemplateNotRendered = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "template_not_rendered",
		Message:  "template was not rendered",
	}
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrTextMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "text_mismatch",
		Message:  "text does not match expected value",
	}
	ErrTextNotPresent = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "text_not_present",
		Message:  "text not present on page",
	}
	ErrAttributeMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "attribute_mismatch",
		Message:  "attribute does not match expected value",
	}
	ErrFieldMissing = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "field_missing",
		Message:  "required field missing from page",
	}
	ErrErrorListMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "errorlist_mismatch",
		Message:  "form error list presence does not match expectation",
	}

	// Precondition errors: a step depends on state an earlier step should have set
	ErrNoPage = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "no_page",
		Message:  "no page has been accessed yet",
	}
	ErrNoElement = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "no_element",
		Message:  "no element has been selected yet",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}
	ErrPageLoadTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "page_load_timeout",
		Message:  "page did not finish loading",
	}

	// Connection errors
	ErrServerUnreachable = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "server_unreachable",
		Message:  "could not connect to automation server",
	}
	ErrRequestFailed = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "request_failed",
		Message:  "request failed",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}
	ErrRouteNotFound = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "route_not_found",
		Message:  "no route with that name",
	}
	ErrNoForms = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "no_forms",
		Message:  "no forms registered for app",
	}
	ErrFormNotFound = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "form_not_found",
		Message:  "no form with that name",
	}

	// Unsupported errors
	ErrUnsupported = &ExecutionError{
		Category: ErrCategoryUnsupported,
		Code:     "unsupported",
		Message:  "operation not supported by backend",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CategoryOf returns the category of err, or ErrCategoryNone if err carries none
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Category
	}
	return ErrCategoryUnknown
}
