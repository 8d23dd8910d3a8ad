package core

import "fmt"

// StepStatus represents the execution status of a step
type StepStatus int

const (
	StatusPending   StepStatus = iota // Not yet started
	StatusRunning                     // Currently executing
	StatusPassed                      // Completed successfully
	StatusFailed                      // Assertion failed (expected behavior didn't occur)
	StatusErrored                     // Unexpected error (connection, timeout, config)
	StatusSkipped                     // Previous step failed
	StatusUndefined                   // No step definition matched
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	case StatusUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name in reports
func (s StepStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText
func (s *StepStatus) UnmarshalText(text []byte) error {
	for st := StatusPending; st <= StatusUndefined; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown step status %q", text)
}

// IsTerminal returns true if the status is a final state
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped, StatusUndefined:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s StepStatus) IsSuccess() bool {
	return s == StatusPassed
}

// IsFailure returns true if the status fails the scenario
func (s StepStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusErrored || s == StatusUndefined
}

// StatusForError maps a step error to a status.
// Assertion and unsupported failures are "failed"; infrastructure problems are "errored".
func StatusForError(err error) StepStatus {
	switch CategoryOf(err) {
	case ErrCategoryNone:
		return StatusPassed
	case ErrCategoryAssertion, ErrCategoryUnsupported, ErrCategoryUnknown:
		return StatusFailed
	default:
		return StatusErrored
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone        ErrorCategory = iota // No error
	ErrCategoryAssertion                        // Status, text, DOM, field or template expectation unmet
	ErrCategoryTimeout                          // Page load or wait timed out
	ErrCategoryConnection                       // App or WebDriver server unreachable
	ErrCategoryConfig                           // Invalid configuration, unknown route or form
	ErrCategoryUnsupported                      // Step needs a capability the backend lacks
	ErrCategoryUnknown                          // Plain error without a category
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// MarshalText encodes the category by name in reports
func (c ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name written by MarshalText
func (c *ErrorCategory) UnmarshalText(text []byte) error {
	for cat := ErrCategoryNone; cat <= ErrCategoryUnknown; cat++ {
		if cat.String() == string(text) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown error category %q", text)
}
