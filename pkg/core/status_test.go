package core

import (
	"errors"
	"testing"
)

func TestStepStatus_String(t *testing.T) {
	tests := []struct {
		status   StepStatus
		expected string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusErrored, "errored"},
		{StatusSkipped, "skipped"},
		{StatusUndefined, "undefined"},
		{StepStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("StepStatus(%d).String() = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestStepStatus_IsTerminal(t *testing.T) {
	terminalStatuses := []StepStatus{StatusPassed, StatusFailed, StatusErrored, StatusSkipped, StatusUndefined}
	nonTerminalStatuses := []StepStatus{StatusPending, StatusRunning}

	for _, s := range terminalStatuses {
		if !s.IsTerminal() {
			t.Errorf("StepStatus(%s).IsTerminal() = false, want true", s)
		}
	}

	for _, s := range nonTerminalStatuses {
		if s.IsTerminal() {
			t.Errorf("StepStatus(%s).IsTerminal() = true, want false", s)
		}
	}
}

func TestStepStatus_IsFailure(t *testing.T) {
	failures := []StepStatus{StatusFailed, StatusErrored, StatusUndefined}
	others := []StepStatus{StatusPending, StatusRunning, StatusPassed, StatusSkipped}

	for _, s := range failures {
		if !s.IsFailure() {
			t.Errorf("StepStatus(%s).IsFailure() = false, want true", s)
		}
	}
	for _, s := range others {
		if s.IsFailure() {
			t.Errorf("StepStatus(%s).IsFailure() = true, want false", s)
		}
	}
}

func TestStepStatus_MarshalText(t *testing.T) {
	got, err := StatusFailed.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(got) != "failed" {
		t.Errorf("MarshalText() = %q, want 'failed'", got)
	}
}

func TestStepStatus_UnmarshalText(t *testing.T) {
	for st := StatusPending; st <= StatusUndefined; st++ {
		text, _ := st.MarshalText()
		var got StepStatus
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) failed: %v", text, err)
		}
		if got != st {
			t.Errorf("UnmarshalText(%q) = %v, want %v", text, got, st)
		}
	}
	var s StepStatus
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText(bogus) should fail")
	}

	var c ErrorCategory
	if err := c.UnmarshalText([]byte("timeout")); err != nil || c != ErrCategoryTimeout {
		t.Errorf("ErrorCategory.UnmarshalText(timeout) = %v, %v", c, err)
	}
	if err := c.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("ErrorCategory.UnmarshalText(bogus) should fail")
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want StepStatus
	}{
		{"nil", nil, StatusPassed},
		{"assertion", ErrTextMismatch, StatusFailed},
		{"unsupported", ErrUnsupported, StatusFailed},
		{"plain", errors.New("boom"), StatusFailed},
		{"timeout", ErrPageLoadTimeout, StatusErrored},
		{"connection", ErrServerUnreachable, StatusErrored},
		{"config", ErrRouteNotFound, StatusErrored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForError(tt.err); got != tt.want {
				t.Errorf("StatusForError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryAssertion, "assertion"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConnection, "connection"},
		{ErrCategoryConfig, "config"},
		{ErrCategoryUnsupported, "unsupported"},
		{ErrorCategory(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.expected {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.category, got, tt.expected)
		}
	}
}
