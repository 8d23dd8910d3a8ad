package core

import (
	"time"
)

// StepResult captures the complete outcome of executing a single step
type StepResult struct {
	// Identity
	Index   int    `json:"index"`   // 0-based position in scenario
	Text    string `json:"text"`    // Step sentence as written
	Keyword string `json:"keyword"` // Given, When, Then, And, But

	// Execution context
	Backend string `json:"backend"` // client or browser at the time the step ran

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Error details
	Error string `json:"error,omitempty"`

	// Debug artifacts
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ScenarioResult captures the complete outcome of executing a scenario
type ScenarioResult struct {
	// Identity
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Feature string   `json:"feature"` // Feature file URI
	App     string   `json:"app,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	// Status (aggregated from steps)
	Status StepStatus `json:"status"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Steps []StepResult `json:"steps"`

	// Summary (computed)
	TotalSteps   int `json:"totalSteps"`
	PassedSteps  int `json:"passedSteps"`
	FailedSteps  int `json:"failedSteps"`
	SkippedSteps int `json:"skippedSteps"`

	// Error info (if scenario failed)
	Error string `json:"error,omitempty"`
}

// ComputeSummary calculates step counts from the Steps slice
func (s *ScenarioResult) ComputeSummary() {
	s.TotalSteps = len(s.Steps)
	s.PassedSteps = 0
	s.FailedSteps = 0
	s.SkippedSteps = 0

	for _, step := range s.Steps {
		switch step.Status {
		case StatusPassed:
			s.PassedSteps++
		case StatusFailed, StatusErrored, StatusUndefined:
			s.FailedSteps++
		case StatusSkipped:
			s.SkippedSteps++
		}
	}
}

// AggregateStatus determines the scenario status from step results
// Rules:
// - Any errored step → StatusErrored
// - Any failed/undefined step → StatusFailed
// - No steps, or all skipped → StatusSkipped
// - Otherwise → StatusPassed
func (s *ScenarioResult) AggregateStatus() StepStatus {
	failed := false
	ran := false
	for _, step := range s.Steps {
		switch step.Status {
		case StatusErrored:
			return StatusErrored
		case StatusFailed, StatusUndefined:
			failed = true
		}
		if step.Status != StatusSkipped {
			ran = true
		}
	}
	if failed {
		return StatusFailed
	}
	if !ran {
		return StatusSkipped
	}
	return StatusPassed
}

// SuiteResult captures the complete outcome of executing all features
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Scenarios []ScenarioResult `json:"scenarios"`

	// Summary
	TotalScenarios   int `json:"totalScenarios"`
	PassedScenarios  int `json:"passedScenarios"`
	FailedScenarios  int `json:"failedScenarios"`
	SkippedScenarios int `json:"skippedScenarios"`
}

// ComputeSummary calculates scenario counts from the Scenarios slice
func (s *SuiteResult) ComputeSummary() {
	s.TotalScenarios = len(s.Scenarios)
	s.PassedScenarios = 0
	s.FailedScenarios = 0
	s.SkippedScenarios = 0

	for _, sc := range s.Scenarios {
		switch sc.Status {
		case StatusPassed:
			s.PassedScenarios++
		case StatusFailed, StatusErrored, StatusUndefined:
			s.FailedScenarios++
		case StatusSkipped:
			s.SkippedScenarios++
		}
	}
}

// Success returns true if all scenarios passed
func (s *SuiteResult) Success() bool {
	for _, sc := range s.Scenarios {
		if sc.Status.IsFailure() {
			return false
		}
	}
	return len(s.Scenarios) > 0
}
