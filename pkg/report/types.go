// Package report provides JSON and HTML reporting for a run.
//
// Layout:
//   - report.json: the run with every scenario and step result
//   - report.html: a static rendering of report.json
//   - assets/<scenario-id>/: screenshots and page sources captured on failure
//
// report.json is rewritten atomically whenever a scenario finishes, so a
// consumer polling it always sees a complete document.
package report

import (
	"time"

	"github.com/devicelab-dev/terrain/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Run status values.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// Report is the report.json document.
type Report struct {
	Version     string     `json:"version"`
	Status      string     `json:"status"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Runner      RunnerInfo `json:"runner"`

	core.SuiteResult
}

// RunnerInfo describes what executed the run.
type RunnerInfo struct {
	Version string `json:"version"`
	Browser string `json:"browser,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
}
