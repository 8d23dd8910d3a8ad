package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/logger"
)

// Recorder collects scenario and step results while a run executes.
// It is safe for concurrent use by scenarios running in parallel.
type Recorder struct {
	mu        sync.Mutex
	outputDir string
	report    Report
	index     map[string]int // scenario ID -> position in Scenarios
}

// NewRecorder creates a Recorder. When outputDir is empty nothing is written.
func NewRecorder(name, outputDir string, runner RunnerInfo) *Recorder {
	now := time.Now()
	return &Recorder{
		outputDir: outputDir,
		report: Report{
			Version:     Version,
			Status:      StatusRunning,
			LastUpdated: now,
			Runner:      runner,
			SuiteResult: core.SuiteResult{
				Name:      name,
				RunID:     uuid.NewString(),
				StartTime: now,
			},
		},
		index: make(map[string]int),
	}
}

// RunID returns the unique ID of this run.
func (r *Recorder) RunID() string {
	return r.report.RunID
}

// OutputDir returns the report directory.
func (r *Recorder) OutputDir() string {
	return r.outputDir
}

// StartScenario registers a scenario as running.
func (r *Recorder) StartScenario(id, name, feature, app string, tags []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.index[id] = len(r.report.Scenarios)
	r.report.Scenarios = append(r.report.Scenarios, core.ScenarioResult{
		ID:        id,
		Name:      name,
		Feature:   feature,
		App:       app,
		Tags:      tags,
		Status:    core.StatusRunning,
		StartTime: time.Now(),
	})
}

// StartStep records that a step began. It returns the step index.
func (r *Recorder) StartStep(scenarioID, text, keyword, backend string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sc := r.scenario(scenarioID)
	if sc == nil {
		return -1
	}
	idx := len(sc.Steps)
	sc.Steps = append(sc.Steps, core.StepResult{
		Index:     idx,
		Text:      text,
		Keyword:   keyword,
		Backend:   backend,
		Status:    core.StatusRunning,
		StartTime: time.Now(),
	})
	return idx
}

// EndStep completes the most recent step of a scenario.
func (r *Recorder) EndStep(scenarioID string, status core.StepStatus, err error, attachments []core.Attachment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sc := r.scenario(scenarioID)
	if sc == nil || len(sc.Steps) == 0 {
		return
	}
	step := &sc.Steps[len(sc.Steps)-1]
	step.Status = status
	step.Duration = time.Since(step.StartTime)
	if err != nil {
		step.Error = err.Error()
		step.Category = core.CategoryOf(err)
	}

	for i, att := range attachments {
		if r.outputDir != "" && len(att.Body) > 0 {
			rel := filepath.Join("assets", scenarioID, att.Path)
			if werr := writeAsset(filepath.Join(r.outputDir, rel), att.Body); werr != nil {
				logger.Warn("saving %s: %v", rel, werr)
				continue
			}
			attachments[i].Path = rel
		}
	}
	step.Attachments = append(step.Attachments, attachments...)
}

// EndScenario completes a scenario and flushes the report.
func (r *Recorder) EndScenario(scenarioID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sc := r.scenario(scenarioID)
	if sc == nil {
		return
	}
	sc.Duration = time.Since(sc.StartTime)
	sc.ComputeSummary()
	sc.Status = sc.AggregateStatus()
	if err != nil {
		sc.Error = err.Error()
		if !sc.Status.IsFailure() {
			sc.Status = core.StatusForError(err)
		}
	}

	r.flushLocked()
}

// Finish marks the run complete, writes the final report and returns the result.
func (r *Recorder) Finish() *core.SuiteResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.report.EndTime = &now
	r.report.Duration = now.Sub(r.report.StartTime)
	r.report.ComputeSummary()
	if r.report.Success() {
		r.report.Status = StatusPassed
	} else {
		r.report.Status = StatusFailed
	}
	r.flushLocked()

	if r.outputDir != "" {
		if err := GenerateHTML(r.outputDir, HTMLConfig{}); err != nil {
			logger.Warn("generating html report: %v", err)
		}
	}

	result := r.report.SuiteResult
	result.Scenarios = append([]core.ScenarioResult(nil), r.report.Scenarios...)
	return &result
}

// Report returns a snapshot of the current report.
func (r *Recorder) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.report
	snap.Scenarios = append([]core.ScenarioResult(nil), r.report.Scenarios...)
	return snap
}

func (r *Recorder) scenario(id string) *core.ScenarioResult {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return &r.report.Scenarios[i]
}

func (r *Recorder) flushLocked() {
	r.report.LastUpdated = time.Now()
	r.report.ComputeSummary()
	if r.outputDir == "" {
		return
	}
	if err := atomicWriteJSON(filepath.Join(r.outputDir, "report.json"), r.report); err != nil {
		logger.Error("writing report: %v", err)
	}
}

// ReadReport loads report.json from a report directory.
func ReadReport(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		return nil, err
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse report.json: %w", err)
	}
	return &rep, nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func writeAsset(path string, data []byte) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// atomicWriteJSON writes v to path via a temp file and rename.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
