// Package executor runs feature files through the step library with godog,
// connecting backends to reports.
package executor

import (
	"context"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/logger"
	"github.com/devicelab-dev/terrain/pkg/report"
	"github.com/devicelab-dev/terrain/pkg/steps"
	"github.com/devicelab-dev/terrain/pkg/validator"
)

// Exit codes returned by godog.
const (
	ExitPassed = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// RunnerConfig configures the test runner.
type RunnerConfig struct {
	Name  string   // Suite name in reports. Default: "terrain"
	Paths []string // Feature files or directories
	FS    fs.FS    // Read Paths from FS instead of disk

	Tags       string // godog tag expression
	Format     string // godog formatter. Default: "pretty"
	Output     io.Writer
	NoColors   bool
	Strict     bool // Undefined and pending steps fail the run
	StopOnFail bool // Stop at the first failed scenario

	OutputDir     string // Report directory; empty disables report files
	RunnerVersion string

	// Steps configures the step library. Its Recorder is created from
	// OutputDir when nil.
	Steps steps.Config
}

// RunResult contains the outcome of a test run.
type RunResult struct {
	Status           string // report.StatusPassed or report.StatusFailed
	ExitCode         int
	RunID            string
	ReportDir        string
	TotalScenarios   int
	PassedScenarios  int
	FailedScenarios  int
	SkippedScenarios int
	Duration         time.Duration
	Scenarios        []core.ScenarioResult
}

// Runner orchestrates a godog run.
type Runner struct {
	config RunnerConfig
}

// New creates a new Runner.
func New(cfg RunnerConfig) *Runner {
	if cfg.Name == "" {
		cfg.Name = "terrain"
	}
	if cfg.Format == "" {
		cfg.Format = "pretty"
	}
	if cfg.Output == nil {
		cfg.Output = colors.Colored(os.Stdout)
		if cfg.NoColors {
			cfg.Output = colors.Uncolored(os.Stdout)
		}
	}
	return &Runner{config: cfg}
}

// Run executes all scenarios and returns the aggregated result.
// Scenario failures are reported in the result, not as an error.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	stepsCfg := r.config.Steps
	if stepsCfg.Recorder == nil {
		stepsCfg.Recorder = report.NewRecorder(r.config.Name, r.config.OutputDir, report.RunnerInfo{
			Version: r.config.RunnerVersion,
			Browser: stepsCfg.WebDriver.Browser,
			BaseURL: stepsCfg.BaseURL,
		})
	}

	suite, err := steps.New(stepsCfg)
	if err != nil {
		return nil, err
	}

	logger.Info("run %s: features %v, tags %q", stepsCfg.Recorder.RunID(), r.config.Paths, r.config.Tags)

	status := godog.TestSuite{
		Name:                 r.config.Name,
		TestSuiteInitializer: suite.InitializeTestSuite,
		ScenarioInitializer:  suite.InitializeScenario,
		Options: &godog.Options{
			Format:         r.config.Format,
			Output:         r.config.Output,
			NoColors:       r.config.NoColors,
			Paths:          r.config.Paths,
			FS:             r.config.FS,
			Tags:           r.config.Tags,
			Strict:         r.config.Strict,
			StopOnFailure:  r.config.StopOnFail,
			Concurrency:    1, // one browser session is shared by the run
			DefaultContext: ctx,
		},
	}.Run()

	if status == ExitUsage {
		return nil, core.ErrInvalidConfig.WithMessagef("godog rejected the run options (paths %v, format %q)", r.config.Paths, r.config.Format)
	}
	return r.buildRunResult(status, stepsCfg.Recorder, suite.Result()), nil
}

// buildRunResult aggregates scenario results into a run result.
func (r *Runner) buildRunResult(status int, rec *report.Recorder, suite *core.SuiteResult) *RunResult {
	result := &RunResult{
		ExitCode:  status,
		RunID:     rec.RunID(),
		ReportDir: rec.OutputDir(),
	}
	if suite != nil {
		result.TotalScenarios = suite.TotalScenarios
		result.PassedScenarios = suite.PassedScenarios
		result.FailedScenarios = suite.FailedScenarios
		result.SkippedScenarios = suite.SkippedScenarios
		result.Duration = suite.Duration
		result.Scenarios = suite.Scenarios
	}

	if status == ExitPassed && result.FailedScenarios == 0 {
		result.Status = report.StatusPassed
	} else {
		result.Status = report.StatusFailed
	}
	return result
}

// Check statically validates the configured features without running them.
// Only scenarios carrying any of includeTags and none of excludeTags are checked.
func (r *Runner) Check(includeTags, excludeTags []string) (*validator.Result, error) {
	suite, err := steps.New(r.config.Steps)
	if err != nil {
		return nil, err
	}
	v := suite.Validator().Strict(r.config.Strict).WithTags(includeTags, excludeTags)

	result := &validator.Result{}
	if r.config.FS != nil {
		if len(r.config.Paths) == 0 {
			merge(result, v.ValidateFS(r.config.FS))
		}
		for _, p := range r.config.Paths {
			sub, err := fs.Sub(r.config.FS, p)
			if err != nil {
				return nil, core.ErrInvalidConfig.WithMessagef("feature path %q", p).WithCause(err)
			}
			merge(result, v.ValidateFS(sub))
		}
		return result, nil
	}
	for _, p := range r.config.Paths {
		merge(result, v.Validate(p))
	}
	return result, nil
}

func merge(dst, src *validator.Result) {
	dst.Files = append(dst.Files, src.Files...)
	dst.Scenarios += src.Scenarios
	dst.Errors = append(dst.Errors, src.Errors...)
}
