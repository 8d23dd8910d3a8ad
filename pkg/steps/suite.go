package steps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cucumber/godog"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/driver/client"
	"github.com/devicelab-dev/terrain/pkg/driver/webdriver"
	"github.com/devicelab-dev/terrain/pkg/forms"
	"github.com/devicelab-dev/terrain/pkg/logger"
	"github.com/devicelab-dev/terrain/pkg/report"
	"github.com/devicelab-dev/terrain/pkg/urls"
	"github.com/devicelab-dev/terrain/pkg/validator"
)

// DefaultTimeout is the browser page-load timeout a scenario starts with.
const DefaultTimeout = 5 * time.Second

// DefaultLogoutRoute is the route "I am not logged in" visits.
const DefaultLogoutRoute = "auth_logout"

// Browser is the browser backend with its session lifecycle.
type Browser interface {
	core.Backend
	Start(ctx context.Context) error
	Close() error
}

// Config configures a Suite.
type Config struct {
	// Handler serves the application in-process. When nil, BaseURL is used.
	Handler http.Handler
	// BaseURL of a running application, for the client (when Handler is
	// nil) and for relative browser URLs.
	BaseURL string

	// Browser overrides the WebDriver browser built from WebDriver.
	Browser      Browser
	WebDriver    webdriver.Config
	EagerBrowser bool // start the browser before the first scenario

	Timeout        time.Duration // initial page-load timeout per scenario
	Routes         *urls.Resolver
	LogoutRoute    string
	Forms          *forms.Registry // default a copy of forms.Default
	FormsFS        fs.FS           // where <app>/forms.yaml files are read; default the working directory
	RedirectIgnore []*regexp.Regexp

	Recorder      *report.Recorder
	Artifacts     core.ArtifactConfig
	SkipPreflight bool
	Verbose       bool
}

// Suite holds state shared by every scenario of a run.
type Suite struct {
	cfg       Config
	browser   Browser
	validator *validator.Validator
	tokens    *tokenSource
	sleep     func(ctx context.Context, d time.Duration) error

	mu             sync.Mutex
	browserStarted bool
	featureURI     string
	app            string
	result         *core.SuiteResult
}

// New creates a Suite.
func New(cfg Config) (*Suite, error) {
	if cfg.Handler == nil && cfg.BaseURL == "" {
		return nil, core.ErrInvalidConfig.WithMessage("either an http.Handler or a base url is required")
	}
	if cfg.Handler == nil {
		if _, err := client.NewRemote(cfg.BaseURL); err != nil {
			return nil, err
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LogoutRoute == "" {
		cfg.LogoutRoute = DefaultLogoutRoute
	}
	if cfg.Routes == nil {
		cfg.Routes = urls.New()
	}
	if cfg.Forms == nil {
		cfg.Forms = forms.Default.Clone()
	}

	s := &Suite{
		cfg:    cfg,
		tokens: newTokenSource(),
		sleep:  sleepContext,
	}

	s.browser = cfg.Browser
	if s.browser == nil {
		wd := cfg.WebDriver
		if wd.BaseURL == "" {
			wd.BaseURL = cfg.BaseURL
		}
		wd.PageLoadTimeout = cfg.Timeout
		drv, err := webdriver.New(wd)
		if err != nil {
			return nil, err
		}
		s.browser = drv
	}

	probe, err := s.newClient()
	if err != nil {
		return nil, err
	}
	s.validator = validator.New(Rules(), probe.Capabilities(), s.browser.Capabilities())
	return s, nil
}

func (s *Suite) newClient() (*client.Driver, error) {
	if s.cfg.Handler != nil {
		return client.NewInProcess(s.cfg.Handler), nil
	}
	return client.NewRemote(s.cfg.BaseURL)
}

// Result returns the run result once the suite has finished, or nil.
func (s *Suite) Result() *core.SuiteResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Validator returns the step checker built for this suite's backends.
func (s *Suite) Validator() *validator.Validator {
	return s.validator
}

// InitializeTestSuite registers the suite-level hooks.
func (s *Suite) InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(s.beforeSuite)
	ctx.AfterSuite(s.afterSuite)
}

func (s *Suite) beforeSuite() {
	logger.Silence(s.cfg.Verbose)
	if s.cfg.EagerBrowser {
		logger.Info("starting browser before the first scenario")
		if err := s.startBrowser(context.Background()); err != nil {
			logger.Error("starting browser: %v", err)
		}
	}
}

func (s *Suite) afterSuite() {
	s.mu.Lock()
	started := s.browserStarted
	s.browserStarted = false
	s.mu.Unlock()

	if started {
		if err := s.browser.Close(); err != nil {
			logger.Warn("stopping browser: %v", err)
		}
	}

	if s.cfg.Recorder != nil {
		result := s.cfg.Recorder.Finish()
		s.mu.Lock()
		s.result = result
		s.mu.Unlock()
		logger.Info("run %s finished: %d passed, %d failed, %d skipped",
			result.RunID, result.PassedScenarios, result.FailedScenarios, result.SkippedScenarios)
	}
}

// startBrowser starts the browser session once per run.
func (s *Suite) startBrowser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserStarted {
		return nil
	}
	if err := s.browser.Start(ctx); err != nil {
		return err
	}
	s.browserStarted = true
	return nil
}

// AppFromFeature derives the application name from a feature path laid
// out as <app>/features/<name>.feature.
func AppFromFeature(uri string) string {
	parts := strings.Split(filepath.ToSlash(uri), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-3]
}

// enterFeature tracks feature changes and loads the new feature's forms.
func (s *Suite) enterFeature(uri string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uri == s.featureURI {
		return s.app
	}

	s.featureURI = uri
	s.app = AppFromFeature(uri)
	logger.Info("feature %s (app %q)", uri, s.app)
	if s.app == "" {
		return ""
	}

	fsys, dir := s.formsLocation(uri)
	n, err := s.cfg.Forms.LoadFS(fsys, s.app, dir)
	switch {
	case err == nil:
		logger.Info("loaded %d forms for %s", n, s.app)
	case errors.Is(err, core.ErrNoForms) && s.cfg.Forms.HasApp(s.app):
		logger.Debug("using registered forms for %s", s.app)
	case errors.Is(err, core.ErrNoForms):
		logger.Warn("couldn't find any forms for %s", s.app)
	default:
		logger.Error("loading forms for %s: %v", s.app, err)
	}
	return s.app
}

func (s *Suite) formsLocation(uri string) (fs.FS, string) {
	dir := path.Dir(path.Dir(filepath.ToSlash(uri)))
	if s.cfg.FormsFS != nil {
		return s.cfg.FormsFS, dir
	}
	if filepath.IsAbs(uri) {
		root := filepath.VolumeName(uri) + "/"
		return os.DirFS(root), strings.TrimPrefix(dir, filepath.ToSlash(root))
	}
	return os.DirFS("."), dir
}

// InitializeScenario registers every step and the per-scenario hooks.
func (s *Suite) InitializeScenario(ctx *godog.ScenarioContext) {
	w := &World{suite: s}

	for _, d := range definitions {
		ctx.Step(d.pattern, d.handler(w))
	}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, w.begin(sc)
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		w.end(sc, err)
		return ctx, nil
	})
	ctx.StepContext().Before(func(ctx context.Context, st *godog.Step) (context.Context, error) {
		w.stepStarted(st)
		return ctx, nil
	})
	ctx.StepContext().After(func(ctx context.Context, st *godog.Step, status godog.StepResultStatus, err error) (context.Context, error) {
		w.stepFinished(ctx, st, status, err)
		return ctx, nil
	})
}

// preflight rejects scenarios using steps the active backend cannot run.
func (s *Suite) preflight(sc *godog.Scenario) error {
	if s.cfg.SkipPreflight {
		return nil
	}
	steps := make([]validator.Step, len(sc.Steps))
	for i, st := range sc.Steps {
		steps[i] = validator.Step{Text: st.Text}
	}
	errs := s.validator.CheckSteps(sc.Uri, steps)
	if len(errs) == 0 {
		return nil
	}

	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return core.ErrUnsupported.
		WithMessagef("scenario %q uses browser-only steps in client mode:\n  %s", sc.Name, strings.Join(msgs, "\n  ")).
		WithCause(errors.Join(errs...))
}

func keywordFor(t string) string {
	switch t {
	case "Context":
		return "Given"
	case "Action":
		return "When"
	case "Outcome":
		return "Then"
	default:
		return "*"
	}
}

func statusFor(status godog.StepResultStatus, err error) core.StepStatus {
	switch status {
	case godog.StepPassed:
		return core.StatusPassed
	case godog.StepFailed:
		if err == nil {
			return core.StatusFailed
		}
		return core.StatusForError(err)
	case godog.StepSkipped:
		return core.StatusSkipped
	case godog.StepUndefined:
		return core.StatusUndefined
	case godog.StepPending:
		return core.StatusPending
	default:
		return core.StatusFailed
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sleep interrupted: %w", ctx.Err())
	}
}
