package steps

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/dom"
	"github.com/devicelab-dev/terrain/pkg/driver/client"
	"github.com/devicelab-dev/terrain/pkg/forms"
	"github.com/devicelab-dev/terrain/pkg/logger"
)

// World is the state of one scenario.
type World struct {
	suite *Suite

	scenarioID string
	app        string
	client     *client.Driver
	useBrowser bool
	timeout    time.Duration
	page       *dom.Page       // last page fetched by the client
	element    core.ElementRef // last selected element
	stepIndex  int
}

// begin resets the world for a new scenario.
func (w *World) begin(sc *godog.Scenario) error {
	s := w.suite

	w.scenarioID = sc.Id
	w.app = s.enterFeature(sc.Uri)
	w.useBrowser = false
	w.timeout = s.cfg.Timeout
	w.page = nil
	w.element = core.ElementRef{}
	w.stepIndex = -1

	if s.cfg.Recorder != nil {
		tags := make([]string, len(sc.Tags))
		for i, t := range sc.Tags {
			tags[i] = t.Name
		}
		s.cfg.Recorder.StartScenario(sc.Id, sc.Name, sc.Uri, w.app, tags)
	}

	c, err := s.newClient()
	if err != nil {
		return err
	}
	w.client = c

	return s.preflight(sc)
}

func (w *World) end(sc *godog.Scenario, err error) {
	if w.suite.cfg.Recorder != nil {
		w.suite.cfg.Recorder.EndScenario(sc.Id, err)
	}
	if err != nil {
		logger.Info("scenario %q failed: %v", sc.Name, err)
	}
}

func (w *World) stepStarted(st *godog.Step) {
	w.stepIndex++
	if w.suite.cfg.Recorder != nil {
		name := "client"
		if b := w.Backend(); b != nil {
			name = b.Name()
		}
		w.suite.cfg.Recorder.StartStep(w.scenarioID, st.Text, keywordFor(string(st.Type)), name)
	}
}

func (w *World) stepFinished(ctx context.Context, st *godog.Step, status godog.StepResultStatus, err error) {
	result := statusFor(status, err)
	if err != nil {
		logger.Debug("step %q: %s: %v", st.Text, result, err)
	}
	if w.suite.cfg.Recorder == nil {
		return
	}

	var attachments []core.Attachment
	if w.suite.cfg.Artifacts.ShouldCapture(result) {
		if src, ok := w.Backend().(core.ArtifactSource); ok {
			attachments = w.suite.cfg.Artifacts.Capture(ctx, src, fmt.Sprintf("step-%02d", w.stepIndex))
		}
	}
	w.suite.cfg.Recorder.EndStep(w.scenarioID, result, err, attachments)
}

// Backend returns the backend steps currently query, or nil when the
// scenario has no client.
func (w *World) Backend() core.Backend {
	b, err := w.backend()
	if err != nil {
		return nil
	}
	return b
}

func (w *World) backend() (core.Backend, error) {
	if w.useBrowser {
		return w.suite.browser, nil
	}
	return w.httpClient()
}

// httpClient returns the scenario's client, creating it when a step runs
// before the scenario hook did.
func (w *World) httpClient() (*client.Driver, error) {
	if w.client == nil {
		c, err := w.suite.newClient()
		if err != nil {
			return nil, err
		}
		w.client = c
	}
	return w.client, nil
}

// UsingBrowser reports whether the scenario is on the browser backend.
func (w *World) UsingBrowser() bool { return w.useBrowser }

// Page returns the last page fetched by the client.
func (w *World) Page() *dom.Page { return w.page }

// Selenium

func (w *World) usingSelenium(ctx context.Context) error {
	if err := w.suite.startBrowser(ctx); err != nil {
		return err
	}
	w.suite.browser.SetPageLoadTimeout(w.timeout)
	w.useBrowser = true
	return nil
}

func (w *World) finishedUsingSelenium() error {
	w.useBrowser = false
	return nil
}

func (w *World) aTimeoutOf(secs string) error {
	n, err := strconv.Atoi(secs)
	if err != nil {
		return core.ErrInvalidConfig.WithMessagef("invalid timeout %q", secs).WithCause(err)
	}
	w.timeout = time.Duration(n) * time.Second
	if w.useBrowser {
		w.suite.browser.SetPageLoadTimeout(w.timeout)
	}
	return nil
}

// Page access

func (w *World) accessURL(ctx context.Context, url string) error {
	if w.useBrowser {
		if err := w.suite.browser.Open(ctx, url); err != nil {
			return err
		}
	}

	c, err := w.httpClient()
	if err != nil {
		return err
	}
	page, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	w.page = page
	if page.StatusCode != http.StatusOK {
		return core.ErrStatusMismatch.
			WithMessagef("failed to get a 200 for %s, got %d", url, page.StatusCode).
			Expected(http.StatusOK, page.StatusCode)
	}
	return nil
}

func (w *World) accessReversedURL(ctx context.Context, name string) error {
	path, err := w.suite.cfg.Routes.Reverse(name)
	if err != nil {
		return err
	}
	return w.accessURL(ctx, path)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func (w *World) expectRedirect(ctx context.Context, from, to string) error {
	if err := w.accessURL(ctx, to); err != nil {
		return err
	}
	ignore := w.suite.cfg.RedirectIgnore
	expected, err := w.page.Canonical(ignore)
	if err != nil {
		return err
	}

	c, err := w.httpClient()
	if err != nil {
		return err
	}
	origin, err := c.Get(ctx, from)
	if err != nil {
		return err
	}
	if !isRedirect(origin.StatusCode) {
		return core.ErrRedirectExpected.
			WithMessagef("failed to get a redirect for %s, got %d", from, origin.StatusCode).
			Expected("3xx", origin.StatusCode)
	}

	final, err := c.Follow(ctx, from)
	if err != nil {
		return err
	}
	w.page = final

	actual, err := final.Canonical(ignore)
	if err != nil {
		return err
	}
	if actual != expected {
		return core.ErrDOMMismatch.
			WithMessagef("expected DOM of %s doesn't match DOM reached from %s (landed on %s)", to, from, final.URL).
			WithDetails(map[string]interface{}{"diff": firstDifference(expected, actual)})
	}

	if w.useBrowser {
		return w.suite.browser.Open(ctx, from)
	}
	return nil
}

// firstDifference returns a short excerpt around the first differing byte.
func firstDifference(a, b string) string {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	start := i - 40
	if start < 0 {
		start = 0
	}
	excerpt := func(s string) string {
		end := i + 40
		if end > len(s) {
			end = len(s)
		}
		if start > len(s) {
			return ""
		}
		return s[start:end]
	}
	return fmt.Sprintf("at byte %d: expected %q, got %q", i, excerpt(a), excerpt(b))
}

func (w *World) hitTemplate(name string) error {
	if w.page == nil {
		return core.ErrNoPage
	}
	if !w.page.HasTemplate(name) {
		return core.ErrTemplateNotRendered.
			WithMessagef("%s not in %v", name, w.page.Templates).
			Expected(name, w.page.Templates)
	}
	return nil
}

// DOM

func (w *World) seeHeader(ctx context.Context, level, text string) error {
	ref := core.CSS("h" + level)
	w.element = ref

	backend, err := w.backend()
	if err != nil {
		return err
	}
	got, err := backend.Text(ctx, ref)
	if err != nil {
		return err
	}
	if !strings.Contains(got, text) {
		return core.ErrTextMismatch.
			WithMessagef("header%s is %q, expected it to contain %q", level, got, text).
			Expected(text, got)
	}
	return nil
}

func (w *World) thatItsIDIs(ctx context.Context, id string) error {
	if w.element.IsZero() {
		return core.ErrNoElement
	}
	backend, err := w.backend()
	if err != nil {
		return err
	}
	got, _, err := backend.Attribute(ctx, w.element, "id")
	if err != nil {
		return err
	}
	if got != id {
		return core.ErrAttributeMismatch.
			WithMessagef("id of %s is %q, expected %q", w.element.Describe(), got, id).
			Expected(id, got)
	}
	return nil
}

func (w *World) ifResultSeeText(ctx context.Context, result, text string) error {
	if result != "pass" {
		return nil
	}
	backend, err := w.backend()
	if err != nil {
		return err
	}
	found, err := backend.IsTextPresent(ctx, text)
	if err != nil {
		return err
	}
	if !found {
		return core.ErrTextNotPresent.WithMessagef("text %q not found on the page", text)
	}
	return nil
}

// Global

func (w *World) notLoggedIn(ctx context.Context) error {
	logout, err := w.suite.cfg.Routes.Reverse(w.suite.cfg.LogoutRoute)
	if err != nil {
		return err
	}
	return w.expectRedirect(ctx, logout, "/")
}

func (w *World) requiredFieldsPresent(ctx context.Context, friendly string) error {
	name := forms.FriendlyName(friendly)
	form, err := w.suite.cfg.Forms.Lookup(w.app, name)
	if err != nil {
		return err
	}

	backend, err := w.backend()
	if err != nil {
		return err
	}
	for _, field := range form.RequiredFields() {
		id := forms.InputID(field)
		present, err := backend.IsPresent(ctx, "#"+id)
		if err != nil {
			return err
		}
		if !present {
			return core.ErrFieldMissing.
				WithMessagef("no field with id %s for required field %q of %s", id, field, name)
		}
	}
	return nil
}

func (w *World) fillField(ctx context.Context, id, value string) error {
	backend, err := w.backend()
	if err != nil {
		return err
	}
	return backend.Type(ctx, core.ByID(id), w.suite.tokens.Substitute(value))
}

func (w *World) sleepFor(ctx context.Context, secs string) error {
	n, err := strconv.Atoi(secs)
	if err != nil {
		return core.ErrInvalidConfig.WithMessagef("invalid duration %q", secs).WithCause(err)
	}
	return w.suite.sleep(ctx, time.Duration(n)*time.Second)
}

func (w *World) clickButton(ctx context.Context, selector string) error {
	backend, err := w.backend()
	if err != nil {
		return err
	}
	return backend.Click(ctx, core.CSS(selector))
}

func (w *World) checkField(ctx context.Context, id, state string) error {
	ref := core.ByID(id)
	want := state == "checked"

	backend, err := w.backend()
	if err != nil {
		return err
	}
	checked, err := backend.IsChecked(ctx, ref)
	if err != nil {
		return err
	}
	if checked == want {
		return nil
	}
	return backend.Click(ctx, ref)
}

func (w *World) submissionResult(ctx context.Context, result string) error {
	var wantErrors bool
	switch result {
	case "pass":
		wantErrors = false
	case "fail":
		wantErrors = true
	default:
		return core.ErrInvalidConfig.WithMessagef("submission result must be \"pass\" or \"fail\", got %q", result)
	}

	backend, err := w.backend()
	if err != nil {
		return err
	}
	present, err := backend.IsPresent(ctx, "ul.errorlist")
	if err != nil {
		return err
	}
	if present != wantErrors {
		if wantErrors {
			return core.ErrErrorListMismatch.WithMessage("expected the form to be rejected, but no error list is shown").Expected(true, false)
		}
		return core.ErrErrorListMismatch.WithMessage("expected the form to be accepted, but an error list is shown").Expected(false, true)
	}
	return nil
}
