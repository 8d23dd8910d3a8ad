// Package mock provides a scriptable in-memory backend for testing steps
// without an application or a browser.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/dom"
)

// Driver is a mock implementation of core.Backend.
type Driver struct {
	// Configuration
	Config Config

	mu      sync.Mutex
	page    *dom.Page
	url     string
	timeout time.Duration
	calls   []Call
}

// Config configures mock driver behavior.
type Config struct {
	// Pages maps URLs to the HTML served for them. Unknown URLs fail Open.
	Pages map[string]string
	// Caps overrides the reported capabilities. Zero means everything.
	Caps core.Capability
	// FailOn makes the named method ("Open", "Click", ...) return the error
	FailOn map[string]error
	// Delay adds artificial latency per call
	Delay time.Duration
	// BackendName to report. Default: "mock"
	BackendName string
}

// Call is one recorded backend invocation.
type Call struct {
	Method string
	Args   []string
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Method, c.Args)
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	if cfg.BackendName == "" {
		cfg.BackendName = "mock"
	}
	if cfg.Caps == core.CapNone {
		cfg.Caps = core.CapNavigate | core.CapQuery | core.CapTextSearch | core.CapInteractive | core.CapLiveDOM
	}
	return &Driver{Config: cfg}
}

// Calls returns the recorded invocations in order.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Count returns how many times method was called.
func (d *Driver) Count(method string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// URL returns the last opened URL.
func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Timeout returns the last page-load timeout set.
func (d *Driver) Timeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeout
}

// Page returns the current document.
func (d *Driver) Page() *dom.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

// SetHTML replaces the current document.
func (d *Driver) SetHTML(html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.page = dom.MustParse(html)
}

func (d *Driver) call(method string, args ...string) error {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Method: method, Args: args})
	err := d.Config.FailOn[method]
	d.mu.Unlock()

	if d.Config.Delay > 0 {
		time.Sleep(d.Config.Delay)
	}
	return err
}

func (d *Driver) current() (*dom.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, core.ErrNoPage
	}
	return d.page, nil
}

// Name implements core.Backend.
func (d *Driver) Name() string { return d.Config.BackendName }

// Capabilities implements core.Backend.
func (d *Driver) Capabilities() core.Capability { return d.Config.Caps }

// SetPageLoadTimeout implements core.Backend.
func (d *Driver) SetPageLoadTimeout(timeout time.Duration) {
	_ = d.call("SetPageLoadTimeout", timeout.String())
	d.mu.Lock()
	d.timeout = timeout
	d.mu.Unlock()
}

// Open implements core.Backend.
func (d *Driver) Open(_ context.Context, url string) error {
	if err := d.call("Open", url); err != nil {
		return err
	}
	html, ok := d.Config.Pages[url]
	if !ok {
		return core.ErrRequestFailed.WithMessagef("mock: no page for %s", url)
	}
	page, err := dom.Parse([]byte(html))
	if err != nil {
		return err
	}
	page.URL = url
	page.StatusCode = 200

	d.mu.Lock()
	d.page = page
	d.url = url
	d.mu.Unlock()
	return nil
}

// Text implements core.Backend.
func (d *Driver) Text(_ context.Context, ref core.ElementRef) (string, error) {
	if err := d.call("Text", ref.Describe()); err != nil {
		return "", err
	}
	page, err := d.current()
	if err != nil {
		return "", err
	}
	return page.Text(ref)
}

// Attribute implements core.Backend.
func (d *Driver) Attribute(_ context.Context, ref core.ElementRef, name string) (string, bool, error) {
	if err := d.call("Attribute", ref.Describe(), name); err != nil {
		return "", false, err
	}
	page, err := d.current()
	if err != nil {
		return "", false, err
	}
	return page.Attribute(ref, name)
}

// IsPresent implements core.Backend.
func (d *Driver) IsPresent(_ context.Context, selector string) (bool, error) {
	if err := d.call("IsPresent", selector); err != nil {
		return false, err
	}
	page, err := d.current()
	if err != nil {
		return false, err
	}
	return page.IsPresent(selector)
}

// IsChecked implements core.Backend.
func (d *Driver) IsChecked(_ context.Context, ref core.ElementRef) (bool, error) {
	if err := d.call("IsChecked", ref.Describe()); err != nil {
		return false, err
	}
	page, err := d.current()
	if err != nil {
		return false, err
	}
	return page.IsChecked(ref)
}

// IsTextPresent implements core.Backend.
func (d *Driver) IsTextPresent(_ context.Context, text string) (bool, error) {
	if err := d.call("IsTextPresent", text); err != nil {
		return false, err
	}
	page, err := d.current()
	if err != nil {
		return false, err
	}
	return page.HasText(text), nil
}

// Click implements core.Backend. Checkboxes toggle; anything else is recorded only.
func (d *Driver) Click(_ context.Context, ref core.ElementRef) error {
	if err := d.call("Click", ref.Describe()); err != nil {
		return err
	}
	page, err := d.current()
	if err != nil {
		return err
	}
	sel, err := page.Find(ref)
	if err != nil {
		return err
	}
	if sel.Is(`input[type="checkbox"]`) {
		if _, checked := sel.Attr("checked"); checked {
			sel.RemoveAttr("checked")
		} else {
			sel.SetAttr("checked", "checked")
		}
	}
	return nil
}

// Type implements core.Backend.
func (d *Driver) Type(_ context.Context, ref core.ElementRef, value string) error {
	if err := d.call("Type", ref.Describe(), value); err != nil {
		return err
	}
	page, err := d.current()
	if err != nil {
		return err
	}
	sel, err := page.Find(ref)
	if err != nil {
		return err
	}
	sel.SetAttr("value", value)
	return nil
}

// Screenshot implements core.ArtifactSource.
func (d *Driver) Screenshot(context.Context) ([]byte, error) {
	if err := d.call("Screenshot"); err != nil {
		return nil, err
	}
	return []byte("\x89PNG mock"), nil
}

// PageSource implements core.ArtifactSource.
func (d *Driver) PageSource(context.Context) (string, error) {
	if err := d.call("PageSource"); err != nil {
		return "", err
	}
	page, err := d.current()
	if err != nil {
		return "", nil
	}
	return string(page.Body), nil
}

// Start records a session start.
func (d *Driver) Start(context.Context) error {
	return d.call("Start")
}

// Close implements core.Closer.
func (d *Driver) Close() error {
	return d.call("Close")
}
