package webdriver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/logger"
)

// Defaults for a local Selenium server.
const (
	DefaultServerURL       = "http://localhost:4444/wd/hub"
	DefaultBrowser         = "firefox"
	DefaultPageLoadTimeout = 5 * time.Second
	DefaultPollInterval    = 100 * time.Millisecond
)

const (
	readyStateScript  = "return document.readyState;"
	textPresentScript = "return !!document.body && document.body.innerText.indexOf(arguments[0]) !== -1;"
)

// Config describes the browser session to start.
type Config struct {
	ServerURL       string                 // WebDriver endpoint
	Browser         string                 // browserName capability
	BaseURL         string                 // application root for relative paths
	Headless        bool                   // add the browser's headless flag
	Capabilities    map[string]interface{} // merged over the generated capabilities
	PageLoadTimeout time.Duration
	PollInterval    time.Duration // readyState polling interval
}

func (c Config) withDefaults() Config {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.Browser == "" {
		c.Browser = DefaultBrowser
	}
	if c.PageLoadTimeout <= 0 {
		c.PageLoadTimeout = DefaultPageLoadTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Driver implements core.Backend against a WebDriver session.
type Driver struct {
	cfg     Config
	client  *Client
	base    *url.URL
	timeout time.Duration
	applied time.Duration // page-load timeout last sent to the server
}

// New creates a driver. No session exists until Start.
func New(cfg Config) (*Driver, error) {
	cfg = cfg.withDefaults()

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, core.ErrInvalidConfig.WithMessagef("browser base url %q must be absolute", cfg.BaseURL)
		}
		base = u
	}

	return &Driver{
		cfg:     cfg,
		client:  NewClient(cfg.ServerURL),
		base:    base,
		timeout: cfg.PageLoadTimeout,
	}, nil
}

// Start opens the browser session.
func (d *Driver) Start(ctx context.Context) error {
	if d.client.SessionID() != "" {
		return nil
	}

	logger.Info("starting %s session at %s", d.cfg.Browser, d.cfg.ServerURL)
	if err := d.client.Connect(ctx, d.capabilities()); err != nil {
		return translate(err, "start browser session")
	}
	d.applied = 0
	logger.Info("browser session %s started", d.client.SessionID())
	return nil
}

// Started reports whether a session is open.
func (d *Driver) Started() bool {
	return d.client.SessionID() != ""
}

// Close ends the browser session.
func (d *Driver) Close() error {
	if !d.Started() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id := d.client.SessionID()
	if err := d.client.Disconnect(ctx); err != nil {
		logger.Warn("closing browser session %s: %v", id, err)
		return translate(err, "close browser session")
	}
	logger.Info("browser session %s closed", id)
	return nil
}

func (d *Driver) capabilities() map[string]interface{} {
	caps := map[string]interface{}{
		"browserName": d.cfg.Browser,
	}
	if d.cfg.Headless {
		switch strings.ToLower(d.cfg.Browser) {
		case "firefox":
			caps["moz:firefoxOptions"] = map[string]interface{}{"args": []string{"-headless"}}
		case "chrome", "chromium":
			caps["goog:chromeOptions"] = map[string]interface{}{"args": []string{"--headless=new"}}
		case "msedge", "edge":
			caps["ms:edgeOptions"] = map[string]interface{}{"args": []string{"--headless=new"}}
		}
	}
	for k, v := range d.cfg.Capabilities {
		caps[k] = v
	}
	return caps
}

// Name implements core.Backend.
func (d *Driver) Name() string { return "browser" }

// Capabilities implements core.Backend.
func (d *Driver) Capabilities() core.Capability {
	return core.CapNavigate | core.CapQuery | core.CapTextSearch | core.CapInteractive | core.CapLiveDOM
}

// SetPageLoadTimeout implements core.Backend. Sent to the server on the next navigation.
func (d *Driver) SetPageLoadTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = d.cfg.PageLoadTimeout
	}
	d.timeout = timeout
}

// PageLoadTimeout returns the timeout used for navigation and clicks.
func (d *Driver) PageLoadTimeout() time.Duration {
	return d.timeout
}

func (d *Driver) session() error {
	if !d.Started() {
		return core.ErrInvalidConfig.WithMessage("browser session not started")
	}
	return nil
}

func (d *Driver) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", core.ErrInvalidConfig.WithMessagef("invalid url %q", rawURL).WithCause(err)
	}
	if ref.IsAbs() {
		return rawURL, nil
	}
	if d.base == nil {
		return "", core.ErrInvalidConfig.WithMessagef("relative url %q needs a browser base url", rawURL)
	}
	return d.base.ResolveReference(ref).String(), nil
}

// Open implements core.Backend.
func (d *Driver) Open(ctx context.Context, rawURL string) error {
	if err := d.session(); err != nil {
		return err
	}
	target, err := d.resolve(rawURL)
	if err != nil {
		return err
	}

	if d.applied != d.timeout {
		if err := d.client.SetPageLoadTimeout(ctx, d.timeout); err != nil {
			return translate(err, "set page load timeout")
		}
		d.applied = d.timeout
	}

	logger.Debug("browser open %s", target)
	if err := d.client.Navigate(ctx, target); err != nil {
		return translate(err, "open "+rawURL)
	}
	return d.waitForLoad(ctx)
}

// waitForLoad polls document.readyState until the page is complete.
func (d *Driver) waitForLoad(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		state, err := d.client.ExecuteScript(ctx, readyStateScript)
		if err == nil && state == "complete" {
			return nil
		}
		if err != nil && ctx.Err() == nil {
			// Scripts can fail while a navigation replaces the document
			logger.Debug("readyState poll: %v", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return core.ErrPageLoadTimeout.WithMessagef("page did not finish loading within %s", d.timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Driver) element(ctx context.Context, ref core.ElementRef) (string, error) {
	if err := d.session(); err != nil {
		return "", err
	}
	if ref.IsZero() {
		return "", core.ErrNoElement
	}

	if ref.Index == 0 {
		id, err := d.client.FindElement(ctx, "css selector", ref.Selector)
		if err != nil {
			return "", translate(err, "find "+ref.Describe())
		}
		return id, nil
	}

	ids, err := d.client.FindElements(ctx, "css selector", ref.Selector)
	if err != nil {
		return "", translate(err, "find "+ref.Describe())
	}
	if ref.Index >= len(ids) {
		return "", core.ErrElementNotFound.WithMessagef("element not found: %s (%d matches)", ref.Describe(), len(ids))
	}
	return ids[ref.Index], nil
}

// Text implements core.Backend.
func (d *Driver) Text(ctx context.Context, ref core.ElementRef) (string, error) {
	id, err := d.element(ctx, ref)
	if err != nil {
		return "", err
	}
	text, err := d.client.GetElementText(ctx, id)
	if err != nil {
		return "", translate(err, "text of "+ref.Describe())
	}
	return text, nil
}

// Attribute implements core.Backend.
func (d *Driver) Attribute(ctx context.Context, ref core.ElementRef, name string) (string, bool, error) {
	id, err := d.element(ctx, ref)
	if err != nil {
		return "", false, err
	}
	value, ok, err := d.client.GetElementAttribute(ctx, id, name)
	if err != nil {
		return "", false, translate(err, fmt.Sprintf("attribute %q of %s", name, ref.Describe()))
	}
	return value, ok, nil
}

// IsPresent implements core.Backend.
func (d *Driver) IsPresent(ctx context.Context, selector string) (bool, error) {
	if err := d.session(); err != nil {
		return false, err
	}
	ids, err := d.client.FindElements(ctx, "css selector", selector)
	if err != nil {
		return false, translate(err, "find css="+selector)
	}
	return len(ids) > 0, nil
}

// IsChecked implements core.Backend.
func (d *Driver) IsChecked(ctx context.Context, ref core.ElementRef) (bool, error) {
	id, err := d.element(ctx, ref)
	if err != nil {
		return false, err
	}
	selected, err := d.client.IsElementSelected(ctx, id)
	if err != nil {
		return false, translate(err, "checked state of "+ref.Describe())
	}
	return selected, nil
}

// IsTextPresent implements core.Backend.
func (d *Driver) IsTextPresent(ctx context.Context, text string) (bool, error) {
	if err := d.session(); err != nil {
		return false, err
	}
	found, err := d.client.ExecuteScript(ctx, textPresentScript, text)
	if err != nil {
		return false, translate(err, "search page text")
	}
	ok, _ := found.(bool)
	return ok, nil
}

// Click implements core.Backend.
func (d *Driver) Click(ctx context.Context, ref core.ElementRef) error {
	id, err := d.element(ctx, ref)
	if err != nil {
		return err
	}
	logger.Debug("browser click %s", ref.Describe())
	if err := d.client.ClickElement(ctx, id); err != nil {
		return translate(err, "click "+ref.Describe())
	}
	return d.waitForLoad(ctx)
}

// Type implements core.Backend.
func (d *Driver) Type(ctx context.Context, ref core.ElementRef, value string) error {
	id, err := d.element(ctx, ref)
	if err != nil {
		return err
	}
	if err := d.client.ClearElement(ctx, id); err != nil {
		return translate(err, "clear "+ref.Describe())
	}
	if err := d.client.SendKeys(ctx, id, value); err != nil {
		return translate(err, "type into "+ref.Describe())
	}
	return nil
}

// Screenshot implements core.ArtifactSource.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := d.session(); err != nil {
		return nil, err
	}
	return d.client.Screenshot(ctx)
}

// PageSource implements core.ArtifactSource.
func (d *Driver) PageSource(ctx context.Context) (string, error) {
	if err := d.session(); err != nil {
		return "", err
	}
	return d.client.Source(ctx)
}

// CurrentURL returns the browser's current URL.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := d.session(); err != nil {
		return "", err
	}
	u, err := d.client.CurrentURL(ctx)
	if err != nil {
		return "", translate(err, "current url")
	}
	return u, nil
}

// translate maps WebDriver and transport errors onto core errors.
func translate(err error, action string) error {
	var wdErr *Error
	if errors.As(err, &wdErr) {
		switch wdErr.Code {
		case errNoSuchElement, errStaleElement:
			return core.ErrElementNotFound.WithMessagef("%s: %s", action, wdErr.Message).WithCause(err)
		case errTimeout:
			return core.ErrPageLoadTimeout.WithMessagef("%s: %s", action, wdErr.Message).WithCause(err)
		case errInvalidSessionID:
			return core.ErrServerUnreachable.WithMessagef("%s: browser session lost", action).WithCause(err)
		case errInvalidSelector:
			return core.ErrInvalidConfig.WithMessagef("%s: %s", action, wdErr.Message).WithCause(err)
		case errElementNotInterac:
			return core.ErrRequestFailed.WithMessagef("%s: element not interactable", action).WithCause(err)
		}
		return core.ErrRequestFailed.WithMessagef("%s: %s", action, wdErr.Error()).WithCause(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout.WithMessagef("%s timed out", action).WithCause(err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return core.ErrServerUnreachable.WithMessagef("%s: webdriver server unreachable", action).WithCause(err)
	}
	return core.ErrRequestFailed.WithMessagef("%s failed", action).WithCause(err)
}
