// Package client implements core.Backend with an HTTP client that talks to
// the application either in-process (an http.Handler) or over the network.
//
// Redirects are not followed unless asked for, cookies persist across
// requests, and template names reported by the application are captured on
// every page.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/dom"
	"github.com/devicelab-dev/terrain/pkg/logger"
	"github.com/devicelab-dev/terrain/pkg/templates"
)

// DefaultBaseURL is used for in-process requests with relative paths.
const DefaultBaseURL = "http://testserver"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Driver implements core.Backend over net/http.
type Driver struct {
	base      *url.URL
	inProcess bool
	noFollow  *http.Client
	follow    *http.Client
	page      *dom.Page
}

// Option configures a Driver.
type Option func(*Driver)

// WithBaseURL sets the URL relative paths are resolved against.
func WithBaseURL(base *url.URL) Option {
	return func(d *Driver) { d.base = base }
}

// NewInProcess creates a driver that serves requests by calling h directly.
func NewInProcess(h http.Handler, opts ...Option) *Driver {
	base, _ := url.Parse(DefaultBaseURL)
	return newDriver(&handlerTransport{handler: h}, base, opts)
}

// NewRemote creates a driver that sends requests to a running server.
func NewRemote(baseURL string, opts ...Option) (*Driver, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, core.ErrInvalidConfig.WithMessagef("invalid base url %q", baseURL).WithCause(err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, core.ErrInvalidConfig.WithMessagef("base url %q must be absolute", baseURL)
	}
	return newDriver(http.DefaultTransport, base, opts), nil
}

func newDriver(transport http.RoundTripper, base *url.URL, opts []Option) *Driver {
	jar, _ := cookiejar.New(nil)
	_, inProcess := transport.(*handlerTransport)
	d := &Driver{
		base:      base,
		inProcess: inProcess,
		noFollow: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		follow: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements core.Backend.
func (d *Driver) Name() string { return "client" }

// Capabilities implements core.Backend.
func (d *Driver) Capabilities() core.Capability {
	return core.CapNavigate | core.CapQuery | core.CapTextSearch | core.CapTemplates
}

// SetPageLoadTimeout implements core.Backend.
func (d *Driver) SetPageLoadTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d.noFollow.Timeout = timeout
	d.follow.Timeout = timeout
}

// Resolve turns a path or URL into an absolute URL against the base.
func (d *Driver) Resolve(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", core.ErrInvalidConfig.WithMessagef("invalid url %q", rawURL).WithCause(err)
	}
	return d.base.ResolveReference(ref).String(), nil
}

// Get fetches rawURL without following redirects and makes it the current page.
func (d *Driver) Get(ctx context.Context, rawURL string) (*dom.Page, error) {
	return d.fetch(ctx, d.noFollow, rawURL)
}

// Follow fetches rawURL, follows any redirects, and makes the final
// response the current page.
func (d *Driver) Follow(ctx context.Context, rawURL string) (*dom.Page, error) {
	return d.fetch(ctx, d.follow, rawURL)
}

func (d *Driver) fetch(ctx context.Context, c *http.Client, rawURL string) (*dom.Page, error) {
	target, err := d.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	rec := &templates.Recorder{}
	req, err := http.NewRequestWithContext(templates.WithRecorder(ctx, rec), http.MethodGet, target, nil)
	if err != nil {
		return nil, core.ErrRequestFailed.WithCause(err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, core.ErrPageLoadTimeout.WithMessagef("GET %s timed out", rawURL).WithCause(err)
		}
		return nil, core.ErrRequestFailed.WithMessagef("GET %s failed", rawURL).WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrRequestFailed.WithMessagef("reading %s failed", rawURL).WithCause(err)
	}

	page, err := dom.Parse(body)
	if err != nil {
		return nil, core.ErrRequestFailed.WithCause(err)
	}
	page.URL = resp.Request.URL.String()
	page.StatusCode = resp.StatusCode
	page.Location = resp.Header.Get("Location")
	if d.inProcess {
		page.Templates = rec.Names()
	} else {
		page.Templates = templates.ParseHeader(resp.Header.Values(templates.Header))
	}

	logger.Debug("client GET %s -> %d (templates: %v)", rawURL, resp.StatusCode, page.Templates)

	d.page = page
	return page, nil
}

// Page returns the current page, or nil before the first request.
func (d *Driver) Page() *dom.Page {
	return d.page
}

func (d *Driver) current() (*dom.Page, error) {
	if d.page == nil {
		return nil, core.ErrNoPage
	}
	return d.page, nil
}

// Open implements core.Backend. The status code is left for the caller to check.
func (d *Driver) Open(ctx context.Context, rawURL string) error {
	_, err := d.Get(ctx, rawURL)
	return err
}

// Text implements core.Backend.
func (d *Driver) Text(_ context.Context, ref core.ElementRef) (string, error) {
	page, err := d.current()
	if err != nil {
		return "", err
	}
	return page.Text(ref)
}

// Attribute implements core.Backend.
func (d *Driver) Attribute(_ context.Context, ref core.ElementRef, name string) (string, bool, error) {
	page, err := d.current()
	if err != nil {
		return "", false, err
	}
	return page.Attribute(ref, name)
}

// IsPresent implements core.Backend.
func (d *Driver) IsPresent(_ context.Context, selector string) (bool, error) {
	page, err := d.current()
	if err != nil {
		return false, err
	}
	return page.IsPresent(selector)
}

// IsChecked implements core.Backend.
func (d *Driver) IsChecked(_ context.Context, ref core.ElementRef) (bool, error) {
	page, err := d.current()
	if err != nil {
		return false, err
	}
	return page.IsChecked(ref)
}

// IsTextPresent implements core.Backend.
func (d *Driver) IsTextPresent(_ context.Context, text string) (bool, error) {
	page, err := d.current()
	if err != nil {
		return false, err
	}
	return page.HasText(text), nil
}

// Click implements core.Backend. A static document cannot be clicked.
func (d *Driver) Click(_ context.Context, ref core.ElementRef) error {
	return core.ErrUnsupported.WithMessage(fmt.Sprintf("click on %s needs a browser", ref.Describe()))
}

// Type implements core.Backend. A static document cannot be typed into.
func (d *Driver) Type(_ context.Context, ref core.ElementRef, _ string) error {
	return core.ErrUnsupported.WithMessage(fmt.Sprintf("typing into %s needs a browser", ref.Describe()))
}

// Screenshot implements core.ArtifactSource. There is nothing to capture.
func (d *Driver) Screenshot(context.Context) ([]byte, error) {
	return nil, nil
}

// PageSource implements core.ArtifactSource.
func (d *Driver) PageSource(context.Context) (string, error) {
	if d.page == nil {
		return "", nil
	}
	return string(d.page.Body), nil
}
