package core

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Backend defines the interface steps use to query and drive the page under test.
// Implementations: the in-process HTTP client, a WebDriver browser, a mock.
// Steps decide what to assert; the Backend just answers questions about the page.
type Backend interface {
	// Name identifies the backend in messages and reports
	Name() string

	// Capabilities reports which operations the backend supports
	Capabilities() Capability

	// Open navigates to url and waits for the page to load
	Open(ctx context.Context, url string) error

	// SetPageLoadTimeout bounds how long Open and Click wait for a page
	SetPageLoadTimeout(timeout time.Duration)

	// Text returns the text content of the referenced element
	Text(ctx context.Context, ref ElementRef) (string, error)

	// Attribute returns an attribute of the referenced element
	Attribute(ctx context.Context, ref ElementRef, name string) (value string, ok bool, err error)

	// IsPresent reports whether at least one element matches the CSS selector
	IsPresent(ctx context.Context, selector string) (bool, error)

	// IsChecked reports whether the referenced checkbox/radio is checked
	IsChecked(ctx context.Context, ref ElementRef) (bool, error)

	// IsTextPresent reports whether text appears anywhere in the page body
	IsTextPresent(ctx context.Context, text string) (bool, error)

	// Click clicks the referenced element and waits for any resulting page load
	Click(ctx context.Context, ref ElementRef) error

	// Type replaces the value of the referenced input
	Type(ctx context.Context, ref ElementRef, value string) error
}

// ArtifactSource is implemented by backends that can capture debug artifacts.
type ArtifactSource interface {
	// Screenshot captures the current viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)

	// PageSource returns the current page HTML
	PageSource(ctx context.Context) (string, error)
}

// Closer is implemented by backends that hold a session open.
type Closer interface {
	Close() error
}

// Capability is a set of operations a backend supports.
type Capability uint16

// Capability values
const (
	CapNavigate    Capability = 1 << iota // Open
	CapQuery                              // Text, Attribute, IsPresent, IsChecked
	CapTextSearch                         // IsTextPresent
	CapClick                              // Click
	CapType                               // Type
	CapTemplates                          // Reports rendered template names
	CapLiveDOM                            // Reflects JS-driven changes
	CapNone        Capability = 0
	CapInteractive            = CapClick | CapType
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapNavigate, "navigate"},
	{CapQuery, "query"},
	{CapTextSearch, "text-search"},
	{CapClick, "click"},
	{CapType, "type"},
	{CapTemplates, "templates"},
	{CapLiveDOM, "live-dom"},
}

// Has returns true if every capability in want is present
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Missing returns the capabilities of want that c lacks
func (c Capability) Missing(want Capability) Capability {
	return want &^ c
}

// String returns a comma separated list of capability names
func (c Capability) String() string {
	if c == CapNone {
		return "none"
	}
	var names []string
	for _, cn := range capabilityNames {
		if c&cn.cap != 0 {
			names = append(names, cn.name)
		}
	}
	return strings.Join(names, ",")
}

// ElementRef points at an element by CSS selector and match index.
// Index 0 is the first match in document order.
type ElementRef struct {
	Selector string `json:"selector"`
	Index    int    `json:"index,omitempty"`
}

// CSS returns a reference to the first element matching selector
func CSS(selector string) ElementRef {
	return ElementRef{Selector: selector}
}

// ByID returns a reference to the element with the given id (no leading #)
func ByID(id string) ElementRef {
	return ElementRef{Selector: "#" + id}
}

// IsZero returns true if the reference points at nothing
func (r ElementRef) IsZero() bool {
	return r.Selector == ""
}

// Describe returns a human-readable description like css=h1 or css=li[2]
func (r ElementRef) Describe() string {
	if r.Index > 0 {
		return "css=" + r.Selector + "[" + strconv.Itoa(r.Index) + "]"
	}
	return "css=" + r.Selector
}
