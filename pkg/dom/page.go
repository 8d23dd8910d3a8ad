// Package dom holds a fetched page: its parsed document tree and the
// names of the templates that rendered it.
package dom

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/devicelab-dev/terrain/pkg/core"
)

// Page is a parsed HTTP response.
type Page struct {
	URL        string   // Final request URL
	StatusCode int      // Response status
	Location   string   // Location header of a redirect response
	Templates  []string // Template names reported by the app, in render order
	Body       []byte   // Raw response body

	doc *goquery.Document
}

// Parse parses an HTML body into a Page.
func Parse(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Page{Body: body, doc: doc}, nil
}

// MustParse is Parse for tests and fixtures; it panics on error.
func MustParse(body string) *Page {
	p, err := Parse([]byte(body))
	if err != nil {
		panic(err)
	}
	return p
}

// Document returns the underlying goquery document.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// Select returns every element matching the CSS selector.
// An invalid selector is an error rather than a panic.
func (p *Page) Select(selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return p.doc.FindMatcher(m), nil
}

// Find returns the single element ref points at.
func (p *Page) Find(ref core.ElementRef) (*goquery.Selection, error) {
	sel, err := p.Select(ref.Selector)
	if err != nil {
		return nil, core.ErrElementNotFound.WithCause(err)
	}
	if sel.Length() <= ref.Index {
		return nil, core.ErrElementNotFound.WithMessagef("No element matching %s", ref.Describe())
	}
	return sel.Eq(ref.Index), nil
}

// Text returns the text of the referenced element.
func (p *Page) Text(ref core.ElementRef) (string, error) {
	sel, err := p.Find(ref)
	if err != nil {
		return "", err
	}
	return sel.Text(), nil
}

// Attribute returns an attribute of the referenced element.
func (p *Page) Attribute(ref core.ElementRef, name string) (string, bool, error) {
	sel, err := p.Find(ref)
	if err != nil {
		return "", false, err
	}
	value, ok := sel.Attr(name)
	return value, ok, nil
}

// IsPresent reports whether any element matches selector.
func (p *Page) IsPresent(selector string) (bool, error) {
	sel, err := p.Select(selector)
	if err != nil {
		return false, err
	}
	return sel.Length() > 0, nil
}

// IsChecked reports whether the referenced input carries the checked attribute.
func (p *Page) IsChecked(ref core.ElementRef) (bool, error) {
	sel, err := p.Find(ref)
	if err != nil {
		return false, err
	}
	_, checked := sel.Attr("checked")
	return checked, nil
}

// HasText reports whether text appears in the page body.
func (p *Page) HasText(text string) bool {
	body := p.doc.Find("body")
	if body.Length() == 0 {
		body = p.doc.Selection
	}
	return strings.Contains(body.Text(), text)
}

// HasTemplate reports whether name is among the rendered templates.
func (p *Page) HasTemplate(name string) bool {
	for _, t := range p.Templates {
		if t == name {
			return true
		}
	}
	return false
}

// Render serializes the parsed tree back to HTML.
// Two pages with the same tree render to the same string regardless of
// insignificant differences in the original bytes (attribute quoting, etc.).
func (p *Page) Render() (string, error) {
	var buf bytes.Buffer
	for _, n := range p.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
	}
	return buf.String(), nil
}

// Canonical renders the page and masks every match of ignore.
func (p *Page) Canonical(ignore []*regexp.Regexp) (string, error) {
	s, err := p.Render()
	if err != nil {
		return "", err
	}
	return Mask(s, ignore), nil
}

// Mask replaces every match of each pattern with a fixed marker.
func Mask(s string, ignore []*regexp.Regexp) string {
	for _, re := range ignore {
		s = re.ReplaceAllString(s, "<<masked>>")
	}
	return s
}
