// Package core provides the backend interface, error model and result types for terrain.
package core

import (
	"context"
)

// Attachment represents a debug artifact captured during step execution
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, page_source
	ContentType string `json:"contentType"` // MIME type: image/png, text/html
	Path        string `json:"path"`        // File path relative to output directory
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentPageSource = "page_source"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeHTML = "text/html"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// NewPageSourceAttachment creates a page source attachment
func NewPageSourceAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentPageSource,
		ContentType: ContentTypeHTML,
		Path:        path,
		Body:        data,
	}
}

// ArtifactConfig controls when and what artifacts are captured
type ArtifactConfig struct {
	// When to capture
	CaptureOnFailure bool `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	CaptureOnSuccess bool `yaml:"captureOnSuccess" json:"captureOnSuccess"` // Default: false

	// What to capture
	Screenshot bool `yaml:"screenshot" json:"screenshot"` // Default: true
	PageSource bool `yaml:"pageSource" json:"pageSource"` // Default: true
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		CaptureOnSuccess: false,
		Screenshot:       true,
		PageSource:       true,
	}
}

// ShouldCapture returns true if artifacts should be captured for the given status
func (c ArtifactConfig) ShouldCapture(status StepStatus) bool {
	switch status {
	case StatusFailed, StatusErrored:
		return c.CaptureOnFailure
	case StatusPassed:
		return c.CaptureOnSuccess
	default:
		return false
	}
}

// Capture collects the configured artifacts from src.
// Failures to capture are ignored; a missing screenshot must not mask the step error.
func (c ArtifactConfig) Capture(ctx context.Context, src ArtifactSource, prefix string) []Attachment {
	if src == nil {
		return nil
	}
	var out []Attachment
	if c.Screenshot {
		if data, err := src.Screenshot(ctx); err == nil && len(data) > 0 {
			out = append(out, NewScreenshotAttachment(prefix+"-screenshot.png", data))
		}
	}
	if c.PageSource {
		if source, err := src.PageSource(ctx); err == nil && source != "" {
			out = append(out, NewPageSourceAttachment(prefix+"-source.html", []byte(source)))
		}
	}
	return out
}
