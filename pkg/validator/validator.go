// Package validator checks feature files before execution.
// It parses every scenario, tracks which backend each step runs on, and
// reports steps that need a capability the active backend lacks (for example
// clicking while still on the HTTP client) as well as steps no rule matches.
package validator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/devicelab-dev/terrain/pkg/core"
)

// Mode is the backend a scenario is using.
type Mode int

// Modes. ModeUnchanged marks rules that do not switch backends.
const (
	ModeUnchanged Mode = iota
	ModeClient
	ModeBrowser
)

func (m Mode) String() string {
	switch m {
	case ModeClient:
		return "client"
	case ModeBrowser:
		return "browser"
	default:
		return "unchanged"
	}
}

// Rule ties a step sentence to what it needs from the backend.
type Rule struct {
	Pattern *regexp.Regexp
	Needs   core.Capability
	Switch  Mode // backend the step switches to, if any
}

// Step is a step to check, with its source position.
type Step struct {
	Text string
	Line int64
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	Line    int64
	Step    string
	Message string
	Err     error // category sentinel, if any
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Result contains the validation result.
type Result struct {
	// Files is the list of feature file paths checked.
	Files []string
	// Scenarios is the number of scenarios checked after tag filtering.
	Scenarios int
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator validates feature files against a rule set.
type Validator struct {
	rules       []Rule
	client      core.Capability
	browser     core.Capability
	includeTags []string
	excludeTags []string
	strict      bool
}

// New creates a new Validator. client and browser are the capabilities of
// the two backends.
func New(rules []Rule, client, browser core.Capability) *Validator {
	return &Validator{
		rules:   rules,
		client:  client,
		browser: browser,
	}
}

// WithTags restricts checking to scenarios carrying any include tag and
// none of the exclude tags. Tags may be given with or without "@".
func (v *Validator) WithTags(includeTags, excludeTags []string) *Validator {
	v.includeTags = normalizeTags(includeTags)
	v.excludeTags = normalizeTags(excludeTags)
	return v
}

// Strict makes steps no rule matches an error.
func (v *Validator) Strict(strict bool) *Validator {
	v.strict = strict
	return v
}

// CheckSteps walks steps in order starting on the client backend and
// returns an error for every step the active backend cannot run.
func (v *Validator) CheckSteps(file string, steps []Step) []error {
	var errs []error
	mode := ModeClient

	for _, st := range steps {
		rule, ok := v.match(st.Text)
		if !ok {
			if v.strict {
				errs = append(errs, &ValidationError{
					File:    file,
					Line:    st.Line,
					Step:    st.Text,
					Message: fmt.Sprintf("undefined step %q", st.Text),
				})
			}
			continue
		}
		if rule.Switch != ModeUnchanged {
			mode = rule.Switch
			continue
		}

		caps := v.client
		if mode == ModeBrowser {
			caps = v.browser
		}
		if missing := caps.Missing(rule.Needs); missing != core.CapNone {
			errs = append(errs, &ValidationError{
				File:    file,
				Line:    st.Line,
				Step:    st.Text,
				Message: fmt.Sprintf("step needs %s, which the %s backend lacks: %q (add \"Using selenium\" before it)", missing, mode, st.Text),
				Err:     core.ErrUnsupported,
			})
		}
	}
	return errs
}

func (v *Validator) match(text string) (Rule, bool) {
	for _, r := range v.rules {
		if r.Pattern.MatchString(text) {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate validates a feature file or a directory of them.
func (v *Validator) Validate(path string) *Result {
	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("cannot access: %v", err),
		})
		return result
	}

	if !info.IsDir() {
		v.validateFile(os.DirFS(filepath.Dir(path)), filepath.Base(path), path, result)
		return result
	}

	fsys := os.DirFS(path)
	files, err := collectFeatureFiles(fsys)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("failed to scan directory: %v", err),
		})
		return result
	}
	for _, file := range files {
		v.validateFile(fsys, file, filepath.Join(path, filepath.FromSlash(file)), result)
	}
	return result
}

// ValidateFS validates every .feature file in fsys.
func (v *Validator) ValidateFS(fsys fs.FS) *Result {
	result := &Result{}
	files, err := collectFeatureFiles(fsys)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    ".",
			Message: fmt.Sprintf("failed to scan: %v", err),
		})
		return result
	}
	for _, file := range files {
		v.validateFile(fsys, file, file, result)
	}
	return result
}

// collectFeatureFiles finds all .feature files, in lexical order.
func collectFeatureFiles(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".feature") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (v *Validator) validateFile(fsys fs.FS, name, display string, result *Result) {
	scenarios, err := ParseFeature(fsys, name)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    display,
			Message: fmt.Sprintf("parse error: %v", err),
		})
		return
	}
	result.Files = append(result.Files, display)

	for _, sc := range scenarios {
		if !shouldInclude(sc.Tags, v.includeTags, v.excludeTags) {
			continue
		}
		result.Scenarios++
		result.Errors = append(result.Errors, v.CheckSteps(display, sc.Steps)...)
	}
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(t, "@"))
	}
	return out
}

func shouldInclude(tags, include, exclude []string) bool {
	has := make(map[string]bool, len(tags))
	for _, t := range tags {
		has[strings.TrimPrefix(t, "@")] = true
	}
	for _, t := range exclude {
		if has[t] {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, t := range include {
		if has[t] {
			return true
		}
	}
	return false
}
