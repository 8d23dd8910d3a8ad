// Package forms holds the form definitions steps check against, keyed by
// application. Forms come from Go structs registered in code or from a
// forms.yaml file beside an application's features.
package forms

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/devicelab-dev/terrain/pkg/core"
)

var (
	validate = validator.New()
	identRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func init() {
	_ = validate.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identRe.MatchString(fl.Field().String())
	})
}

// Form is a named set of fields.
type Form struct {
	Name   string  `yaml:"name" json:"name" validate:"required,ident"`
	Fields []Field `yaml:"fields" json:"fields" validate:"dive"`
}

// Field is one form input. Its DOM id is "id_" + Name.
type Field struct {
	Name     string `yaml:"name" json:"name" validate:"required,ident"`
	Required bool   `yaml:"required" json:"required"`
}

// RequiredFields returns the names of required fields in declaration order.
func (f Form) RequiredFields() []string {
	var out []string
	for _, field := range f.Fields {
		if field.Required {
			out = append(out, field.Name)
		}
	}
	return out
}

// InputID returns the DOM id an application renders for the field.
func InputID(field string) string {
	return "id_" + field
}

// FriendlyName converts a sentence-style form name ("user registration form")
// to the form's type name ("UserRegistrationForm"): every word is title-cased
// and spaces are removed.
func FriendlyName(name string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			prevLetter = false
			continue
		case unicode.IsLetter(r):
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		default:
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// FromStruct builds a Form from a struct value or pointer.
// The form name is the type name. Field names come from the `form` tag,
// falling back to the snake_case field name; `form:"-"` skips a field.
// A field is required when its `validate` tag contains "required".
func FromStruct(v interface{}) (Form, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return Form{}, core.ErrInvalidConfig.WithMessagef("form must be a struct, got %T", v)
	}

	form := Form{Name: t.Name()}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get("form")
		if name == "-" {
			continue
		}
		if name == "" {
			name = snakeCase(sf.Name)
		}
		form.Fields = append(form.Fields, Field{
			Name:     name,
			Required: hasRule(sf.Tag.Get("validate"), "required"),
		})
	}
	return form, nil
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if strings.TrimSpace(r) == rule {
			return true
		}
	}
	return false
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Registry stores forms per application.
type Registry struct {
	mu   sync.RWMutex
	apps map[string]map[string]Form
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{apps: make(map[string]map[string]Form)}
}

// Add validates f and stores it under app, replacing any form of the same name.
func (r *Registry) Add(app string, f Form) error {
	if app == "" {
		return core.ErrInvalidConfig.WithMessage("form app name is empty")
	}
	if err := validate.Struct(f); err != nil {
		return core.ErrInvalidConfig.WithMessagef("invalid form %q for app %s: %v", f.Name, app, err).WithCause(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.apps[app] == nil {
		r.apps[app] = make(map[string]Form)
	}
	r.apps[app][f.Name] = f
	return nil
}

// Register adds a struct form (see FromStruct) or a Form value under app.
func (r *Registry) Register(app string, form interface{}) error {
	if f, ok := form.(Form); ok {
		return r.Add(app, f)
	}
	f, err := FromStruct(form)
	if err != nil {
		return err
	}
	return r.Add(app, f)
}

// HasApp reports whether any form is registered for app.
func (r *Registry) HasApp(app string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.apps[app]) > 0
}

// Lookup returns the form called name for app.
func (r *Registry) Lookup(app, name string) (Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	forms, ok := r.apps[app]
	if !ok || len(forms) == 0 {
		return Form{}, core.ErrNoForms.WithMessagef("no forms loaded for app %q", app)
	}
	f, ok := forms[name]
	if !ok {
		return Form{}, core.ErrFormNotFound.WithMessagef("form %q not found in app %q", name, app)
	}
	return f, nil
}

// Forms returns app's forms sorted by name.
func (r *Registry) Forms(app string) []Form {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Form, 0, len(r.apps[app]))
	for _, f := range r.apps[app] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Apps returns the applications with registered forms, sorted.
func (r *Registry) Apps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.apps))
	for app := range r.apps {
		out = append(out, app)
	}
	sort.Strings(out)
	return out
}

// Clone returns a registry holding a copy of r's forms. Forms added to
// either registry afterwards are not seen by the other.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for app, forms := range r.apps {
		out.apps[app] = make(map[string]Form, len(forms))
		for name, f := range forms {
			out.apps[app][name] = f
		}
	}
	return out
}

// Default is the registry Register adds to.
var Default = NewRegistry()

// Register adds a form to the Default registry. Typically called from init.
func Register(app string, form interface{}) {
	if err := Default.Register(app, form); err != nil {
		panic(fmt.Sprintf("forms: register %T for %s: %v", form, app, err))
	}
}
