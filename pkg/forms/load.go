package forms

import (
	"errors"
	"io/fs"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/terrain/pkg/core"
)

// FileName is the per-application form definition file.
const FileName = "forms.yaml"

// File is the on-disk layout of forms.yaml:
//
//	forms:
//	  - name: LoginForm
//	    fields:
//	      - name: username
//	        required: true
type File struct {
	Forms []Form `yaml:"forms" validate:"dive"`
}

// Parse decodes and validates a forms.yaml document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, core.ErrInvalidConfig.WithMessagef("parse %s: %v", FileName, err).WithCause(err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, core.ErrInvalidConfig.WithMessagef("invalid %s: %v", FileName, err).WithCause(err)
	}
	return &f, nil
}

// LoadFS reads dir/forms.yaml from fsys and registers its forms under app.
// It returns the number of forms loaded. A missing file is ErrNoForms.
func (r *Registry) LoadFS(fsys fs.FS, app, dir string) (int, error) {
	name := path.Join(dir, FileName)
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, core.ErrNoForms.WithMessagef("no %s for app %q", name, app)
		}
		return 0, core.ErrInvalidConfig.WithMessagef("read %s: %v", name, err).WithCause(err)
	}

	f, err := Parse(data)
	if err != nil {
		return 0, err
	}
	for _, form := range f.Forms {
		if err := r.Add(app, form); err != nil {
			return 0, err
		}
	}
	return len(f.Forms), nil
}

// LoadFile reads a forms.yaml file from disk and registers its forms under app.
func (r *Registry) LoadFile(app, file string) (int, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, core.ErrNoForms.WithMessagef("no %s for app %q", file, app)
		}
		return 0, core.ErrInvalidConfig.WithMessagef("read %s: %v", file, err).WithCause(err)
	}
	f, err := Parse(data)
	if err != nil {
		return 0, err
	}
	for _, form := range f.Forms {
		if err := r.Add(app, form); err != nil {
			return 0, err
		}
	}
	return len(f.Forms), nil
}
