// Package config handles the terrain.yaml workspace configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/urls"
)

// Defaults.
const (
	DefaultSeleniumURL = "http://localhost:4444/wd/hub"
	DefaultBrowser     = "firefox"
	DefaultTimeout     = 5 // seconds
	DefaultLogoutRoute = "auth_logout"
	DefaultFormat      = "pretty"
	DefaultLogFile     = "terrain.log"
)

// Browser start modes.
const (
	StartLazy  = "lazy"  // on the first "Using selenium"
	StartEager = "eager" // before the first scenario
)

var validate = validator.New()

// Config represents the workspace configuration (terrain.yaml).
type Config struct {
	// Feature selection
	Features []string `yaml:"features"` // Feature files or directories
	Tags     string   `yaml:"tags"`     // godog tag expression, e.g. "@smoke && ~@wip"
	Format   string   `yaml:"format" validate:"omitempty,oneof=pretty progress cucumber junit events"`
	Strict   bool     `yaml:"strict"` // Fail on undefined or pending steps

	// Application under test
	BaseURL     string            `yaml:"base_url" validate:"omitempty,url"`
	Timeout     int               `yaml:"timeout" validate:"gte=0"` // Page-load timeout in seconds
	Routes      map[string]string `yaml:"routes"`
	RoutesFile  string            `yaml:"routes_file"`
	LogoutRoute string            `yaml:"logout_route"`

	Selenium Selenium `yaml:"selenium"`
	Redirect Redirect `yaml:"redirect"`

	// Output
	Output    string              `yaml:"output"` // Report directory; default <home>/reports
	Artifacts core.ArtifactConfig `yaml:"artifacts"`
	Log       Log                 `yaml:"log"`

	// dir is where the file was loaded from; relative paths resolve against it.
	dir string
}

// Selenium configures the WebDriver browser.
type Selenium struct {
	URL      string `yaml:"url" validate:"required,url"`
	Browser  string `yaml:"browser" validate:"required"`
	Headless bool   `yaml:"headless"`
	Start    string `yaml:"start" validate:"omitempty,oneof=lazy eager"`
}

// Redirect tunes the redirect DOM comparison.
type Redirect struct {
	// Ignore lists regexes masked out of both documents before comparing.
	Ignore []string `yaml:"ignore"`
}

// Log configures the run log.
type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error off"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no terrain.yaml exists.
func Default() *Config {
	return &Config{
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		LogoutRoute: DefaultLogoutRoute,
		Selenium: Selenium{
			URL:     DefaultSeleniumURL,
			Browser: DefaultBrowser,
			Start:   StartLazy,
		},
		Artifacts: core.DefaultArtifactConfig(),
		Log:       Log{Level: "info", File: DefaultLogFile},
	}
}

// Load loads configuration from a file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithMessagef("parse %s: %v", path, err).WithCause(err)
	}
	cfg.dir = filepath.Dir(path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir looks for terrain.yaml or terrain.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"terrain.yaml", "terrain.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found
	cfg := Default()
	cfg.dir = dir
	return cfg, nil
}

// Validate checks field constraints and that every regex compiles.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return core.ErrInvalidConfig.WithMessage("invalid configuration: " + strings.Join(msgs, "; ")).WithCause(err)
		}
		return core.ErrInvalidConfig.WithCause(err)
	}
	if _, err := c.RedirectPatterns(); err != nil {
		return err
	}
	return nil
}

// Dir returns the directory relative paths are resolved against.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

// Path resolves p against the config directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// PageLoadTimeout returns the timeout as a duration.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RedirectPatterns compiles redirect.ignore.
func (c *Config) RedirectPatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.Redirect.Ignore))
	for _, expr := range c.Redirect.Ignore {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, core.ErrInvalidConfig.WithMessagef("redirect.ignore: invalid regex %q", expr).WithCause(err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Resolver builds the URL resolver from routes_file and routes.
// Inline routes override routes from the file.
func (c *Config) Resolver() (*urls.Resolver, error) {
	r := urls.New()
	if c.RoutesFile != "" {
		loaded, err := urls.LoadFile(c.Path(c.RoutesFile))
		if err != nil {
			return nil, err
		}
		r = loaded
	}
	for name, path := range c.Routes {
		if err := r.Register(name, path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// OutputDir returns the report directory, defaulting under the home directory.
func (c *Config) OutputDir() string {
	if c.Output != "" {
		return c.Path(c.Output)
	}
	return GetReportsDir()
}

// FeaturePaths returns the configured feature paths resolved against the
// config directory, or the config directory itself when none are set.
func (c *Config) FeaturePaths() []string {
	if len(c.Features) == 0 {
		return []string{c.Dir()}
	}
	out := make([]string, len(c.Features))
	for i, p := range c.Features {
		out[i] = c.Path(p)
	}
	return out
}
