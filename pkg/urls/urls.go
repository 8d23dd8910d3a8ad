// Package urls resolves route names to paths, the way an application's
// router reverses a named route.
package urls

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/terrain/pkg/core"
)

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z_][a-zA-Z0-9_]*\}`)

// Resolver maps route names to URL paths.
// Paths may contain {name} placeholders filled by Reverse arguments.
type Resolver struct {
	mu     sync.RWMutex
	routes map[string]string
}

// New creates an empty resolver.
func New() *Resolver {
	return &Resolver{routes: make(map[string]string)}
}

// FromMap creates a resolver from name -> path pairs.
func FromMap(routes map[string]string) (*Resolver, error) {
	r := New()
	for name, path := range routes {
		if err := r.Register(name, path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadFile reads a YAML mapping of route names to paths.
func LoadFile(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes: %w", err)
	}
	var routes map[string]string
	if err := yaml.Unmarshal(data, &routes); err != nil {
		return nil, core.ErrInvalidConfig.WithMessagef("parse routes %s: %v", path, err).WithCause(err)
	}
	return FromMap(routes)
}

// Register adds or replaces a named route.
func (r *Resolver) Register(name, path string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrInvalidConfig.WithMessage("route name is empty")
	}
	if !strings.HasPrefix(path, "/") && !strings.Contains(path, "://") {
		return core.ErrInvalidConfig.WithMessagef("route %q: path %q must start with / or be absolute", name, path)
	}
	r.mu.Lock()
	r.routes[name] = path
	r.mu.Unlock()
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Resolver) MustRegister(name, path string) *Resolver {
	if err := r.Register(name, path); err != nil {
		panic(err)
	}
	return r
}

// Reverse returns the path for name with placeholders filled in order.
func (r *Resolver) Reverse(name string, args ...string) (string, error) {
	r.mu.RLock()
	path, ok := r.routes[name]
	r.mu.RUnlock()
	if !ok {
		return "", core.ErrRouteNotFound.WithMessagef("no route named %q", name)
	}

	holes := placeholderRe.FindAllStringIndex(path, -1)
	if len(holes) != len(args) {
		return "", core.ErrRouteNotFound.WithMessagef("route %q takes %d arguments, got %d", name, len(holes), len(args))
	}
	if len(args) == 0 {
		return path, nil
	}

	var b strings.Builder
	last := 0
	for i, h := range holes {
		b.WriteString(path[last:h[0]])
		b.WriteString(args[i])
		last = h[1]
	}
	b.WriteString(path[last:])
	return b.String(), nil
}

// Names returns the registered route names, sorted.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Routes returns a copy of the name -> path table.
func (r *Resolver) Routes() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.routes))
	for k, v := range r.routes {
		out[k] = v
	}
	return out
}
