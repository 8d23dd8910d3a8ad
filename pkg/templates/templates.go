// Package templates lets an application under test report which templates
// rendered a response, so acceptance tests can assert on them.
//
// In-process, the client backend attaches a Recorder to each request context
// and reads it back after the handler returns. Against a remote server, wrap
// the app with Expose and the names travel in the Header response header.
package templates

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"text/template/parse"
)

// Header carries rendered template names, comma separated, when Expose is used.
const Header = "X-Rendered-Templates"

type recorderKey struct{}

// Recorder collects template names in render order.
type Recorder struct {
	mu    sync.Mutex
	names []string
}

// Record appends a template name.
func (r *Recorder) Record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

// Reset forgets every recorded name.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = nil
}

// Names returns a copy of the recorded names.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// WithRecorder returns a context carrying rec.
func WithRecorder(ctx context.Context, rec *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, rec)
}

// FromContext returns the recorder in ctx, or nil.
func FromContext(ctx context.Context) *Recorder {
	rec, _ := ctx.Value(recorderKey{}).(*Recorder)
	return rec
}

// Record notes that name was rendered for the request carrying ctx.
// It is a no-op outside tests.
func Record(ctx context.Context, name string) {
	if rec := FromContext(ctx); rec != nil {
		rec.Record(name)
	}
}

// recordFunc is called at the top of every instrumented template.
const recordFunc = "terrainRecordTemplate"

var (
	instrumentedMu sync.Mutex
	instrumented   = map[*template.Template]*template.Template{}
)

// Execute executes name from t into w and records every template that
// actually renders, name included, in the order they start.
//
// t must not be executed outside Execute: html/template cannot be cloned
// once it has run, and without a clone only name itself is recorded.
func Execute(w io.Writer, r *http.Request, t *template.Template, name string, data interface{}) error {
	master, err := instrument(t)
	rec := FromContext(r.Context())
	if rec == nil {
		return t.ExecuteTemplate(w, name, data)
	}
	if err != nil {
		rec.Record(name)
		return t.ExecuteTemplate(w, name, data)
	}

	run, err := master.Clone()
	if err != nil {
		rec.Record(name)
		return t.ExecuteTemplate(w, name, data)
	}
	run.Funcs(template.FuncMap{recordFunc: func(n string) string {
		rec.Record(n)
		return ""
	}})
	return run.ExecuteTemplate(w, name, data)
}

// instrument returns a never-executed copy of t whose templates each begin
// with a call to recordFunc. Copies are cached per t.
func instrument(t *template.Template) (*template.Template, error) {
	instrumentedMu.Lock()
	defer instrumentedMu.Unlock()
	if m, ok := instrumented[t]; ok {
		return m, nil
	}

	m, err := t.Clone()
	if err != nil {
		return nil, err
	}
	noop := template.FuncMap{recordFunc: func(string) string { return "" }}
	m.Funcs(noop)
	for _, tt := range m.Templates() {
		if tt.Name() == "" || tt.Tree == nil || tt.Tree.Root == nil {
			continue
		}
		node, err := recordNode(tt.Name(), noop)
		if err != nil {
			return nil, err
		}
		tt.Tree.Root.Nodes = append([]parse.Node{node}, tt.Tree.Root.Nodes...)
	}
	instrumented[t] = m
	return m, nil
}

// recordNode builds the {{recordFunc "name"}} action.
func recordNode(name string, funcs template.FuncMap) (parse.Node, error) {
	trees, err := parse.Parse("record", fmt.Sprintf("{{%s %q}}", recordFunc, name), "", "", map[string]interface{}(funcs))
	if err != nil {
		return nil, err
	}
	return trees["record"].Root.Nodes[0], nil
}

// Expose wraps next so recorded template names are sent in the Header
// response header. Names are flushed when the handler first writes.
func Expose(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := FromContext(r.Context())
		if rec == nil {
			rec = &Recorder{}
			r = r.WithContext(WithRecorder(r.Context(), rec))
		}
		next.ServeHTTP(&exposingWriter{ResponseWriter: w, rec: rec}, r)
	})
}

type exposingWriter struct {
	http.ResponseWriter
	rec     *Recorder
	flushed bool
}

func (w *exposingWriter) flush() {
	if w.flushed {
		return
	}
	w.flushed = true
	if names := w.rec.Names(); len(names) > 0 {
		w.Header().Set(Header, strings.Join(names, ","))
	}
}

func (w *exposingWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *exposingWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

// ParseHeader splits a Header value into names.
func ParseHeader(values []string) []string {
	var names []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
