package client

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/templates"
)

var views = template.Must(template.New("").Parse(`
{{define "base.html"}}<html><body>{{block "content" .}}{{end}}</body></html>{{end}}
{{define "home.html"}}{{template "base.html" .}}{{end}}
`))

func newApp() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_ = templates.Execute(w, r, views, "home.html", nil)
	})
	r.Get("/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1 id="title">Sign in</h1><input id="id_keep" type="checkbox" checked></body></html>`))
	})
	r.Get("/old/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Get("/set/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		w.Write([]byte("ok"))
	})
	r.Get("/whoami/", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		if err != nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(c.Value))
	})
	return r
}

func TestInProcess_GetCapturesTemplates(t *testing.T) {
	d := NewInProcess(newApp())

	page, err := d.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", page.StatusCode)
	}
	if !page.HasTemplate("home.html") || !page.HasTemplate("base.html") {
		t.Errorf("Templates = %v, want home.html and base.html", page.Templates)
	}
	if d.Page() != page {
		t.Error("Get should make the response the current page")
	}
}

func TestInProcess_GetDoesNotFollow(t *testing.T) {
	d := NewInProcess(newApp())

	page, err := d.Get(context.Background(), "/old/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if page.StatusCode != http.StatusFound {
		t.Errorf("StatusCode = %d, want 302", page.StatusCode)
	}
	if page.Location != "/" {
		t.Errorf("Location = %q, want '/'", page.Location)
	}
}

func TestInProcess_Follow(t *testing.T) {
	d := NewInProcess(newApp())

	page, err := d.Follow(context.Background(), "/old/")
	if err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", page.StatusCode)
	}
	if !strings.HasSuffix(page.URL, "/") || !page.HasTemplate("home.html") {
		t.Errorf("followed page = %s %v", page.URL, page.Templates)
	}
}

func TestInProcess_TemplateNamesKeptWhole(t *testing.T) {
	odd := template.Must(template.New("").Parse(`{{define "cards, list.html"}}cards{{end}}{{define "page.html"}}{{template "cards, list.html"}}{{end}}`))
	r := chi.NewRouter()
	r.Get("/cards/", func(w http.ResponseWriter, r *http.Request) {
		_ = templates.Execute(w, r, odd, "page.html", nil)
	})
	r.Get("/to-cards/", func(w http.ResponseWriter, r *http.Request) {
		templates.Record(r.Context(), "home.html")
		http.Redirect(w, r, "/cards/", http.StatusFound)
	})
	d := NewInProcess(r)

	page, err := d.Get(context.Background(), "/cards/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if want := []string{"page.html", "cards, list.html"}; !reflect.DeepEqual(page.Templates, want) {
		t.Errorf("Templates = %q, want %q", page.Templates, want)
	}

	page, err = d.Follow(context.Background(), "/to-cards/")
	if err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if page.HasTemplate("home.html") || !page.HasTemplate("cards, list.html") {
		t.Errorf("followed Templates = %q, want only the final page's", page.Templates)
	}
}

func TestInProcess_CookiesPersist(t *testing.T) {
	d := NewInProcess(newApp())
	ctx := context.Background()

	if _, err := d.Get(ctx, "/set/"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	page, err := d.Get(ctx, "/whoami/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(page.Body) != "abc" {
		t.Errorf("body = %q, want cookie value 'abc'", page.Body)
	}
}

func TestRemote_Get(t *testing.T) {
	server := httptest.NewServer(templates.Expose(newApp()))
	defer server.Close()

	d, err := NewRemote(server.URL + "/")
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}

	page, err := d.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !page.HasTemplate("home.html") {
		t.Errorf("Templates = %v, want home.html via header", page.Templates)
	}
}

func TestNewRemote_RejectsRelative(t *testing.T) {
	_, err := NewRemote("/just/a/path")
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}
}

func TestRemote_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	d, _ := NewRemote(server.URL)
	d.SetPageLoadTimeout(20 * time.Millisecond)

	_, err := d.Get(context.Background(), "/")
	if !errors.Is(err, core.ErrPageLoadTimeout) {
		t.Errorf("expected page_load_timeout, got %v", err)
	}
}

func TestQueries(t *testing.T) {
	d := NewInProcess(newApp())
	ctx := context.Background()

	if _, err := d.Text(ctx, core.CSS("h1")); !errors.Is(err, core.ErrNoPage) {
		t.Errorf("query before any request should be no_page, got %v", err)
	}

	if err := d.Open(ctx, "/login/"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	text, err := d.Text(ctx, core.CSS("h1"))
	if err != nil || text != "Sign in" {
		t.Errorf("Text = %q, %v", text, err)
	}
	id, ok, err := d.Attribute(ctx, core.CSS("h1"), "id")
	if err != nil || !ok || id != "title" {
		t.Errorf("Attribute = %q, %v, %v", id, ok, err)
	}
	present, err := d.IsPresent(ctx, "#id_keep")
	if err != nil || !present {
		t.Errorf("IsPresent = %v, %v", present, err)
	}
	checked, err := d.IsChecked(ctx, core.ByID("id_keep"))
	if err != nil || !checked {
		t.Errorf("IsChecked = %v, %v", checked, err)
	}
	found, err := d.IsTextPresent(ctx, "Sign")
	if err != nil || !found {
		t.Errorf("IsTextPresent = %v, %v", found, err)
	}
	source, _ := d.PageSource(ctx)
	if !strings.Contains(source, "Sign in") {
		t.Errorf("PageSource = %q", source)
	}
}

func TestInteractionUnsupported(t *testing.T) {
	d := NewInProcess(newApp())
	ctx := context.Background()

	if err := d.Click(ctx, core.CSS("button")); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("Click should be unsupported, got %v", err)
	}
	if err := d.Type(ctx, core.ByID("id_email"), "x"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("Type should be unsupported, got %v", err)
	}
	if d.Capabilities().Has(core.CapClick) || d.Capabilities().Has(core.CapType) {
		t.Error("client must not advertise interactive capabilities")
	}
	if !d.Capabilities().Has(core.CapTemplates) {
		t.Error("client must advertise template capture")
	}
}
