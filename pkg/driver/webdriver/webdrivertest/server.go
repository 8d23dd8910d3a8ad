// Package webdrivertest provides an in-memory WebDriver server for tests.
//
// The fake "browser" loads pages over HTTP, parses them with goquery and
// answers the subset of the W3C protocol the webdriver package speaks.
// Clicking a submit button posts its form, clicking a link follows it and
// clicking a checkbox toggles it. JavaScript is not executed; the two
// scripts the driver sends (readyState and text search) are recognised.
package webdrivertest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/go-chi/chi/v5"
)

const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// 1x1 transparent PNG
var blankPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

// Server is a fake WebDriver endpoint.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	sessions map[string]*session
	nextID   int
	calls    []string
}

type session struct {
	id       string
	browser  string
	http     *http.Client
	url      *url.URL
	doc      *goquery.Document
	elements map[string]*goquery.Selection
	nextElem int
	pageLoad int64
}

// NewServer starts a fake WebDriver server. Call Close when done.
func NewServer() *Server {
	s := &Server{sessions: make(map[string]*session)}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/session", s.newSession)
	r.Route("/session/{sid}", func(r chi.Router) {
		r.Delete("/", s.deleteSession)
		r.Post("/url", s.navigate)
		r.Get("/url", s.currentURL)
		r.Post("/timeouts", s.timeouts)
		r.Post("/element", s.findElement)
		r.Post("/elements", s.findElements)
		r.Get("/element/{eid}/text", s.elementText)
		r.Get("/element/{eid}/attribute/{name}", s.elementAttribute)
		r.Get("/element/{eid}/selected", s.elementSelected)
		r.Post("/element/{eid}/click", s.elementClick)
		r.Post("/element/{eid}/clear", s.elementClear)
		r.Post("/element/{eid}/value", s.elementValue)
		r.Post("/execute/sync", s.executeSync)
		r.Get("/screenshot", s.screenshot)
		r.Get("/source", s.source)
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "unknown command", req.Method+" "+req.URL.Path)
	})

	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Calls returns every request received as "METHOD /path".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// PageLoadTimeout returns the last page-load timeout (ms) set on any session.
func (s *Server) PageLoadTimeout() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ms int64
	for _, sess := range s.sessions {
		ms = sess.pageLoad
	}
	return ms
}

// CurrentURL returns the URL loaded in the most recent session.
func (s *Server) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *session
	for _, sess := range s.sessions {
		if latest == nil || sess.id > latest.id {
			latest = sess
		}
	}
	if latest == nil || latest.url == nil {
		return ""
	}
	return latest.url.String()
}

func (s *Server) newSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Capabilities struct {
			AlwaysMatch map[string]interface{} `json:"alwaysMatch"`
		} `json:"capabilities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	browser, _ := body.Capabilities.AlwaysMatch["browserName"].(string)

	jar, _ := cookiejar.New(nil)
	s.mu.Lock()
	s.nextID++
	sess := &session{
		id:       fmt.Sprintf("session-%03d", s.nextID),
		browser:  browser,
		http:     &http.Client{Jar: jar},
		elements: make(map[string]*goquery.Selection),
		pageLoad: 300000,
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	writeValue(w, map[string]interface{}{
		"sessionId":    sess.id,
		"capabilities": map[string]interface{}{"browserName": browser},
	})
}

// withSession serializes commands per server and resolves the session.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chi.URLParam(r, "sid")]
	if !ok {
		writeError(w, http.StatusNotFound, "invalid session id", chi.URLParam(r, "sid"))
		return
	}
	fn(sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		delete(s.sessions, sess.id)
		writeValue(w, nil)
	})
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	s.withSession(w, r, func(sess *session) {
		if err := sess.load(http.MethodGet, body.URL, nil); err != nil {
			writeError(w, http.StatusInternalServerError, "unknown error", err.Error())
			return
		}
		writeValue(w, nil)
	})
}

func (s *Server) currentURL(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		if sess.url == nil {
			writeValue(w, "about:blank")
			return
		}
		writeValue(w, sess.url.String())
	})
}

func (s *Server) timeouts(w http.ResponseWriter, r *http.Request) {
	var body map[string]int64
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	s.withSession(w, r, func(sess *session) {
		if ms, ok := body["pageLoad"]; ok {
			sess.pageLoad = ms
		}
		writeValue(w, nil)
	})
}

type locator struct {
	Using string `json:"using"`
	Value string `json:"value"`
}

func (s *Server) find(w http.ResponseWriter, r *http.Request) (*session, *goquery.Selection, bool) {
	var loc locator
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return nil, nil, false
	}
	if loc.Using != "css selector" {
		writeError(w, http.StatusBadRequest, "invalid argument", "unsupported locator strategy "+loc.Using)
		return nil, nil, false
	}
	sel, err := cascadia.Compile(loc.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid selector", err.Error())
		return nil, nil, false
	}

	sess, ok := s.sessions[chi.URLParam(r, "sid")]
	if !ok {
		writeError(w, http.StatusNotFound, "invalid session id", chi.URLParam(r, "sid"))
		return nil, nil, false
	}
	if sess.doc == nil {
		return sess, &goquery.Selection{}, true
	}
	return sess, sess.doc.FindMatcher(sel), true
}

func (s *Server) findElement(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, matches, ok := s.find(w, r)
	if !ok {
		return
	}
	if matches.Length() == 0 {
		writeError(w, http.StatusNotFound, "no such element", "no element matches the selector")
		return
	}
	writeValue(w, map[string]string{elementKey: sess.register(matches.First())})
}

func (s *Server) findElements(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, matches, ok := s.find(w, r)
	if !ok {
		return
	}
	refs := []map[string]string{}
	matches.Each(func(_ int, el *goquery.Selection) {
		refs = append(refs, map[string]string{elementKey: sess.register(el)})
	})
	writeValue(w, refs)
}

func (s *Server) withElement(w http.ResponseWriter, r *http.Request, fn func(*session, *goquery.Selection)) {
	s.withSession(w, r, func(sess *session) {
		el, ok := sess.elements[chi.URLParam(r, "eid")]
		if !ok {
			writeError(w, http.StatusNotFound, "stale element reference", chi.URLParam(r, "eid"))
			return
		}
		fn(sess, el)
	})
}

func (s *Server) elementText(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(_ *session, el *goquery.Selection) {
		writeValue(w, strings.TrimSpace(el.Text()))
	})
}

func (s *Server) elementAttribute(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(_ *session, el *goquery.Selection) {
		if v, ok := el.Attr(chi.URLParam(r, "name")); ok {
			writeValue(w, v)
			return
		}
		writeValue(w, nil)
	})
}

func (s *Server) elementSelected(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(_ *session, el *goquery.Selection) {
		_, checked := el.Attr("checked")
		_, selected := el.Attr("selected")
		writeValue(w, checked || selected)
	})
}

func (s *Server) elementClick(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(sess *session, el *goquery.Selection) {
		if err := sess.click(el); err != nil {
			writeError(w, http.StatusInternalServerError, "unknown error", err.Error())
			return
		}
		writeValue(w, nil)
	})
}

func (s *Server) elementClear(w http.ResponseWriter, r *http.Request) {
	s.withElement(w, r, func(_ *session, el *goquery.Selection) {
		if goquery.NodeName(el) == "textarea" {
			el.SetText("")
		} else {
			el.SetAttr("value", "")
		}
		writeValue(w, nil)
	})
}

func (s *Server) elementValue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	s.withElement(w, r, func(_ *session, el *goquery.Selection) {
		if goquery.NodeName(el) == "textarea" {
			el.SetText(el.Text() + body.Text)
		} else {
			el.SetAttr("value", el.AttrOr("value", "")+body.Text)
		}
		writeValue(w, nil)
	})
}

func (s *Server) executeSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Script string        `json:"script"`
		Args   []interface{} `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	s.withSession(w, r, func(sess *session) {
		switch {
		case strings.Contains(body.Script, "document.readyState"):
			writeValue(w, "complete")
		case strings.Contains(body.Script, "innerText.indexOf") && len(body.Args) == 1:
			needle, _ := body.Args[0].(string)
			found := sess.doc != nil && strings.Contains(sess.doc.Find("body").Text(), needle)
			writeValue(w, found)
		default:
			writeError(w, http.StatusInternalServerError, "javascript error", "script not supported by fake browser")
		}
	})
}

func (s *Server) screenshot(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(*session) {
		writeValue(w, base64.StdEncoding.EncodeToString(blankPNG))
	})
}

func (s *Server) source(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		if sess.doc == nil {
			writeValue(w, "<html><head></head><body></body></html>")
			return
		}
		html, _ := goquery.OuterHtml(sess.doc.Selection)
		writeValue(w, html)
	})
}

func (sess *session) register(el *goquery.Selection) string {
	for id, known := range sess.elements {
		if known.Get(0) == el.Get(0) {
			return id
		}
	}
	sess.nextElem++
	id := "el-" + strconv.Itoa(sess.nextElem)
	sess.elements[id] = el
	return id
}

// load fetches a page, following redirects, and replaces the document.
func (sess *session) load(method, rawURL string, form url.Values) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if sess.url != nil {
		target = sess.url.ResolveReference(target)
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	} else if form != nil {
		target.RawQuery = form.Encode()
	}

	req, err := http.NewRequest(method, target.String(), body)
	if err != nil {
		return err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := sess.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	sess.url = resp.Request.URL
	sess.doc = doc
	sess.elements = make(map[string]*goquery.Selection)
	return nil
}

func (sess *session) click(el *goquery.Selection) error {
	switch name := goquery.NodeName(el); {
	case name == "a":
		if href, ok := el.Attr("href"); ok {
			return sess.load(http.MethodGet, href, nil)
		}
		return nil
	case name == "input" && (el.AttrOr("type", "") == "checkbox" || el.AttrOr("type", "") == "radio"):
		if _, checked := el.Attr("checked"); checked && el.AttrOr("type", "") == "checkbox" {
			el.RemoveAttr("checked")
		} else {
			el.SetAttr("checked", "checked")
		}
		return nil
	case isSubmit(el):
		form := el.Closest("form")
		if form.Length() == 0 {
			return nil
		}
		method := strings.ToUpper(form.AttrOr("method", http.MethodGet))
		action := form.AttrOr("action", "")
		if action == "" {
			action = sess.url.String()
		}
		return sess.load(method, action, formValues(form, el))
	}
	return nil
}

func isSubmit(el *goquery.Selection) bool {
	switch goquery.NodeName(el) {
	case "button":
		t := el.AttrOr("type", "submit")
		return t == "submit"
	case "input":
		t := el.AttrOr("type", "")
		return t == "submit" || t == "image"
	}
	return false
}

// formValues collects successful controls the way a browser submits them.
func formValues(form, submitter *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, el *goquery.Selection) {
		if _, disabled := el.Attr("disabled"); disabled {
			return
		}
		name := el.AttrOr("name", "")
		switch goquery.NodeName(el) {
		case "textarea":
			values.Add(name, el.Text())
		case "select":
			opt := el.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = el.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		default:
			switch el.AttrOr("type", "text") {
			case "checkbox", "radio":
				if _, checked := el.Attr("checked"); checked {
					values.Add(name, el.AttrOr("value", "on"))
				}
			case "submit", "image", "button", "reset", "file":
			default:
				values.Add(name, el.AttrOr("value", ""))
			}
		}
	})
	if name, ok := submitter.Attr("name"); ok {
		values.Add(name, submitter.AttrOr("value", ""))
	}
	return values
}

func writeValue(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": value})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"value": map[string]interface{}{
			"error":   code,
			"message": message,
		},
	})
}
