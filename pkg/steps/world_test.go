package steps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/driver/mock"
	"github.com/devicelab-dev/terrain/pkg/forms"
	"github.com/devicelab-dev/terrain/pkg/urls"
)

const loginPage = `<html><body>
<h1 id="title">Sign in</h1>
<input id="id_username" type="text">
<input id="id_password" type="password">
<input id="id_remember" type="checkbox">
<button id="submit" type="submit">Sign in</button>
</body></html>`

const rejectedPage = `<html><body><ul class="errorlist"><li>required</li></ul></body></html>`

func newTestSuite(t *testing.T, browser *mock.Driver) *Suite {
	t.Helper()

	registry := forms.NewRegistry()
	err := registry.Add("accounts", forms.Form{
		Name: "LoginForm",
		Fields: []forms.Field{
			{Name: "username", Required: true},
			{Name: "password", Required: true},
			{Name: "remember"},
		},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := registry.Add("accounts", forms.Form{
		Name:   "SignupForm",
		Fields: []forms.Field{{Name: "email", Required: true}},
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	s, err := New(Config{
		Handler: newApp(),
		Browser: browser,
		Routes: urls.New().
			MustRegister("login", "/accounts/login/").
			MustRegister("auth_logout", "/accounts/logout/"),
		Forms:   registry,
		FormsFS: fstest.MapFS{},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func scenario(uri string, steps ...string) *godog.Scenario {
	sc := &godog.Scenario{Id: "sc-1", Uri: uri, Name: "test"}
	for i, text := range steps {
		sc.Steps = append(sc.Steps, &messages.PickleStep{Id: string(rune('a' + i)), Text: text})
	}
	return sc
}

func newWorld(t *testing.T, s *Suite, steps ...string) *World {
	t.Helper()
	w := &World{suite: s}
	if err := w.begin(scenario("accounts/features/login.feature", steps...)); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	return w
}

func TestNew_RequiresApplication(t *testing.T) {
	_, err := New(Config{Browser: mock.New(mock.Config{})})
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}
	_, err = New(Config{BaseURL: "/relative", Browser: mock.New(mock.Config{})})
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("relative base url: expected invalid_config, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{Handler: newApp(), Browser: mock.New(mock.Config{})})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", s.cfg.Timeout, DefaultTimeout)
	}
	if s.cfg.LogoutRoute != DefaultLogoutRoute {
		t.Errorf("LogoutRoute = %q", s.cfg.LogoutRoute)
	}
	if s.cfg.Forms != forms.Default {
		t.Error("Forms should default to forms.Default")
	}
}

func TestTokenSource(t *testing.T) {
	ts := newTokenSource()
	frozen := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ts.now = func() time.Time { return frozen }

	a, b := ts.Next(), ts.Next()
	if a == b {
		t.Errorf("tokens within one clock tick must differ, both %q", a)
	}
	if len(a) != 32 {
		t.Errorf("token %q should be 32 hex characters", a)
	}

	got := ts.Substitute("user-<<rnd>>@example.com/<<rnd>>")
	if strings.Contains(got, RandomMarker) {
		t.Fatalf("marker left in %q", got)
	}
	parts := strings.Split(strings.TrimPrefix(got, "user-"), "@example.com/")
	if len(parts) != 2 || parts[0] != parts[1] {
		t.Errorf("every marker in one value should get the same token, got %q", got)
	}
	if ts.Substitute("plain") != "plain" {
		t.Error("values without a marker must be unchanged")
	}
}

func TestWorld_ClientPage(t *testing.T) {
	w := newWorld(t, newTestSuite(t, mock.New(mock.Config{})))
	ctx := context.Background()

	if err := w.hitTemplate("home.html"); !errors.Is(err, core.ErrNoPage) {
		t.Errorf("hitTemplate before any page: expected no_page, got %v", err)
	}
	if err := w.thatItsIDIs(ctx, "welcome"); !errors.Is(err, core.ErrNoElement) {
		t.Errorf("thatItsIDIs before a header: expected no_element, got %v", err)
	}

	if err := w.accessURL(ctx, "/"); err != nil {
		t.Fatalf("accessURL failed: %v", err)
	}
	if err := w.hitTemplate("home.html"); err != nil {
		t.Errorf("hitTemplate(home.html): %v", err)
	}
	if err := w.hitTemplate("footer.html"); err != nil {
		t.Errorf("hitTemplate(footer.html): %v", err)
	}
	if err := w.hitTemplate("login.html"); !errors.Is(err, core.ErrTemplateNotRendered) {
		t.Errorf("hitTemplate(login.html): expected template_not_rendered, got %v", err)
	}

	if err := w.seeHeader(ctx, "1", "Welcome"); err != nil {
		t.Errorf("seeHeader: %v", err)
	}
	if err := w.thatItsIDIs(ctx, "welcome"); err != nil {
		t.Errorf("thatItsIDIs: %v", err)
	}
	if err := w.thatItsIDIs(ctx, "title"); !errors.Is(err, core.ErrAttributeMismatch) {
		t.Errorf("thatItsIDIs(title): expected attribute_mismatch, got %v", err)
	}
	if err := w.seeHeader(ctx, "1", "Goodbye"); !errors.Is(err, core.ErrTextMismatch) {
		t.Errorf("seeHeader(Goodbye): expected text_mismatch, got %v", err)
	}
	if err := w.seeHeader(ctx, "3", "anything"); !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("seeHeader(h3): expected element_not_found, got %v", err)
	}

	if err := w.ifResultSeeText(ctx, "pass", "Test app"); err != nil {
		t.Errorf("ifResultSeeText: %v", err)
	}
	if err := w.ifResultSeeText(ctx, "pass", "absent"); !errors.Is(err, core.ErrTextNotPresent) {
		t.Errorf("ifResultSeeText(absent): expected text_not_present, got %v", err)
	}
	if err := w.ifResultSeeText(ctx, "fail", "absent"); err != nil {
		t.Errorf("ifResultSeeText for a failing result must be a no-op, got %v", err)
	}
}

func TestWorld_AccessURLStatus(t *testing.T) {
	w := newWorld(t, newTestSuite(t, mock.New(mock.Config{})))

	err := w.accessURL(context.Background(), "/missing/")
	if !errors.Is(err, core.ErrStatusMismatch) {
		t.Fatalf("expected status_mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should name the status: %v", err)
	}

	if err := w.accessURL(context.Background(), "/old-home/"); !errors.Is(err, core.ErrStatusMismatch) {
		t.Errorf("redirects are not followed: expected status_mismatch, got %v", err)
	}
}

func TestWorld_AccessReversedURL(t *testing.T) {
	w := newWorld(t, newTestSuite(t, mock.New(mock.Config{})))
	ctx := context.Background()

	if err := w.accessReversedURL(ctx, "login"); err != nil {
		t.Fatalf("accessReversedURL failed: %v", err)
	}
	if err := w.hitTemplate("login.html"); err != nil {
		t.Errorf("hitTemplate: %v", err)
	}
	if err := w.accessReversedURL(ctx, "nope"); !errors.Is(err, core.ErrRouteNotFound) {
		t.Errorf("expected route_not_found, got %v", err)
	}
}

func TestWorld_ExpectRedirect(t *testing.T) {
	w := newWorld(t, newTestSuite(t, mock.New(mock.Config{})))
	ctx := context.Background()

	if err := w.expectRedirect(ctx, "/old-home/", "/"); err != nil {
		t.Errorf("expectRedirect(/old-home/): %v", err)
	}
	if !w.Page().HasTemplate("home.html") {
		t.Error("the redirected page should become current")
	}

	err := w.expectRedirect(ctx, "/to-login/", "/")
	if !errors.Is(err, core.ErrDOMMismatch) {
		t.Errorf("expected dom_mismatch, got %v", err)
	}
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) && execErr.Details["diff"] == nil {
		t.Error("dom_mismatch should carry a diff excerpt")
	}

	if err := w.expectRedirect(ctx, "/", "/"); !errors.Is(err, core.ErrRedirectExpected) {
		t.Errorf("expected redirect_expected, got %v", err)
	}
	if err := w.expectRedirect(ctx, "/old-home/", "/missing/"); !errors.Is(err, core.ErrStatusMismatch) {
		t.Errorf("target must answer 200: expected status_mismatch, got %v", err)
	}
}

func TestWorld_NotLoggedIn(t *testing.T) {
	s := newTestSuite(t, mock.New(mock.Config{}))
	w := newWorld(t, s)

	if err := w.notLoggedIn(context.Background()); err != nil {
		t.Errorf("notLoggedIn: %v", err)
	}

	s.cfg.LogoutRoute = "missing_logout"
	if err := w.notLoggedIn(context.Background()); !errors.Is(err, core.ErrRouteNotFound) {
		t.Errorf("expected route_not_found, got %v", err)
	}
}

func TestWorld_RequiredFields(t *testing.T) {
	w := newWorld(t, newTestSuite(t, mock.New(mock.Config{})))
	ctx := context.Background()

	if err := w.accessURL(ctx, "/accounts/login/"); err != nil {
		t.Fatalf("accessURL failed: %v", err)
	}
	if err := w.requiredFieldsPresent(ctx, "login form"); err != nil {
		t.Errorf("requiredFieldsPresent(login form): %v", err)
	}
	if err := w.requiredFieldsPresent(ctx, "signup form"); !errors.Is(err, core.ErrFieldMissing) {
		t.Errorf("requiredFieldsPresent(signup form): expected field_missing, got %v", err)
	}
	if err := w.requiredFieldsPresent(ctx, "password reset form"); !errors.Is(err, core.ErrFormNotFound) {
		t.Errorf("expected form_not_found, got %v", err)
	}

	w.app = "blog"
	if err := w.requiredFieldsPresent(ctx, "login form"); !errors.Is(err, core.ErrNoForms) {
		t.Errorf("expected no_forms, got %v", err)
	}
}

func TestWorld_BrowserMode(t *testing.T) {
	browser := mock.New(mock.Config{
		BackendName: "browser",
		Pages:       map[string]string{"/accounts/login/": loginPage},
	})
	s := newTestSuite(t, browser)
	w := newWorld(t, s, `Using selenium`, `Click on "#submit" button`)
	ctx := context.Background()

	if w.Backend().Name() != "client" {
		t.Fatalf("scenarios start on the client, got %s", w.Backend().Name())
	}

	if err := w.usingSelenium(ctx); err != nil {
		t.Fatalf("usingSelenium failed: %v", err)
	}
	if err := w.usingSelenium(ctx); err != nil {
		t.Fatalf("second usingSelenium failed: %v", err)
	}
	if n := browser.Count("Start"); n != 1 {
		t.Errorf("browser started %d times, want once per run", n)
	}
	if !w.UsingBrowser() || w.Backend() != core.Backend(browser) {
		t.Fatal("Using selenium should switch to the browser")
	}
	if browser.Timeout() != DefaultTimeout {
		t.Errorf("browser timeout = %v, want %v", browser.Timeout(), DefaultTimeout)
	}
	if err := w.aTimeoutOf("12"); err != nil {
		t.Fatalf("aTimeoutOf failed: %v", err)
	}
	if browser.Timeout() != 12*time.Second {
		t.Errorf("browser timeout = %v, want 12s", browser.Timeout())
	}
	if err := w.aTimeoutOf("soon"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}

	if err := w.accessURL(ctx, "/accounts/login/"); err != nil {
		t.Fatalf("accessURL failed: %v", err)
	}
	if browser.URL() != "/accounts/login/" {
		t.Errorf("browser URL = %q", browser.URL())
	}
	if !w.Page().HasTemplate("login.html") {
		t.Error("the client should fetch the page too")
	}

	if err := w.checkField(ctx, "id_remember", "checked"); err != nil {
		t.Fatalf("checkField failed: %v", err)
	}
	if err := w.checkField(ctx, "id_remember", "checked"); err != nil {
		t.Fatalf("checkField failed: %v", err)
	}
	if n := browser.Count("Click"); n != 1 {
		t.Errorf("Click called %d times, an already checked box must not be clicked again", n)
	}
	if err := w.checkField(ctx, "id_remember", "unchecked"); err != nil {
		t.Fatalf("checkField failed: %v", err)
	}
	if n := browser.Count("Click"); n != 2 {
		t.Errorf("Click called %d times, want 2", n)
	}

	if err := w.fillField(ctx, "id_username", "user-<<rnd>>"); err != nil {
		t.Fatalf("fillField failed: %v", err)
	}
	value, _, _ := browser.Page().Attribute(core.ByID("id_username"), "value")
	if !strings.HasPrefix(value, "user-") || strings.Contains(value, RandomMarker) || len(value) != len("user-")+32 {
		t.Errorf("typed value = %q", value)
	}

	if err := w.clickButton(ctx, "#submit"); err != nil {
		t.Errorf("clickButton: %v", err)
	}
	if err := w.submissionResult(ctx, "pass"); err != nil {
		t.Errorf("submissionResult(pass): %v", err)
	}
	if err := w.submissionResult(ctx, "fail"); !errors.Is(err, core.ErrErrorListMismatch) {
		t.Errorf("submissionResult(fail): expected errorlist_mismatch, got %v", err)
	}
	browser.SetHTML(rejectedPage)
	if err := w.submissionResult(ctx, "fail"); err != nil {
		t.Errorf("submissionResult(fail) on a rejected form: %v", err)
	}
	if err := w.submissionResult(ctx, "maybe"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}

	if err := w.finishedUsingSelenium(); err != nil {
		t.Fatalf("finishedUsingSelenium failed: %v", err)
	}
	if w.UsingBrowser() || w.Backend().Name() != "client" {
		t.Error("Finished using selenium should switch back to the client")
	}
}

func TestWorld_ModeResetsPerScenario(t *testing.T) {
	browser := mock.New(mock.Config{})
	s := newTestSuite(t, browser)
	w := newWorld(t, s)

	if err := w.usingSelenium(context.Background()); err != nil {
		t.Fatalf("usingSelenium failed: %v", err)
	}
	if err := w.aTimeoutOf("30"); err != nil {
		t.Fatalf("aTimeoutOf failed: %v", err)
	}
	if err := w.begin(scenario("accounts/features/login.feature")); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if w.UsingBrowser() {
		t.Error("a new scenario should start on the client")
	}
	if w.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want reset to %v", w.timeout, DefaultTimeout)
	}
}

func TestWorld_ClientCannotInteract(t *testing.T) {
	w := newWorld(t, newTestSuite(t, mock.New(mock.Config{})))
	ctx := context.Background()

	if err := w.accessURL(ctx, "/accounts/login/"); err != nil {
		t.Fatalf("accessURL failed: %v", err)
	}
	if err := w.clickButton(ctx, "#submit"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("clickButton: expected unsupported, got %v", err)
	}
	if err := w.fillField(ctx, "id_username", "bob"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("fillField: expected unsupported, got %v", err)
	}
	// Already unchecked: no click needed, so the client can answer.
	if err := w.checkField(ctx, "id_remember", "unchecked"); err != nil {
		t.Errorf("checkField: %v", err)
	}
	if err := w.submissionResult(ctx, "pass"); err != nil {
		t.Errorf("submissionResult on the client: %v", err)
	}
}

func TestPreflight(t *testing.T) {
	s := newTestSuite(t, mock.New(mock.Config{}))
	w := &World{suite: s}

	err := w.begin(scenario("accounts/features/login.feature",
		`I access the url "/accounts/login/"`,
		`Fill the field "id_username" with "bob"`,
	))
	if !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "Fill the field") {
		t.Errorf("error should name the offending step: %v", err)
	}

	err = w.begin(scenario("accounts/features/login.feature",
		`Using selenium`,
		`Fill the field "id_username" with "bob"`,
		`Finished using selenium`,
		`I see the header1 "Sign in"`,
	))
	if err != nil {
		t.Errorf("browser steps after Using selenium should pass preflight, got %v", err)
	}

	s.cfg.SkipPreflight = true
	if err := w.begin(scenario("accounts/features/login.feature", `Click on "#x" button`)); err != nil {
		t.Errorf("SkipPreflight should disable the check, got %v", err)
	}
}

func TestSleepFor(t *testing.T) {
	s := newTestSuite(t, mock.New(mock.Config{}))
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	w := newWorld(t, s)

	if err := w.sleepFor(context.Background(), "3"); err != nil {
		t.Fatalf("sleepFor failed: %v", err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Errorf("slept = %v, want [3s]", slept)
	}
	if err := w.sleepFor(context.Background(), "x"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid_config, got %v", err)
	}
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("a cancelled sleep should return immediately")
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}
}

func TestAppFromFeature(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"accounts/features/login.feature", "accounts"},
		{"/src/project/blog/features/post.feature", "blog"},
		{"login.feature", ""},
		{"features/login.feature", ""},
	}
	for _, tt := range tests {
		if got := AppFromFeature(tt.uri); got != tt.want {
			t.Errorf("AppFromFeature(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestKeywordFor(t *testing.T) {
	tests := map[string]string{
		"Context": "Given",
		"Action":  "When",
		"Outcome": "Then",
		"Unknown": "*",
	}
	for in, want := range tests {
		if got := keywordFor(in); got != want {
			t.Errorf("keywordFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		status godog.StepResultStatus
		err    error
		want   core.StepStatus
	}{
		{"passed", godog.StepPassed, nil, core.StatusPassed},
		{"assertion", godog.StepFailed, core.ErrTextMismatch, core.StatusFailed},
		{"infrastructure", godog.StepFailed, core.ErrServerUnreachable, core.StatusErrored},
		{"failed without error", godog.StepFailed, nil, core.StatusFailed},
		{"skipped", godog.StepSkipped, nil, core.StatusSkipped},
		{"undefined", godog.StepUndefined, nil, core.StatusUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.status, tt.err); got != tt.want {
				t.Errorf("statusFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFirstDifference(t *testing.T) {
	got := firstDifference("<p>same</p><b>one</b>", "<p>same</p><i>two</i>")
	if !strings.HasPrefix(got, "at byte 12:") {
		t.Errorf("firstDifference = %q", got)
	}
	if got := firstDifference("abc", "abcdef"); !strings.HasPrefix(got, "at byte 3:") {
		t.Errorf("prefix difference = %q", got)
	}
}

func TestRulesCoverEveryPattern(t *testing.T) {
	rules := Rules()
	if len(rules) != len(Patterns()) {
		t.Fatalf("%d rules for %d patterns", len(rules), len(Patterns()))
	}
	samples := []string{
		`Using selenium`,
		`Finished using selenium`,
		`a timeout of "10"`,
		`I access the url "/"`,
		`I access the reversed url "home"`,
		`I expect to be redirected from "/a/" to "/b/"`,
		`I hit the template "home.html"`,
		`I see the header1 "Welcome"`,
		`that its id is "title"`,
		`If the result "pass" is pass then I see the text "ok"`,
		`I am not logged in`,
		`I see that the form "login form" required fields are present`,
		`Fill the field "id_username" with "bob"`,
		`Sleep for "1"`,
		`Click on "#submit" button`,
		`Check the field "id_remember" with "checked"`,
		`Result of form submission should be "pass"`,
	}
	for i, rule := range rules {
		if !rule.Pattern.MatchString(samples[i]) {
			t.Errorf("pattern %s does not match %q", rule.Pattern, samples[i])
		}
	}
}

func TestWorld_ClientUnavailable(t *testing.T) {
	s := newTestSuite(t, mock.New(mock.Config{}))
	s.cfg.Handler = nil
	s.cfg.BaseURL = "::not a url"
	w := &World{suite: s}
	ctx := context.Background()

	if w.Backend() != nil {
		t.Error("Backend() should be nil without a client")
	}
	if err := w.accessURL(ctx, "/"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("accessURL: expected invalid_config, got %v", err)
	}
	if err := w.seeHeader(ctx, "1", "Sign in"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("seeHeader: expected invalid_config, got %v", err)
	}
	if err := w.expectRedirect(ctx, "/old-home/", "/"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expectRedirect: expected invalid_config, got %v", err)
	}
}

func TestNew_FormsAreSuiteLocal(t *testing.T) {
	forms.Register("contact", forms.Form{
		Name:   "ContactForm",
		Fields: []forms.Field{{Name: "email", Required: true}},
	})
	fsys := fstest.MapFS{
		"shop/forms.yaml": {Data: []byte("forms:\n  - name: OrderForm\n    fields:\n      - name: quantity\n        required: true\n")},
	}

	first, err := New(Config{Handler: newApp(), Browser: mock.New(mock.Config{}), FormsFS: fsys})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if app := first.enterFeature("shop/features/order.feature"); app != "shop" {
		t.Fatalf("enterFeature() = %q, want shop", app)
	}
	if _, err := first.cfg.Forms.Lookup("shop", "OrderForm"); err != nil {
		t.Errorf("OrderForm should be loaded: %v", err)
	}
	if _, err := first.cfg.Forms.Lookup("contact", "ContactForm"); err != nil {
		t.Errorf("registered forms should seed the suite: %v", err)
	}
	if forms.Default.HasApp("shop") {
		t.Error("forms.yaml contents leaked into forms.Default")
	}

	second, err := New(Config{Handler: newApp(), Browser: mock.New(mock.Config{}), FormsFS: fstest.MapFS{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if second.cfg.Forms.HasApp("shop") {
		t.Error("forms loaded by an earlier suite carried over")
	}
}
