package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/terrain/pkg/core"
)

func TestGenerateHTML(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder("accounts", dir, RunnerInfo{Version: "dev"})

	r.StartScenario("s1", "sign in page", "accounts/features/login.feature", "accounts", nil)
	r.StartStep("s1", `I access the url "/accounts/login/"`, "Given ", "client")
	r.EndStep("s1", core.StatusPassed, nil, nil)
	r.EndScenario("s1", nil)

	r.StartScenario("s2", "broken header", "accounts/features/login.feature", "accounts", nil)
	r.StartStep("s2", `I see the header1 "Nope"`, "Then ", "browser")
	stepErr := core.ErrTextMismatch.WithMessage("header1 is <Sign in>")
	r.EndStep("s2", core.StatusFailed, stepErr, []core.Attachment{
		core.NewScreenshotAttachment("step-0.png", []byte("png")),
	})
	r.EndScenario("s2", stepErr)
	r.Finish()

	out := filepath.Join(dir, "custom.html")
	if err := GenerateHTML(dir, HTMLConfig{OutputPath: out, Title: "Accounts run"}); err != nil {
		t.Fatalf("GenerateHTML failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	html := string(data)

	for _, want := range []string{
		"<title>Accounts run</title>",
		"sign in page",
		"broken header",
		"header1 is &lt;Sign in&gt;",
		`src="assets/s2/step-0.png"`,
		"Pass rate <strong>50%</strong>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "report.html")); err != nil {
		t.Errorf("Finish should write report.html: %v", err)
	}
}

func TestGenerateHTML_EmbedAssets(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder("accounts", dir, RunnerInfo{})
	r.StartScenario("s1", "shot", "accounts/features/a.feature", "accounts", nil)
	r.StartStep("s1", "Using selenium", "Given ", "browser")
	r.EndStep("s1", core.StatusFailed, core.ErrUnsupported, []core.Attachment{
		core.NewScreenshotAttachment("step-0.png", []byte("png")),
	})
	r.EndScenario("s1", core.ErrUnsupported)
	r.Finish()

	if err := GenerateHTML(dir, HTMLConfig{EmbedAssets: true}); err != nil {
		t.Fatalf("GenerateHTML failed: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "report.html"))
	if !strings.Contains(string(data), "data:image/png;base64,") {
		t.Error("embedded screenshot should be a data url")
	}
	if !strings.Contains(string(data), "<title>Acceptance Report</title>") {
		t.Error("default title missing")
	}
}

func TestGenerateHTML_MissingReport(t *testing.T) {
	if err := GenerateHTML(t.TempDir(), HTMLConfig{}); err == nil {
		t.Error("GenerateHTML without report.json should fail")
	}
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status core.StepStatus
		want   string
	}{
		{core.StatusPassed, "passed"},
		{core.StatusFailed, "failed"},
		{core.StatusErrored, "failed"},
		{core.StatusUndefined, "failed"},
		{core.StatusSkipped, "skipped"},
		{core.StatusPending, "pending"},
	}
	for _, tt := range tests {
		if got := statusClass(tt.status); got != tt.want {
			t.Errorf("statusClass(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{95 * time.Second, "1m 35s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
