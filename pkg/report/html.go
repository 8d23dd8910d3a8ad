package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/terrain/pkg/core"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath  string // Path to write the HTML file
	EmbedAssets bool   // Embed screenshots as base64 (makes file larger but portable)
	Title       string // Report title (default: "Acceptance Report")
}

// GenerateHTML generates an HTML report from the report directory.
func GenerateHTML(reportDir string, cfg HTMLConfig) error {
	rep, err := ReadReport(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	if cfg.Title == "" {
		cfg.Title = "Acceptance Report"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(reportDir, "report.html")
	}

	html, err := renderHTML(buildHTMLData(rep, reportDir, cfg))
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	Report        *Report
	Scenarios     []ScenarioHTMLData
	TotalDuration string
	PassRate      float64
}

// ScenarioHTMLData contains scenario data formatted for HTML.
type ScenarioHTMLData struct {
	core.ScenarioResult
	StatusClass string
	DurationStr string
	Steps       []StepHTMLData
}

// StepHTMLData contains step data formatted for HTML.
type StepHTMLData struct {
	core.StepResult
	StatusClass string
	DurationStr string
	Screenshot  template.URL
	PageSource  string
}

func buildHTMLData(rep *Report, reportDir string, cfg HTMLConfig) HTMLData {
	scenarios := make([]ScenarioHTMLData, len(rep.Scenarios))
	for i, sc := range rep.Scenarios {
		steps := make([]StepHTMLData, len(sc.Steps))
		for j, st := range sc.Steps {
			step := StepHTMLData{
				StepResult:  st,
				StatusClass: statusClass(st.Status),
				DurationStr: formatDuration(st.Duration),
			}
			for _, att := range st.Attachments {
				switch att.Name {
				case core.AttachmentScreenshot:
					if cfg.EmbedAssets {
						step.Screenshot = template.URL(loadAsBase64(filepath.Join(reportDir, att.Path)))
					} else {
						step.Screenshot = template.URL(filepath.ToSlash(att.Path))
					}
				case core.AttachmentPageSource:
					step.PageSource = filepath.ToSlash(att.Path)
				}
			}
			steps[j] = step
		}
		scenarios[i] = ScenarioHTMLData{
			ScenarioResult: sc,
			StatusClass:    statusClass(sc.Status),
			DurationStr:    formatDuration(sc.Duration),
			Steps:          steps,
		}
	}

	var passRate float64
	if rep.TotalScenarios > 0 {
		passRate = float64(rep.PassedScenarios) / float64(rep.TotalScenarios) * 100
	}

	return HTMLData{
		Title:         cfg.Title,
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		Report:        rep,
		Scenarios:     scenarios,
		TotalDuration: formatDuration(rep.Duration),
		PassRate:      passRate,
	}
}

func statusClass(s core.StepStatus) string {
	switch {
	case s == core.StatusPassed:
		return "passed"
	case s.IsFailure():
		return "failed"
	case s == core.StatusSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --failed: #ef4444;
            --skipped: #eab308;
            --pending: #6b7280;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.5; padding: 24px; }
        .summary { display: flex; gap: 24px; margin: 16px 0; }
        .scenario { border: 1px solid var(--border-color); border-radius: 6px; margin-bottom: 12px; }
        .scenario > summary { padding: 8px 12px; cursor: pointer; }
        .steps { list-style: none; padding: 0 12px 12px; }
        .steps li { padding: 4px 0; border-top: 1px solid var(--border-color); }
        .backend { color: var(--pending); font-size: 12px; }
        .error { color: var(--failed); white-space: pre-wrap; font-family: monospace; }
        .passed { color: var(--passed); }
        .failed { color: var(--failed); }
        .skipped { color: var(--skipped); }
        .pending { color: var(--pending); }
        img { max-width: 480px; display: block; margin-top: 4px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div class="meta">Run {{.Report.RunID}} &middot; generated {{.GeneratedAt}}</div>
    <div class="summary">
        <div>Total <strong>{{.Report.TotalScenarios}}</strong></div>
        <div class="passed">Passed <strong>{{.Report.PassedScenarios}}</strong></div>
        <div class="failed">Failed <strong>{{.Report.FailedScenarios}}</strong></div>
        <div class="skipped">Skipped <strong>{{.Report.SkippedScenarios}}</strong></div>
        <div>Pass rate <strong>{{printf "%.0f" .PassRate}}%</strong></div>
        <div>Duration <strong>{{.TotalDuration}}</strong></div>
    </div>
    {{range .Scenarios}}
    <details class="scenario"{{if eq .StatusClass "failed"}} open{{end}}>
        <summary><span class="{{.StatusClass}}">&#9679;</span> {{.Name}} <span class="backend">{{.Feature}} &middot; {{.DurationStr}}</span></summary>
        <ol class="steps">
        {{range .Steps}}
            <li>
                <span class="{{.StatusClass}}">{{.Status}}</span>
                <strong>{{.Keyword}}</strong> {{.Text}}
                <span class="backend">{{.Backend}} &middot; {{.DurationStr}}</span>
                {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
                {{if .Screenshot}}<img src="{{.Screenshot}}" alt="screenshot">{{end}}
                {{if .PageSource}}<a href="{{.PageSource}}">page source</a>{{end}}
            </li>
        {{end}}
        </ol>
        {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    </details>
    {{end}}
</body>
</html>
`
