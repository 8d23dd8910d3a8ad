package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cucumber/godog/colors"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/terrain/pkg/config"
	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/executor"
	"github.com/devicelab-dev/terrain/pkg/logger"
	"github.com/devicelab-dev/terrain/pkg/report"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run feature files against the application",
	ArgsUsage: "[feature-file-or-folder]...",
	Description: `Run Gherkin feature files. Without arguments the features listed in
terrain.yaml are run.

Reports are generated in the output directory:
  - Default: <output>/<timestamp>/ (output from terrain.yaml, else $TERRAIN_HOME/reports)
  - With --flatten: <output>/ (no timestamp subfolder)

Examples:
  terrain run accounts/features
  terrain run --tags '@smoke && ~@wip' accounts/features blog/features
  terrain --base-url http://localhost:8000 run --format progress`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "tags",
			Aliases: []string{"t"},
			Usage:   "Tag expression selecting scenarios, e.g. '@smoke && ~@wip'",
			EnvVars: []string{"TERRAIN_TAGS"},
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: pretty, progress, cucumber, junit, events",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail on undefined or pending steps",
		},
		&cli.BoolFlag{
			Name:  "stop-on-failure",
			Usage: "Stop at the first failed scenario",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory for reports",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create a timestamp subfolder",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the browser headless",
		},
		&cli.BoolFlag{
			Name:  "eager-browser",
			Usage: "Start the browser before the first scenario",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "Initial page-load timeout in seconds",
		},
	},
	Action: runFeatures,
}

func runFeatures(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyRunFlags(c, cfg)
	if cfg.BaseURL == "" {
		return core.ErrMissingRequired.WithMessage("a base url is required: set base_url in terrain.yaml or pass --base-url")
	}

	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = cfg.FeaturePaths()
	}

	base := cfg.OutputDir()
	if c.IsSet("output") {
		base = c.String("output")
	}
	outputDir := resolveOutputDir(base, c.Bool("flatten"), time.Now())
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := initLogging(cfg, filepath.Join(outputDir, cfg.Log.File)); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	logger.Info("=== Test run started ===")
	logger.Info("Output directory: %s", outputDir)
	logger.Info("Base URL: %s", cfg.BaseURL)
	logger.Info("Browser: %s at %s", cfg.Selenium.Browser, cfg.Selenium.URL)

	sc, err := stepsConfig(cfg)
	if err != nil {
		return err
	}

	var out io.Writer = colors.Colored(c.App.Writer)
	if color.NoColor {
		out = colors.Uncolored(c.App.Writer)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := executor.New(executor.RunnerConfig{
		Paths:         paths,
		Tags:          cfg.Tags,
		Format:        cfg.Format,
		Output:        out,
		NoColors:      color.NoColor,
		Strict:        cfg.Strict,
		StopOnFail:    c.Bool("stop-on-failure"),
		OutputDir:     outputDir,
		RunnerVersion: Version,
		Steps:         sc,
	})
	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(c.App.Writer, result)
	logger.Info("=== Test run finished: %s ===", result.Status)

	if result.Status != report.StatusPassed {
		code := result.ExitCode
		if code == executor.ExitPassed {
			code = executor.ExitFailed
		}
		return &exitError{code: code}
	}
	return nil
}

// applyRunFlags overrides config values with run flags that were set.
func applyRunFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("tags") {
		cfg.Tags = c.String("tags")
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("strict") {
		cfg.Strict = c.Bool("strict")
	}
	if c.IsSet("headless") {
		cfg.Selenium.Headless = c.Bool("headless")
	}
	if c.Bool("eager-browser") {
		cfg.Selenium.Start = config.StartEager
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Int("timeout")
	}
}

// resolveOutputDir returns base/<timestamp>, or base itself when flatten is set.
func resolveOutputDir(base string, flatten bool, now time.Time) string {
	if flatten {
		return filepath.Clean(base)
	}
	return filepath.Join(base, now.Format("2006-01-02_15-04-05"))
}

func printSummary(w io.Writer, result *executor.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	tableWidth := 84
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %-46s %6s %6s %6s %6s %10s\n", "Scenario", "Status", "Pass", "Fail", "Skip", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))

	for _, sc := range result.Scenarios {
		var status string
		switch {
		case sc.Status.IsFailure():
			status = red(fmt.Sprintf("%6s", "✗ FAIL"))
		case sc.Status == core.StatusSkipped:
			status = cyan(fmt.Sprintf("%6s", "- SKIP"))
		default:
			status = green(fmt.Sprintf("%6s", "✓ PASS"))
		}

		name := sc.Name
		if len(name) > 46 {
			name = name[:43] + "..."
		}
		fmt.Fprintf(w, "  %-46s %s %6d %6d %6d %10s\n",
			name, status, sc.PassedSteps, sc.FailedSteps, sc.SkippedSteps, formatDuration(sc.Duration))
		if sc.Error != "" {
			fmt.Fprintf(w, "      ╰─ %s\n", firstLine(sc.Error))
		}
	}

	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	total := fmt.Sprintf("%d/%d", result.PassedScenarios, result.TotalScenarios)
	if result.FailedScenarios > 0 {
		total = red(fmt.Sprintf("%6s", total))
	} else {
		total = green(fmt.Sprintf("%6s", total))
	}
	fmt.Fprintf(w, "  %s %s %6d %6d %6d %10s\n",
		bold(fmt.Sprintf("%-46s", "TOTAL")), total,
		result.PassedScenarios, result.FailedScenarios, result.SkippedScenarios,
		formatDuration(result.Duration))
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	if result.ReportDir != "" {
		fmt.Fprintf(w, "  Report: %s\n", filepath.Join(result.ReportDir, "report.html"))
	}
}

// formatDuration shows milliseconds below a second, seconds below a
// minute, and minutes with seconds otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
