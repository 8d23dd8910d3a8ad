package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/terrain/pkg/core"
	"github.com/devicelab-dev/terrain/pkg/executor"
)

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "Check feature files for steps the active backend cannot run",
	ArgsUsage: "[feature-file-or-folder]...",
	Description: `Parse feature files and report, without running anything:
  - steps that need a browser but run before "Using selenium"
  - steps no definition matches (with --strict)

Examples:
  terrain check accounts/features
  terrain check --strict --include-tags smoke`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only check scenarios with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip scenarios with these tags",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Report undefined steps",
		},
	},
	Action: checkFeatures,
}

func checkFeatures(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	sc, err := checkStepsConfig(cfg)
	if err != nil {
		return err
	}

	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = cfg.FeaturePaths()
	}

	runner := executor.New(executor.RunnerConfig{
		Paths:  paths,
		Strict: c.Bool("strict") || cfg.Strict,
		Steps:  sc,
	})
	result, err := runner.Check(c.StringSlice("include-tags"), c.StringSlice("exclude-tags"))
	if err != nil {
		return err
	}

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	for _, e := range result.Errors {
		marker := "✗"
		if errors.Is(e, core.ErrUnsupported) {
			marker = "⚠"
		}
		fmt.Fprintf(c.App.Writer, "  %s %s\n", red(marker), e)
	}

	summary := fmt.Sprintf("%d files, %d scenarios checked", len(result.Files), result.Scenarios)
	if !result.IsValid() {
		fmt.Fprintf(c.App.Writer, "\n  %s: %d problems\n", summary, len(result.Errors))
		return &exitError{code: executor.ExitFailed}
	}
	fmt.Fprintf(c.App.Writer, "  %s %s\n", green("✓"), summary)
	return nil
}
