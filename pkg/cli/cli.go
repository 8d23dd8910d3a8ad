// Package cli provides the command-line interface for terrain.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to terrain.yaml (default: ./terrain.yaml if present)",
		EnvVars: []string{"TERRAIN_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "base-url",
		Usage:   "Base URL of the running application",
		EnvVars: []string{"TERRAIN_BASE_URL"},
	},
	&cli.StringFlag{
		Name:    "selenium-url",
		Usage:   "WebDriver server URL",
		EnvVars: []string{"SELENIUM_URL"},
	},
	&cli.StringFlag{
		Name:    "browser",
		Aliases: []string{"b"},
		Usage:   "Browser to drive (firefox, chrome, MicrosoftEdge)",
		EnvVars: []string{"TERRAIN_BROWSER"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging",
		EnvVars: []string{"TERRAIN_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// exitError ends the process with code after its message, if any, is printed.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.msg
}

// NewApp builds the command-line application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "terrain",
		Usage:   "Behaviour-driven acceptance tests for web applications",
		Version: Version,
		Description: `terrain runs Gherkin feature files against a web application, through
an HTTP client or a WebDriver browser.

Examples:
  terrain run accounts/features
  terrain run --tags '@smoke' --base-url http://localhost:8000
  terrain check accounts/features
  terrain routes`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				color.NoColor = true
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			checkCommand,
			routesCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(os.Stderr, exit.msg)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
