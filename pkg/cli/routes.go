package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var routesCommand = &cli.Command{
	Name:  "routes",
	Usage: "List the named routes steps can reverse",
	Description: `Print every route from routes_file and routes in terrain.yaml.

Example:
  terrain routes`,
	Action: listRoutes,
}

func listRoutes(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		return err
	}

	names := resolver.Names()
	if len(names) == 0 {
		fmt.Fprintln(c.App.Writer, "No routes configured.")
		return nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	routes := resolver.Routes()
	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}
	for _, name := range names {
		fmt.Fprintf(c.App.Writer, "  %s  %s\n", cyan(fmt.Sprintf("%-*s", width, name)), routes[name])
	}
	return nil
}
