package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/terrain/pkg/config"
	"github.com/devicelab-dev/terrain/pkg/driver/client"
	"github.com/devicelab-dev/terrain/pkg/driver/webdriver"
	"github.com/devicelab-dev/terrain/pkg/logger"
	"github.com/devicelab-dev/terrain/pkg/steps"
)

// loadConfig reads the workspace config named by --config, or terrain.yaml
// in the working directory, and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	if v := c.String("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v := c.String("selenium-url"); v != "" {
		cfg.Selenium.URL = v
	}
	if v := c.String("browser"); v != "" {
		cfg.Selenium.Browser = v
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// stepsConfig maps the workspace config onto the step library.
func stepsConfig(cfg *config.Config) (steps.Config, error) {
	routes, err := cfg.Resolver()
	if err != nil {
		return steps.Config{}, err
	}
	ignore, err := cfg.RedirectPatterns()
	if err != nil {
		return steps.Config{}, err
	}

	return steps.Config{
		BaseURL: cfg.BaseURL,
		WebDriver: webdriver.Config{
			ServerURL: cfg.Selenium.URL,
			Browser:   cfg.Selenium.Browser,
			Headless:  cfg.Selenium.Headless,
		},
		EagerBrowser:   cfg.Selenium.Start == config.StartEager,
		Timeout:        cfg.PageLoadTimeout(),
		Routes:         routes,
		LogoutRoute:    cfg.LogoutRoute,
		RedirectIgnore: ignore,
		Artifacts:      cfg.Artifacts,
		Verbose:        cfg.Log.Level == "debug",
	}, nil
}

// checkStepsConfig is stepsConfig for static checks, which never contact
// the application and so work without a base url.
func checkStepsConfig(cfg *config.Config) (steps.Config, error) {
	sc, err := stepsConfig(cfg)
	if err != nil {
		return sc, err
	}
	if sc.BaseURL == "" {
		sc.BaseURL = client.DefaultBaseURL
	}
	return sc, nil
}

// initLogging opens the run log and sets its level.
func initLogging(cfg *config.Config, path string) error {
	if err := logger.Init(path); err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}
