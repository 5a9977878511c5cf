package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig is the optional TOML application configuration. It tunes
// content classification without code changes; everything has a
// working default when no file is given.
type AppConfig struct {
	Insight InsightConfig `toml:"insight"`

	path string
}

// InsightConfig tunes the content insight extraction
type InsightConfig struct {
	// Categories replaces the default category set offered to the LLM
	Categories []string `toml:"categories"`
}

// Validate checks the loaded configuration
func (c *AppConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Insight.Categories))
	for _, category := range c.Insight.Categories {
		if category == "" {
			return goerr.Wrap(ErrInvalidConfig, "empty insight category", goerr.V(ConfigPathKey, c.path))
		}
		if _, ok := seen[category]; ok {
			return goerr.Wrap(ErrDuplicateCategory, "duplicate insight category",
				goerr.V(ConfigPathKey, c.path),
				goerr.V(CategoryKey, category),
			)
		}
		seen[category] = struct{}{}
	}
	return nil
}

// Flags returns CLI flags for application configuration
func (c *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Application configuration TOML file",
			Sources:     cli.EnvVars("WMA_CONFIG"),
			Destination: &c.path,
		},
	}
}

// Configure loads and validates the TOML file when one was given.
// Without a file the zero-value configuration is returned.
func (c *AppConfig) Configure() (*AppConfig, error) {
	if c.path == "" {
		return c, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "configuration file not found", goerr.V(ConfigPathKey, c.path))
		}
		return nil, goerr.Wrap(err, "failed to read configuration file", goerr.V(ConfigPathKey, c.path))
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return nil, goerr.Wrap(err, "failed to parse configuration file", goerr.V(ConfigPathKey, c.path))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
