package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// testCommand parses flags without running any action
func testCommand(flags []cli.Flag) *cli.Command {
	return &cli.Command{
		Name:  "test",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return nil
		},
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o644)).Required()
	return path
}

func loadConfig(t *testing.T, path string) (*config.AppConfig, error) {
	t.Helper()

	var cfg config.AppConfig
	cmd := testCommand(cfg.Flags())
	args := []string{"test"}
	if path != "" {
		args = append(args, "--config", path)
	}
	gt.NoError(t, cmd.Run(context.Background(), args)).Required()
	return cfg.Configure()
}

func TestAppConfig(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := loadConfig(t, "")
		gt.NoError(t, err).Required()
		gt.Array(t, cfg.Insight.Categories).Length(0)
	})

	t.Run("loads categories", func(t *testing.T) {
		path := writeConfig(t, `
[insight]
categories = ["food", "travel", "work"]
`)
		cfg, err := loadConfig(t, path)
		gt.NoError(t, err).Required()
		gt.Array(t, cfg.Insight.Categories).Equal([]string{"food", "travel", "work"})
	})

	t.Run("rejects duplicate categories", func(t *testing.T) {
		path := writeConfig(t, `
[insight]
categories = ["food", "food"]
`)
		_, err := loadConfig(t, path)
		gt.Bool(t, errors.Is(err, config.ErrDuplicateCategory)).True()
	})

	t.Run("rejects empty category", func(t *testing.T) {
		path := writeConfig(t, `
[insight]
categories = [""]
`)
		_, err := loadConfig(t, path)
		gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).True()
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(t, filepath.Join(t.TempDir(), "absent.toml"))
		gt.Bool(t, errors.Is(err, config.ErrConfigNotFound)).True()
	})
}

func TestRepositoryConfig(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		var cfg config.Repository
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--repository-backend", "memory"})).Required()

		repo, err := cfg.Configure(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, repo).NotNil()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		var cfg config.Repository
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{
			"test", "--repository-backend", "sqlite", "--sqlite-path", path,
		})).Required()

		repo, err := cfg.Configure(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, repo).NotNil()
		gt.NoError(t, repo.Close())
	})

	t.Run("invalid backend", func(t *testing.T) {
		var cfg config.Repository
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--repository-backend", "bogus"})).Required()

		_, err := cfg.Configure(context.Background())
		gt.Error(t, err)
	})
}

func TestSemanticConfig(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		var cfg config.Semantic
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--semantic-backend", "none"})).Required()

		index, err := cfg.Configure(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, index).Nil()
	})

	t.Run("local backend without LLM client degrades", func(t *testing.T) {
		var cfg config.Semantic
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--semantic-backend", "local"})).Required()

		index, err := cfg.Configure(nil)
		gt.NoError(t, err).Required()
		gt.Value(t, index).Nil()
	})

	t.Run("mem0 backend requires API key", func(t *testing.T) {
		var cfg config.Semantic
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--semantic-backend", "mem0"})).Required()

		_, err := cfg.Configure(nil)
		gt.Error(t, err)
	})
}

func TestLoggerConfig(t *testing.T) {
	t.Run("configures json logger", func(t *testing.T) {
		var cfg config.Logger
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{
			"test", "--log-level", "debug", "--log-format", "json",
		})).Required()

		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		var cfg config.Logger
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--log-level", "loud"})).Required()

		_, err := cfg.Configure()
		gt.Error(t, err)
	})

	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		var cfg config.Logger
		cmd := testCommand(cfg.Flags())
		gt.NoError(t, cmd.Run(context.Background(), []string{"test", "--log-output", path})).Required()

		closer, err := cfg.Configure()
		gt.NoError(t, err).Required()
		closer()

		_, statErr := os.Stat(path)
		gt.NoError(t, statErr)
	})
}
