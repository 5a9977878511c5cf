package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/repository/sqlite"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var path string

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create or update the SQLite schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "sqlite-path",
				Usage:       "SQLite database file path",
				Value:       "memory_assistant.db",
				Sources:     cli.EnvVars("WMA_SQLITE_PATH", "DATABASE_PATH"),
				Destination: &path,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration", "path", path)

			repo, err := sqlite.New(path)
			if err != nil {
				return goerr.Wrap(err, "failed to open database")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close database", "error", err.Error())
				}
			}()

			if err := repo.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply schema")
			}

			logger.Info("Schema is up to date", "path", path)
			return nil
		},
	}
}
