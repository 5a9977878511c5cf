package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/repository/memory"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/repository/sqlite"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend    string
	sqlitePath string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (sqlite or memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("WMA_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file path",
			Value:       "memory_assistant.db",
			Sources:     cli.EnvVars("WMA_SQLITE_PATH", "DATABASE_PATH"),
			Destination: &r.sqlitePath,
		},
	}
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// SQLitePath returns the SQLite database file path
func (r *Repository) SQLitePath() string {
	return r.sqlitePath
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "sqlite":
		repo, err := sqlite.New(r.sqlitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using SQLite repository", "path", r.sqlitePath)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}
