package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// timeLayout is a fixed-width UTC timestamp format. Fixed width keeps
// lexicographic ordering consistent with chronological ordering, which
// the range-filtered queries rely on.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Repository is the SQLite-backed system of record.
type Repository struct {
	db *sql.DB

	users        *userRepository
	interactions *interactionRepository
	memories     *memoryRepository
}

var _ interfaces.Repository = &Repository{}

// New opens or creates the database at path and applies the schema.
func New(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}

	r := &Repository{
		db:           db,
		users:        &userRepository{db: db},
		interactions: &interactionRepository{db: db},
		memories:     &memoryRepository{db: db},
	}

	if err := r.Migrate(context.Background()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, goerr.Wrap(err, "failed to apply schema (and failed to close database)", goerr.V("close_error", closeErr))
		}
		return nil, err
	}

	return r, nil
}

// Migrate applies the create-if-missing schema
func (r *Repository) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		phone_number TEXT NOT NULL UNIQUE,
		whatsapp_id  TEXT NOT NULL DEFAULT '',
		timezone     TEXT NOT NULL DEFAULT 'UTC',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone_number);

	CREATE TABLE IF NOT EXISTS interactions (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id),
		message_sid  TEXT NOT NULL UNIQUE,
		message_type TEXT NOT NULL,
		content      TEXT NOT NULL DEFAULT '',
		media_url    TEXT NOT NULL DEFAULT '',
		media_path   TEXT NOT NULL DEFAULT '',
		media_hash   TEXT NOT NULL DEFAULT '',
		transcript   TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at DESC);

	CREATE TABLE IF NOT EXISTS memories (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL REFERENCES users(id),
		interaction_id     TEXT NOT NULL REFERENCES interactions(id),
		external_memory_id TEXT NOT NULL DEFAULT '',
		content            TEXT NOT NULL,
		tags               TEXT NOT NULL DEFAULT '[]',
		created_at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user_created ON memories(user_id, created_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (r *Repository) User() interfaces.UserRepository {
	return r.users
}

func (r *Repository) Interaction() interfaces.InteractionRepository {
	return r.interactions
}

func (r *Repository) Memory() interfaces.MemoryRepository {
	return r.memories
}

func (r *Repository) Stats(ctx context.Context) (*model.UsageStats, error) {
	stats := &model.UsageStats{
		InteractionsByType: make(map[types.MessageType]int),
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return nil, goerr.Wrap(err, "failed to count users")
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&stats.TotalInteractions); err != nil {
		return nil, goerr.Wrap(err, "failed to count interactions")
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&stats.TotalMemories); err != nil {
		return nil, goerr.Wrap(err, "failed to count memories")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT message_type, COUNT(*) FROM interactions GROUP BY message_type`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count interactions by type")
	}
	defer rows.Close()
	for rows.Next() {
		var msgType string
		var count int
		if err := rows.Scan(&msgType, &count); err != nil {
			return nil, goerr.Wrap(err, "failed to scan interaction type count")
		}
		stats.InteractionsByType[types.MessageType(msgType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate interaction type counts")
	}

	var lastIngest sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM interactions`).Scan(&lastIngest); err != nil {
		return nil, goerr.Wrap(err, "failed to query last ingest time")
	}
	if lastIngest.Valid {
		t, err := parseTime(lastIngest.String)
		if err != nil {
			return nil, err
		}
		stats.LastIngestAt = &t
	}

	topRows, err := r.db.QueryContext(ctx, `
		SELECT u.phone_number, COUNT(i.id) AS n
		FROM users u
		INNER JOIN interactions i ON i.user_id = u.id
		GROUP BY u.id
		ORDER BY n DESC, u.phone_number ASC
		LIMIT 5`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query top users")
	}
	defer topRows.Close()
	for topRows.Next() {
		var activity model.UserActivity
		if err := topRows.Scan(&activity.PhoneNumber, &activity.InteractionCount); err != nil {
			return nil, goerr.Wrap(err, "failed to scan top user")
		}
		stats.TopUsers = append(stats.TopUsers, activity)
	}
	if err := topRows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate top users")
	}

	return stats, nil
}

func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to parse stored timestamp", goerr.V("value", s))
	}
	return t, nil
}
