package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

type memoryRepository struct {
	db *sql.DB
}

func (r *memoryRepository) Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	stored := *record
	if stored.ID == "" {
		stored.ID = types.NewMemoryRecordID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	tags := stored.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode tags", goerr.V("id", stored.ID))
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, interaction_id, external_memory_id, content, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID.String(), stored.UserID.String(), stored.InteractionID.String(),
		stored.ExternalMemoryID.String(), stored.Content, string(tagsJSON),
		formatTime(stored.CreatedAt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert memory record", goerr.V("id", stored.ID))
	}

	return &stored, nil
}

func (r *memoryRepository) List(ctx context.Context, userID types.UserID, limit int, rng *model.ResolvedRange) ([]*model.MemoryWithInteraction, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT m.id, m.user_id, m.interaction_id, m.external_memory_id, m.content, m.tags, m.created_at,
		       i.message_type, i.created_at
		FROM memories m
		INNER JOIN interactions i ON i.id = m.interaction_id
		WHERE m.user_id = ?`
	args := []any{userID.String()}

	// Half-open interval [start, end)
	if rng != nil {
		query += ` AND m.created_at >= ? AND m.created_at < ?`
		args = append(args, formatTime(rng.Start), formatTime(rng.End))
	}

	query += ` ORDER BY m.created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memory records", goerr.V("user_id", userID))
	}
	defer rows.Close()

	var results []*model.MemoryWithInteraction
	for rows.Next() {
		var record model.MemoryRecord
		var id, uid, interactionID, externalID, tagsJSON, createdAt string
		var msgType, interactionDate string

		if err := rows.Scan(&id, &uid, &interactionID, &externalID, &record.Content,
			&tagsJSON, &createdAt, &msgType, &interactionDate); err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory row")
		}

		record.ID = types.MemoryRecordID(id)
		record.UserID = types.UserID(uid)
		record.InteractionID = types.InteractionID(interactionID)
		record.ExternalMemoryID = types.ExternalMemoryID(externalID)
		if err := json.Unmarshal([]byte(tagsJSON), &record.Tags); err != nil {
			return nil, goerr.Wrap(err, "failed to decode tags", goerr.V("id", id))
		}
		if record.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		row := &model.MemoryWithInteraction{
			Memory:      record,
			MessageType: types.MessageType(msgType),
		}
		if row.InteractionDate, err = parseTime(interactionDate); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memory rows")
	}

	return results, nil
}

func (r *memoryRepository) SetExternalMemoryID(ctx context.Context, id types.MemoryRecordID, externalID types.ExternalMemoryID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE memories SET external_memory_id = ? WHERE id = ?`,
		externalID.String(), id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to set external memory ID", goerr.V("id", id))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to check update result", goerr.V("id", id))
	}
	if affected == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "memory record not found", goerr.V("id", id))
	}
	return nil
}
