package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

type interactionRepository struct {
	db *sql.DB
}

const interactionColumns = `id, user_id, message_sid, message_type, content, media_url, media_path, media_hash, transcript, created_at`

func (r *interactionRepository) Create(ctx context.Context, interaction *model.Interaction) (*model.Interaction, bool, error) {
	if err := interaction.Validate(); err != nil {
		return nil, false, err
	}

	stored := *interaction
	if stored.ID == "" {
		stored.ID = types.NewInteractionID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	// ON CONFLICT makes the duplicate check atomic: concurrent webhook
	// retries with the same SID race to a single insert, and the losers
	// read back the winner's row instead of failing the UNIQUE
	// constraint.
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO interactions (id, user_id, message_sid, message_type, content, media_url, media_path, media_hash, transcript, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(message_sid) DO NOTHING`,
		stored.ID.String(), stored.UserID.String(), stored.MessageSID.String(), stored.MessageType.String(),
		stored.Content, stored.MediaURL, stored.MediaPath, stored.MediaHash, stored.Transcript,
		formatTime(stored.CreatedAt))
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to insert interaction", goerr.V("sid", stored.MessageSID))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to read insert result", goerr.V("sid", stored.MessageSID))
	}
	if affected == 0 {
		existing, err := r.GetBySID(ctx, stored.MessageSID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return &stored, true, nil
}

func (r *interactionRepository) GetBySID(ctx context.Context, sid types.MessageSID) (*model.Interaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+interactionColumns+` FROM interactions WHERE message_sid = ?`, sid.String())
	interaction, err := scanInteraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "interaction not found", goerr.V("sid", sid))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query interaction", goerr.V("sid", sid))
	}
	return interaction, nil
}

func (r *interactionRepository) UpdateMedia(ctx context.Context, id types.InteractionID, mediaPath, mediaHash, transcript string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE interactions SET
			media_path = CASE WHEN ? = '' THEN media_path ELSE ? END,
			media_hash = CASE WHEN ? = '' THEN media_hash ELSE ? END,
			transcript = CASE WHEN ? = '' THEN transcript ELSE ? END
		WHERE id = ?`,
		mediaPath, mediaPath, mediaHash, mediaHash, transcript, transcript, id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to update interaction media", goerr.V("id", id))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to check update result", goerr.V("id", id))
	}
	if affected == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "interaction not found", goerr.V("id", id))
	}
	return nil
}

func (r *interactionRepository) ListRecent(ctx context.Context, userID types.UserID, limit int) ([]*model.InteractionWithUser, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT i.id, i.user_id, i.message_sid, i.message_type, i.content,
		       i.media_url, i.media_path, i.media_hash, i.transcript, i.created_at,
		       u.phone_number
		FROM interactions i
		INNER JOIN users u ON u.id = i.user_id`
	args := []any{}
	if userID != "" {
		query += ` WHERE i.user_id = ?`
		args = append(args, userID.String())
	}
	query += ` ORDER BY i.created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list interactions", goerr.V("user_id", userID))
	}
	defer rows.Close()

	var results []*model.InteractionWithUser
	for rows.Next() {
		var interaction model.Interaction
		var id, uid, sid, msgType, createdAt, phone string

		if err := rows.Scan(&id, &uid, &sid, &msgType, &interaction.Content,
			&interaction.MediaURL, &interaction.MediaPath, &interaction.MediaHash,
			&interaction.Transcript, &createdAt, &phone); err != nil {
			return nil, goerr.Wrap(err, "failed to scan interaction row")
		}

		interaction.ID = types.InteractionID(id)
		interaction.UserID = types.UserID(uid)
		interaction.MessageSID = types.MessageSID(sid)
		interaction.MessageType = types.MessageType(msgType)
		if interaction.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		results = append(results, &model.InteractionWithUser{
			Interaction: interaction,
			PhoneNumber: phone,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate interaction rows")
	}

	return results, nil
}

func scanInteraction(row *sql.Row) (*model.Interaction, error) {
	var interaction model.Interaction
	var id, userID, sid, msgType, createdAt string

	if err := row.Scan(&id, &userID, &sid, &msgType, &interaction.Content,
		&interaction.MediaURL, &interaction.MediaPath, &interaction.MediaHash,
		&interaction.Transcript, &createdAt); err != nil {
		return nil, err
	}

	interaction.ID = types.InteractionID(id)
	interaction.UserID = types.UserID(userID)
	interaction.MessageSID = types.MessageSID(sid)
	interaction.MessageType = types.MessageType(msgType)

	var err error
	if interaction.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &interaction, nil
}
