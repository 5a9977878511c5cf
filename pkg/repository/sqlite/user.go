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

type userRepository struct {
	db *sql.DB
}

const userColumns = `id, phone_number, whatsapp_id, timezone, created_at, updated_at`

func (r *userRepository) GetOrCreate(ctx context.Context, phoneNumber, whatsappID string) (*model.User, error) {
	phone := model.CleanPhoneNumber(phoneNumber)
	if phone == "" {
		return nil, goerr.New("phone number is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = ?`, phone)
	user, err := scanUser(row)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(err, "failed to query user", goerr.V("phone", phone))
	}

	now := time.Now().UTC()
	created := &model.User{
		ID:          types.NewUserID(),
		PhoneNumber: phone,
		WhatsAppID:  whatsappID,
		Timezone:    "UTC",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, phone_number, whatsapp_id, timezone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		created.ID.String(), created.PhoneNumber, created.WhatsAppID, created.Timezone,
		formatTime(created.CreatedAt), formatTime(created.UpdatedAt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert user", goerr.V("phone", phone))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit user creation")
	}

	return created, nil
}

func (r *userRepository) GetByID(ctx context.Context, id types.UserID) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query user", goerr.V("id", id))
	}
	return user, nil
}

func (r *userRepository) GetByPhone(ctx context.Context, phoneNumber string) (*model.User, error) {
	phone := model.CleanPhoneNumber(phoneNumber)

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = ?`, phone)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("phone", phone))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query user", goerr.V("phone", phone))
	}
	return user, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	var id, createdAt, updatedAt string

	if err := row.Scan(&id, &user.PhoneNumber, &user.WhatsAppID, &user.Timezone, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	user.ID = types.UserID(id)
	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}
