package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// Sentinel errors shared by all repository backends
var (
	ErrNotFound = goerr.New("record not found")
)

// Repository defines the interface for the relational system of record
type Repository interface {
	User() UserRepository
	Interaction() InteractionRepository
	Memory() MemoryRepository

	// Stats returns the aggregate usage summary
	Stats(ctx context.Context) (*model.UsageStats, error)

	Close() error
}

// UserRepository defines user persistence. Users are keyed by
// normalized phone number.
type UserRepository interface {
	// GetOrCreate returns the existing user for the phone number or
	// creates one with the default timezone.
	GetOrCreate(ctx context.Context, phoneNumber, whatsappID string) (*model.User, error)

	// GetByID retrieves a user by ID. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id types.UserID) (*model.User, error)

	// GetByPhone retrieves a user by normalized phone number. Returns
	// ErrNotFound when absent.
	GetByPhone(ctx context.Context, phoneNumber string) (*model.User, error)
}

// InteractionRepository defines interaction persistence
type InteractionRepository interface {
	// Create stores a new interaction. The message SID is the
	// idempotency key: when an interaction with the same SID already
	// exists, the existing record is returned with created=false and
	// no error.
	Create(ctx context.Context, interaction *model.Interaction) (stored *model.Interaction, created bool, err error)

	// GetBySID retrieves an interaction by its message SID. Returns
	// ErrNotFound when absent.
	GetBySID(ctx context.Context, sid types.MessageSID) (*model.Interaction, error)

	// UpdateMedia backfills processed media fields on an existing
	// interaction. Empty arguments leave the stored value untouched.
	UpdateMedia(ctx context.Context, id types.InteractionID, mediaPath, mediaHash, transcript string) error

	// ListRecent returns interactions joined with their user, newest
	// first. An empty userID lists across all users.
	ListRecent(ctx context.Context, userID types.UserID, limit int) ([]*model.InteractionWithUser, error)
}

// MemoryRepository defines memory record persistence and the
// time-range-filtered query path.
type MemoryRepository interface {
	// Create stores a new memory record
	Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error)

	// List returns memory records joined with their originating
	// interaction, scoped to the user and ordered by memory creation
	// time descending. When rng is non-nil, records are filtered to
	// [rng.Start, rng.End). Storage failures propagate as errors.
	List(ctx context.Context, userID types.UserID, limit int, rng *model.ResolvedRange) ([]*model.MemoryWithInteraction, error)

	// SetExternalMemoryID backfills the semantic backend reference on
	// a record created while the backend was degraded.
	SetExternalMemoryID(ctx context.Context, id types.MemoryRecordID, externalID types.ExternalMemoryID) error
}
