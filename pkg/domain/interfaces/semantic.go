package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// Sentinel errors for semantic backend failures. Callers classify
// these with errors.Is to decide between soft-fail and hard-fail
// handling; the search path must soft-fail on both.
var (
	// ErrSemanticValidation marks backend validation rejections
	// (4xx, "filters are required" and the like).
	ErrSemanticValidation = goerr.New("semantic backend rejected request")

	// ErrSemanticUnavailable marks transport-level failures reaching
	// the backend.
	ErrSemanticUnavailable = goerr.New("semantic backend unavailable")
)

// SemanticQuery is a filtered similarity search request. UserID is
// mandatory: the backend must never be searched across users. When
// Range is non-nil it is AND-composed with the user scope.
type SemanticQuery struct {
	Query  string
	UserID types.UserID
	Limit  int
	Range  *model.ResolvedRange
}

// SemanticIndex is the narrow contract against the external semantic
// memory backend. The backend is the system of record for ranking and
// vector content only; relational metadata stays in Repository.
type SemanticIndex interface {
	// Add stores content for the user and returns the backend's memory
	// ID.
	Add(ctx context.Context, content string, userID types.UserID, metadata map[string]any) (types.ExternalMemoryID, error)

	// Search performs a ranked similarity search. The returned hits
	// preserve the backend's rank order.
	Search(ctx context.Context, q SemanticQuery) ([]model.SemanticHit, error)

	// Update replaces the content of an existing backend memory
	Update(ctx context.Context, id types.ExternalMemoryID, userID types.UserID, content string) (bool, error)

	// Delete removes a backend memory
	Delete(ctx context.Context, id types.ExternalMemoryID, userID types.UserID) (bool, error)
}
