package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// Stats returns the aggregate usage summary
func (uc *UseCases) Stats(ctx context.Context) (*model.UsageStats, error) {
	stats, err := uc.repo.Stats(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compute usage statistics")
	}
	return stats, nil
}

// RecentInteractions lists recent interactions joined with their user,
// newest first. An empty userID lists across all users.
func (uc *UseCases) RecentInteractions(ctx context.Context, userID types.UserID, limit int) ([]*model.InteractionWithUser, error) {
	interactions, err := uc.repo.Interaction().ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list interactions", goerr.V("user_id", userID))
	}
	return interactions, nil
}
