package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

// searchSemantic queries the semantic backend and soft-fails to an
// empty result set. Backend degradation must never break the query
// path: the relational store still answers.
func (uc *UseCases) searchSemantic(ctx context.Context, q interfaces.SemanticQuery) []model.SemanticHit {
	if uc.semantic == nil {
		return nil
	}

	hits, err := uc.semantic.Search(ctx, q)
	if err != nil {
		logger := logging.From(ctx)
		switch {
		case errors.Is(err, interfaces.ErrSemanticUnavailable):
			logger.Warn("semantic backend unavailable, relational results only",
				"error", err, "user_id", q.UserID)
		case errors.Is(err, interfaces.ErrSemanticValidation):
			logger.Warn("semantic backend rejected search, relational results only",
				"error", err, "user_id", q.UserID)
		default:
			logger.Error("unexpected semantic search failure, relational results only",
				"error", err, "user_id", q.UserID)
		}
		return nil
	}
	return hits
}

// addSemantic stores content in the semantic backend and soft-fails to
// an empty ID. The caller records the degradation by persisting the
// relational record without a backend reference.
func (uc *UseCases) addSemantic(ctx context.Context, content string, userID types.UserID, metadata map[string]any) types.ExternalMemoryID {
	if uc.semantic == nil {
		return ""
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	// Time-scoped searches filter on this key, so every stored memory
	// must carry its ingestion instant.
	if _, ok := metadata["created_at"]; !ok {
		metadata["created_at"] = uc.now().UTC().Format(time.RFC3339)
	}

	id, err := uc.semantic.Add(ctx, content, userID, metadata)
	if err != nil {
		logging.From(ctx).Warn("semantic memory creation degraded",
			"error", err, "user_id", userID)
		return ""
	}
	return id
}

// DeleteMemory removes a memory from the semantic backend. Unlike the
// soft-fail paths, the caller asked for the deletion explicitly, so
// backend failures propagate.
func (uc *UseCases) DeleteMemory(ctx context.Context, id types.ExternalMemoryID, userID types.UserID) (bool, error) {
	if uc.semantic == nil {
		return false, goerr.New("semantic backend is not configured")
	}
	return uc.semantic.Delete(ctx, id, userID)
}

// UpdateMemory replaces the content of a semantic backend memory
func (uc *UseCases) UpdateMemory(ctx context.Context, id types.ExternalMemoryID, userID types.UserID, content string) (bool, error) {
	if uc.semantic == nil {
		return false, goerr.New("semantic backend is not configured")
	}
	return uc.semantic.Update(ctx, id, userID, content)
}

// insightMetadata flattens insights into semantic backend metadata
func insightMetadata(insights model.Insights) map[string]any {
	return map[string]any{
		"tags":      insights.Tags,
		"category":  insights.Category,
		"sentiment": insights.Sentiment.String(),
	}
}
