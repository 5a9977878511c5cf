package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/query"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	// relationalQueryLimit bounds the record set used for joining and
	// the relational fallback.
	relationalQueryLimit = 50
	// semanticQueryLimit bounds the candidate set from the semantic
	// backend.
	semanticQueryLimit = 5
)

// SearchOutput is the annotated answer to one natural-language query
type SearchOutput struct {
	Results []model.RankedResult
	// Range is the resolved time filter applied to both stores, nil
	// when the query carried no usable time expression.
	Range *model.ResolvedRange
	// UsedRef is the time expression the range was resolved from. It
	// can be non-nil with a nil Range when resolution failed and the
	// query fell back to unfiltered.
	UsedRef *model.TimeReference
	// Fallback reports that no semantic hit survived and the results
	// come from the relational store alone.
	Fallback bool
}

// Search answers a natural-language query for one user: it resolves
// the query's first time expression in the user's timezone, fans out
// to the relational store and the semantic backend in parallel, and
// reconciles both result sets. Relational failures are hard errors;
// semantic failures degrade to relational-only results.
func (uc *UseCases) Search(ctx context.Context, userID types.UserID, rawQuery string, limit int) (*SearchOutput, error) {
	user, err := uc.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve query user", goerr.V("user_id", userID))
	}

	refs := query.ExtractTimeReferences(rawQuery)
	rng, usedRef := query.FirstRange(refs, user.Location(), uc.now())

	logging.From(ctx).Debug("parsed search query",
		"user_id", userID,
		"keywords", query.ExtractKeywords(rawQuery),
		"time_refs", len(refs),
		"filtered", rng != nil,
	)

	var (
		records []*model.MemoryWithInteraction
		hits    []model.SemanticHit
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var listErr error
		records, listErr = uc.repo.Memory().List(egCtx, userID, relationalQueryLimit, rng)
		if listErr != nil {
			return goerr.Wrap(listErr, "failed to list memories", goerr.V("user_id", userID))
		}
		return nil
	})
	eg.Go(func() error {
		hits = uc.searchSemantic(egCtx, interfaces.SemanticQuery{
			Query:  rawQuery,
			UserID: userID,
			Limit:  semanticQueryLimit,
			Range:  rng,
		})
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	results, fallback := reconcile(hits, records)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return &SearchOutput{
		Results:  results,
		Range:    rng,
		UsedRef:  usedRef,
		Fallback: fallback,
	}, nil
}
