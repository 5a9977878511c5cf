package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/query"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/errutil"
)

const (
	listFetchLimit     = 20
	listDisplayLimit   = 10
	listContentLimit   = 80
	defaultMemoryLimit = 20
)

// handleListCommand answers the /list chat command. The command itself
// is recorded as an interaction, like any other inbound message.
func (uc *UseCases) handleListCommand(ctx context.Context, user *model.User, msg *model.InboundMessage) (string, error) {
	_, created, err := uc.repo.Interaction().Create(ctx, &model.Interaction{
		UserID:      user.ID,
		MessageSID:  msg.MessageSID,
		MessageType: types.MessageTypeText,
		Content:     model.SanitizeContent(msg.Body),
	})
	if err != nil {
		return replyDBError, goerr.Wrap(err, "failed to store interaction", goerr.V("sid", msg.MessageSID))
	}
	if !created {
		return replyDuplicate, nil
	}

	records, err := uc.repo.Memory().List(ctx, user.ID, listFetchLimit, nil)
	if err != nil {
		errutil.Handle(ctx, err, "failed to list memories")
		return replySearchError, nil
	}

	return formatListReply(records), nil
}

func formatListReply(records []*model.MemoryWithInteraction) string {
	if len(records) == 0 {
		return replyListEmpty
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗂️ Your Recent Memories (%d total):\n\n", len(records))

	shown := records
	if len(shown) > listDisplayLimit {
		shown = shown[:listDisplayLimit]
	}
	for i, record := range shown {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1,
			truncate(record.Memory.Content, listContentLimit),
			record.Memory.CreatedAt.Format("2006-01-02"))
	}

	if len(records) > listDisplayLimit {
		fmt.Fprintf(&sb, "\n... and %d more memories.", len(records)-listDisplayLimit)
	}
	return sb.String()
}

// ListMemories returns a user's memory records, optionally filtered by
// a natural-language time phrase ("yesterday", "last week", ...)
// resolved in the user's timezone.
func (uc *UseCases) ListMemories(ctx context.Context, userID types.UserID, limit int, timeFilter string) ([]*model.MemoryWithInteraction, *model.ResolvedRange, error) {
	user, err := uc.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to resolve user", goerr.V("user_id", userID))
	}

	if limit <= 0 {
		limit = defaultMemoryLimit
	}

	var rng *model.ResolvedRange
	if timeFilter != "" {
		refs := query.ExtractTimeReferences(timeFilter)
		rng, _ = query.FirstRange(refs, user.Location(), uc.now())
	}

	records, err := uc.repo.Memory().List(ctx, userID, limit, rng)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list memories", goerr.V("user_id", userID))
	}
	return records, rng, nil
}
