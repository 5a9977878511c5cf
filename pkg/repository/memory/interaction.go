package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

type interactionRepository struct {
	mu    sync.RWMutex
	byID  map[types.InteractionID]*model.Interaction
	bySID map[types.MessageSID]types.InteractionID

	// phone lookup for joined listings, filled lazily by the parent
	users *userRepository
}

func newInteractionRepository() *interactionRepository {
	return &interactionRepository{
		byID:  make(map[types.InteractionID]*model.Interaction),
		bySID: make(map[types.MessageSID]types.InteractionID),
	}
}

func (r *interactionRepository) Create(ctx context.Context, interaction *model.Interaction) (*model.Interaction, bool, error) {
	if err := interaction.Validate(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Same SID means a webhook retry; hand back the stored record
	if id, exists := r.bySID[interaction.MessageSID]; exists {
		return copyInteraction(r.byID[id]), false, nil
	}

	stored := copyInteraction(interaction)
	if stored.ID == "" {
		stored.ID = types.NewInteractionID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.byID[stored.ID] = stored
	r.bySID[stored.MessageSID] = stored.ID

	return copyInteraction(stored), true, nil
}

func (r *interactionRepository) GetBySID(ctx context.Context, sid types.MessageSID) (*model.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.bySID[sid]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "interaction not found", goerr.V("sid", sid))
	}
	return copyInteraction(r.byID[id]), nil
}

func (r *interactionRepository) UpdateMedia(ctx context.Context, id types.InteractionID, mediaPath, mediaHash, transcript string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.byID[id]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "interaction not found", goerr.V("id", id))
	}

	if mediaPath != "" {
		existing.MediaPath = mediaPath
	}
	if mediaHash != "" {
		existing.MediaHash = mediaHash
	}
	if transcript != "" {
		existing.Transcript = transcript
	}
	return nil
}

func (r *interactionRepository) ListRecent(ctx context.Context, userID types.UserID, limit int) ([]*model.InteractionWithUser, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	interactions := make([]*model.Interaction, 0, len(r.byID))
	for _, interaction := range r.byID {
		if userID != "" && interaction.UserID != userID {
			continue
		}
		interactions = append(interactions, copyInteraction(interaction))
	}
	r.mu.RUnlock()

	sort.Slice(interactions, func(i, j int) bool {
		return interactions[i].CreatedAt.After(interactions[j].CreatedAt)
	})
	if len(interactions) > limit {
		interactions = interactions[:limit]
	}

	results := make([]*model.InteractionWithUser, 0, len(interactions))
	for _, interaction := range interactions {
		row := &model.InteractionWithUser{Interaction: *interaction}
		if r.users != nil {
			if user, err := r.users.GetByID(ctx, interaction.UserID); err == nil {
				row.PhoneNumber = user.PhoneNumber
			}
		}
		results = append(results, row)
	}

	return results, nil
}

func copyInteraction(x *model.Interaction) *model.Interaction {
	copied := *x
	return &copied
}
