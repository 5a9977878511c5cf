package memory

import (
	"context"
	"time"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// Repository is an in-memory implementation of interfaces.Repository,
// used by tests and local development.
type Repository struct {
	users        *userRepository
	interactions *interactionRepository
	memories     *memoryRepository
}

var _ interfaces.Repository = &Repository{}

func New() *Repository {
	users := newUserRepository()
	interactions := newInteractionRepository()
	interactions.users = users
	memories := newMemoryRepository(interactions)

	return &Repository{
		users:        users,
		interactions: interactions,
		memories:     memories,
	}
}

func (r *Repository) User() interfaces.UserRepository {
	return r.users
}

func (r *Repository) Interaction() interfaces.InteractionRepository {
	return r.interactions
}

func (r *Repository) Memory() interfaces.MemoryRepository {
	return r.memories
}

func (r *Repository) Stats(ctx context.Context) (*model.UsageStats, error) {
	stats := &model.UsageStats{
		InteractionsByType: make(map[types.MessageType]int),
	}

	r.users.mu.RLock()
	stats.TotalUsers = len(r.users.byID)
	r.users.mu.RUnlock()

	r.interactions.mu.RLock()
	stats.TotalInteractions = len(r.interactions.byID)
	perUser := make(map[types.UserID]int)
	var lastIngest time.Time
	for _, interaction := range r.interactions.byID {
		stats.InteractionsByType[interaction.MessageType]++
		perUser[interaction.UserID]++
		if interaction.CreatedAt.After(lastIngest) {
			lastIngest = interaction.CreatedAt
		}
	}
	r.interactions.mu.RUnlock()

	if !lastIngest.IsZero() {
		stats.LastIngestAt = &lastIngest
	}

	r.memories.mu.RLock()
	stats.TotalMemories = len(r.memories.byID)
	r.memories.mu.RUnlock()

	stats.TopUsers = r.users.topByActivity(perUser, 5)

	return stats, nil
}

func (r *Repository) Close() error {
	return nil
}
