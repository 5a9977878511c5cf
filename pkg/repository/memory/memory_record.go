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

type memoryRepository struct {
	mu   sync.RWMutex
	byID map[types.MemoryRecordID]*model.MemoryRecord

	interactions *interactionRepository
}

func newMemoryRepository(interactions *interactionRepository) *memoryRepository {
	return &memoryRepository{
		byID:         make(map[types.MemoryRecordID]*model.MemoryRecord),
		interactions: interactions,
	}
}

func (r *memoryRepository) Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyMemoryRecord(record)
	if stored.ID == "" {
		stored.ID = types.NewMemoryRecordID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.byID[stored.ID] = stored
	return copyMemoryRecord(stored), nil
}

func (r *memoryRepository) List(ctx context.Context, userID types.UserID, limit int, rng *model.ResolvedRange) ([]*model.MemoryWithInteraction, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	records := make([]*model.MemoryRecord, 0, len(r.byID))
	for _, record := range r.byID {
		if record.UserID != userID {
			continue
		}
		if rng != nil && !rng.Contains(record.CreatedAt) {
			continue
		}
		records = append(records, copyMemoryRecord(record))
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}

	results := make([]*model.MemoryWithInteraction, 0, len(records))
	for _, record := range records {
		row := &model.MemoryWithInteraction{Memory: *record}
		if interaction, err := r.interactionByID(record.InteractionID); err == nil {
			row.MessageType = interaction.MessageType
			row.InteractionDate = interaction.CreatedAt
		}
		results = append(results, row)
	}

	return results, nil
}

func (r *memoryRepository) SetExternalMemoryID(ctx context.Context, id types.MemoryRecordID, externalID types.ExternalMemoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.byID[id]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "memory record not found", goerr.V("id", id))
	}
	existing.ExternalMemoryID = externalID
	return nil
}

func (r *memoryRepository) interactionByID(id types.InteractionID) (*model.Interaction, error) {
	r.interactions.mu.RLock()
	defer r.interactions.mu.RUnlock()

	interaction, exists := r.interactions.byID[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "interaction not found", goerr.V("id", id))
	}
	return copyInteraction(interaction), nil
}

func copyMemoryRecord(x *model.MemoryRecord) *model.MemoryRecord {
	copied := *x
	copied.Tags = append([]string(nil), x.Tags...)
	return &copied
}
