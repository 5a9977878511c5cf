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

type userRepository struct {
	mu      sync.RWMutex
	byID    map[types.UserID]*model.User
	byPhone map[string]types.UserID
}

func newUserRepository() *userRepository {
	return &userRepository{
		byID:    make(map[types.UserID]*model.User),
		byPhone: make(map[string]types.UserID),
	}
}

func (r *userRepository) GetOrCreate(ctx context.Context, phoneNumber, whatsappID string) (*model.User, error) {
	phone := model.CleanPhoneNumber(phoneNumber)
	if phone == "" {
		return nil, goerr.New("phone number is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.byPhone[phone]; exists {
		return copyUser(r.byID[id]), nil
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:          types.NewUserID(),
		PhoneNumber: phone,
		WhatsAppID:  whatsappID,
		Timezone:    "UTC",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.byID[user.ID] = user
	r.byPhone[phone] = user.ID

	return copyUser(user), nil
}

func (r *userRepository) GetByID(ctx context.Context, id types.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.byID[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", id))
	}
	return copyUser(user), nil
}

func (r *userRepository) GetByPhone(ctx context.Context, phoneNumber string) (*model.User, error) {
	phone := model.CleanPhoneNumber(phoneNumber)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byPhone[phone]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("phone", phone))
	}
	return copyUser(r.byID[id]), nil
}

// topByActivity ranks users by interaction count descending
func (r *userRepository) topByActivity(counts map[types.UserID]int, limit int) []model.UserActivity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activities := make([]model.UserActivity, 0, len(counts))
	for id, n := range counts {
		user, exists := r.byID[id]
		if !exists {
			continue
		}
		activities = append(activities, model.UserActivity{
			PhoneNumber:      user.PhoneNumber,
			InteractionCount: n,
		})
	}

	sort.Slice(activities, func(i, j int) bool {
		if activities[i].InteractionCount != activities[j].InteractionCount {
			return activities[i].InteractionCount > activities[j].InteractionCount
		}
		return activities[i].PhoneNumber < activities[j].PhoneNumber
	})

	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities
}

// copyUser returns a copy to prevent external modification
func copyUser(u *model.User) *model.User {
	copied := *u
	return &copied
}
