package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

type UseCases struct {
	repo     interfaces.Repository
	semantic interfaces.SemanticIndex
	insight  interfaces.InsightService
	sender   interfaces.MessageSender
	media    interfaces.MediaProcessor

	userCache *ristretto.Cache
	now       func() time.Time
}

type Option func(*UseCases)

func WithSemantic(index interfaces.SemanticIndex) Option {
	return func(uc *UseCases) {
		uc.semantic = index
	}
}

func WithInsight(svc interfaces.InsightService) Option {
	return func(uc *UseCases) {
		uc.insight = svc
	}
}

func WithSender(sender interfaces.MessageSender) Option {
	return func(uc *UseCases) {
		uc.sender = sender
	}
}

func WithMediaProcessor(processor interfaces.MediaProcessor) Option {
	return func(uc *UseCases) {
		uc.media = processor
	}
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	// The cache only avoids a store round-trip per webhook; on any
	// construction failure the lookup path works without it.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err == nil {
		uc.userCache = cache
	}

	return uc
}

// getOrCreateUser resolves the sender's user record, creating it on
// first contact. isNew reports first contact so the caller can greet.
func (uc *UseCases) getOrCreateUser(ctx context.Context, rawPhone string) (*model.User, bool, error) {
	phone := model.CleanPhoneNumber(rawPhone)

	if uc.userCache != nil {
		if v, ok := uc.userCache.Get(phone); ok {
			if user, ok := v.(*model.User); ok {
				return user, false, nil
			}
		}
	}

	isNew := false
	if _, err := uc.repo.User().GetByPhone(ctx, phone); err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			return nil, false, goerr.Wrap(err, "failed to look up user", goerr.V("phone", phone))
		}
		isNew = true
	}

	user, err := uc.repo.User().GetOrCreate(ctx, rawPhone, rawPhone)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to create user", goerr.V("phone", phone))
	}

	if uc.userCache != nil {
		uc.userCache.Set(phone, user, 1)
	}
	if isNew {
		logging.From(ctx).Info("registered new user", "user_id", user.ID, "phone", phone)
	}
	return user, isNew, nil
}
