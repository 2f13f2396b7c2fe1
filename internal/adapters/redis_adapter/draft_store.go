// internal/adapters/redis_adapter/draft_store.go
package redis_a

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
)

const draftKeyPrefix = "draft:"

// DraftStore persists order drafts in Redis for the payment step.
// Drafts are written once with a TTL and read by ID; they are never
// updated in place.
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Statically assert that *DraftStore implements the DraftRepository interface.
var _ ports.DraftRepository = (*DraftStore)(nil)

// NewDraftStore creates a redis-backed draft repository
func NewDraftStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *DraftStore {
	return &DraftStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "draft_store")),
	}
}

// Save stores the draft under its ID
func (s *DraftStore) Save(ctx context.Context, draft *domain.OrderDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	key := draftKeyPrefix + draft.ID.String()
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.ErrorContext(ctx, "failed to store order draft",
			slog.String("draft_id", draft.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("redis set error: %w", err)
	}

	s.logger.DebugContext(ctx, "order draft stored",
		slog.String("draft_id", draft.ID.String()),
		slog.Duration("ttl", s.ttl))
	return nil
}

// FindByID retrieves a draft by ID
func (s *DraftStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.OrderDraft, error) {
	data, err := s.client.Get(ctx, draftKeyPrefix+id.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrDraftNotFound
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var draft domain.OrderDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	return &draft, nil
}
