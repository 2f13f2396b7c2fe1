// internal/adapters/redis_adapter/session_store.go
package redis_a

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
)

const sessionKeyPrefix = "session:"

// SessionStore resolves customer identity from the shared session
// cache. The auth service owns the writes; this adapter only reads.
type SessionStore struct {
	client *redis.Client
	logger *slog.Logger
}

// Statically assert that *SessionStore implements the SessionService interface.
var _ ports.SessionService = (*SessionStore)(nil)

// NewSessionStore creates a redis-backed session reader
func NewSessionStore(client *redis.Client, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Current returns the customer bound to the session ID
func (s *SessionStore) Current(ctx context.Context, sessionID string) (*domain.Customer, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrSessionNotFound
		}
		s.logger.ErrorContext(ctx, "failed to read session",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var customer domain.Customer
	if err := json.Unmarshal(data, &customer); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	return &customer, nil
}
