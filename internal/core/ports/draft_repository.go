// internal/core/ports/draft_repository.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/mcerda/storefront-be/internal/core/domain"
)

// DraftRepository persists order drafts for the downstream payment
// step. Drafts are written once and read by ID; they are never updated.
type DraftRepository interface {
	Save(ctx context.Context, draft *domain.OrderDraft) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.OrderDraft, error)
}
