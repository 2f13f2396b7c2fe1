// internal/core/ports/cart_service.go
package ports

import (
	"context"

	"github.com/mcerda/storefront-be/internal/core/domain"
)

// CartService is the only write surface offered to UI-facing code.
// Mutations apply optimistically and return the resulting snapshot
// immediately; settlement is reported later through the event listener
// the service was constructed with.
type CartService interface {
	Snapshot() domain.CartSnapshot
	AddOrIncrement(ctx context.Context, item domain.LineItem) (domain.CartSnapshot, error)
	SetQuantity(ctx context.Context, key domain.ItemKey, quantity int) (domain.CartSnapshot, error)
	Remove(ctx context.Context, key domain.ItemKey) (domain.CartSnapshot, error)
	Refresh(ctx context.Context) (domain.CartSnapshot, error)
	Flush(ctx context.Context) error
}

// EventListener receives line-scoped settlement events
type EventListener func(domain.SyncEvent)
