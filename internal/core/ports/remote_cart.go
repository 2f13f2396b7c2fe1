// internal/core/ports/remote_cart.go
package ports

import (
	"context"

	"github.com/mcerda/storefront-be/internal/core/domain"
)

// RemoteCartClient is the contract to the remote cart persistence
// service. The service is fallible and latent; implementations must
// classify failures as domain.TransientSyncError (network, timeout,
// upstream overload) or domain.DefiniteSyncError (item gone, stock
// rejection), because the reconciliation policy depends on that
// distinction.
//
// Add and UpdateQuantity return the server-confirmed line, which may
// differ from the requested one (e.g. quantity clamped to stock).
type RemoteCartClient interface {
	List(ctx context.Context) ([]domain.LineItem, error)
	Add(ctx context.Context, key domain.ItemKey, quantity int) (*domain.LineItem, error)
	UpdateQuantity(ctx context.Context, key domain.ItemKey, quantity int) (*domain.LineItem, error)
	Remove(ctx context.Context, key domain.ItemKey) error
}
