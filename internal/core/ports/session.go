// internal/core/ports/session.go
package ports

import (
	"context"

	"github.com/mcerda/storefront-be/internal/core/domain"
)

// SessionService resolves the current customer identity and shipping
// address. The core treats this as an opaque read.
type SessionService interface {
	Current(ctx context.Context, sessionID string) (*domain.Customer, error)
}
