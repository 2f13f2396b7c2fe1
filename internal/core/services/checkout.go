// internal/core/services/checkout.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
)

// CheckoutAssembler snapshots the cart plus a chosen shipping method
// into an immutable order draft for the downstream payment step.
type CheckoutAssembler struct {
	drafts ports.DraftRepository
	rules  domain.PricingRules
	logger *slog.Logger
}

// NewCheckoutAssembler creates a new checkout assembler
func NewCheckoutAssembler(drafts ports.DraftRepository, rules domain.PricingRules, logger *slog.Logger) *CheckoutAssembler {
	return &CheckoutAssembler{
		drafts: drafts,
		rules:  rules,
		logger: logger.With(slog.String("service", "checkout")),
	}
}

// Assemble creates an order draft from the given snapshot. It fails
// with ErrEmptyCart on an empty snapshot and with ErrPendingOperations
// while any line is unsettled: checkout must not proceed for a quantity
// the server is about to reject.
//
// The chosen shipping method's cost replaces the flat shipping fee.
// The returned draft is a deep copy; later cart mutations never affect it.
func (a *CheckoutAssembler) Assemble(ctx context.Context, snapshot domain.CartSnapshot, method domain.ShippingMethod, note string, customer domain.Customer) (*domain.OrderDraft, error) {
	if snapshot.Empty() {
		return nil, domain.ErrEmptyCart
	}
	if snapshot.HasPending() {
		return nil, domain.ErrPendingOperations
	}

	rules := a.rules
	if method.ID != "" {
		rules.ShippingFee = method.Cost
	}

	pricing, err := domain.ComputeBreakdown(snapshot.Items(), rules, domain.IncludeAll)
	if err != nil {
		return nil, fmt.Errorf("failed to price order draft: %w", err)
	}

	draft := &domain.OrderDraft{
		ID:             uuid.New(),
		Items:          snapshot.Items(),
		Pricing:        pricing,
		ShippingMethod: method,
		Note:           note,
		Customer:       customer,
		CreatedAt:      time.Now().UTC(),
	}

	if a.drafts != nil {
		if err := a.drafts.Save(ctx, draft); err != nil {
			return nil, fmt.Errorf("failed to persist order draft: %w", err)
		}
	}

	a.logger.InfoContext(ctx, "order draft assembled",
		slog.String("draft_id", draft.ID.String()),
		slog.Int("lines", len(draft.Items)),
		slog.String("total", draft.Pricing.Total.String()),
		slog.String("shipping_method", method.ID))

	return draft, nil
}
