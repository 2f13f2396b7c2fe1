// internal/core/domain/pricing.go
package domain

import (
	"github.com/shopspring/decimal"
)

// PricingRules holds the configured pricing inputs. Tax rate and
// shipping fee are configuration, not hardcoded policy.
type PricingRules struct {
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Precision   int32           `json:"precision"`
}

// PricingBreakdown is the derived price summary for a set of line items
type PricingBreakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// IncludeFunc decides whether a line item participates in pricing. The
// predicate keeps inclusion policy explicit and testable instead of
// hardcoding stock-based exclusion.
type IncludeFunc func(LineItem) bool

// IncludeAll counts every line item, out-of-stock included.
func IncludeAll(LineItem) bool { return true }

// ExcludeOutOfStock skips lines that cannot currently ship.
func ExcludeOutOfStock(item LineItem) bool {
	return item.Stock != StockOutOfStock && item.Stock != StockExpired
}

// ComputeBreakdown derives subtotal, shipping, tax and total from the
// given items under the given rules. Pure: no state, no I/O.
//
// Arithmetic is exact decimal; rounding is applied once, to the tax
// line, so repeated recomputation never drifts. Rejects negative prices
// and quantities < 1 with InvalidLineItemError.
func ComputeBreakdown(items []LineItem, rules PricingRules, include IncludeFunc) (PricingBreakdown, error) {
	if include == nil {
		include = IncludeAll
	}

	subtotal := decimal.Zero
	for i := range items {
		item := items[i]
		if item.Quantity < 1 {
			return PricingBreakdown{}, &InvalidLineItemError{Key: item.Key, Field: "quantity", Reason: "must be >= 1"}
		}
		if item.UnitPrice.IsNegative() {
			return PricingBreakdown{}, &InvalidLineItemError{Key: item.Key, Field: "unit_price", Reason: "cannot be negative"}
		}
		if !include(item) {
			continue
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	tax := subtotal.Mul(rules.TaxRate).Round(rules.Precision)

	return PricingBreakdown{
		Subtotal: subtotal,
		Shipping: rules.ShippingFee,
		Tax:      tax,
		Total:    subtotal.Add(rules.ShippingFee).Add(tax),
	}, nil
}
