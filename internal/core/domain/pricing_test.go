package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcerda/storefront-be/internal/core/domain"
)

func rules(taxRate, shipping string, precision int32) domain.PricingRules {
	return domain.PricingRules{
		TaxRate:     decimal.RequireFromString(taxRate),
		ShippingFee: decimal.RequireFromString(shipping),
		Precision:   precision,
	}
}

func item(productID string, price string, quantity int, stock domain.StockStatus) domain.LineItem {
	return domain.LineItem{
		Key:       domain.ItemKey{ProductID: productID},
		Name:      productID,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  quantity,
		Stock:     stock,
	}
}

func TestComputeBreakdown(t *testing.T) {
	tests := []struct {
		name         string
		items        []domain.LineItem
		rules        domain.PricingRules
		include      domain.IncludeFunc
		wantSubtotal string
		wantShipping string
		wantTax      string
		wantTotal    string
		wantError    bool
	}{
		{
			name: "two_lines_with_tax_and_shipping",
			items: []domain.LineItem{
				item("vase", "50.000", 2, domain.StockInStock),
				item("plate", "25.000", 4, domain.StockInStock),
			},
			rules:        rules("0.08", "10.000", 3),
			wantSubtotal: "200",
			wantShipping: "10",
			wantTax:      "16",
			wantTotal:    "226",
		},
		{
			name:         "empty_cart_still_carries_shipping",
			items:        nil,
			rules:        rules("0.08", "10.00", 2),
			wantSubtotal: "0",
			wantShipping: "10",
			wantTax:      "0",
			wantTotal:    "10",
		},
		{
			name: "tax_rounds_once_at_configured_precision",
			items: []domain.LineItem{
				item("sticker", "0.33", 1, domain.StockInStock),
			},
			rules:        rules("0.085", "0", 2),
			wantSubtotal: "0.33",
			wantShipping: "0",
			wantTax:      "0.03", // 0.02805 rounds to 0.03
			wantTotal:    "0.36",
		},
		{
			name: "repeated_unit_price_does_not_drift",
			items: []domain.LineItem{
				item("pen", "0.10", 3, domain.StockInStock),
			},
			rules:        rules("0", "0", 2),
			wantSubtotal: "0.3",
			wantShipping: "0",
			wantTax:      "0",
			wantTotal:    "0.3",
		},
		{
			name: "out_of_stock_included_by_default",
			items: []domain.LineItem{
				item("vase", "50.00", 1, domain.StockInStock),
				item("gone", "30.00", 1, domain.StockOutOfStock),
			},
			rules:        rules("0", "0", 2),
			wantSubtotal: "80",
			wantShipping: "0",
			wantTax:      "0",
			wantTotal:    "80",
		},
		{
			name: "exclude_out_of_stock_predicate",
			items: []domain.LineItem{
				item("vase", "50.00", 1, domain.StockInStock),
				item("gone", "30.00", 1, domain.StockOutOfStock),
				item("old", "20.00", 1, domain.StockExpired),
			},
			rules:        rules("0", "0", 2),
			include:      domain.ExcludeOutOfStock,
			wantSubtotal: "50",
			wantShipping: "0",
			wantTax:      "0",
			wantTotal:    "50",
		},
		{
			name: "zero_quantity_rejected",
			items: []domain.LineItem{
				item("vase", "50.00", 0, domain.StockInStock),
			},
			rules:     rules("0.08", "10.00", 2),
			wantError: true,
		},
		{
			name: "negative_price_rejected",
			items: []domain.LineItem{
				item("vase", "-1.00", 1, domain.StockInStock),
			},
			rules:     rules("0.08", "10.00", 2),
			wantError: true,
		},
		{
			name: "excluded_line_still_validated",
			items: []domain.LineItem{
				item("gone", "30.00", -2, domain.StockOutOfStock),
			},
			rules:     rules("0", "0", 2),
			include:   domain.ExcludeOutOfStock,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ComputeBreakdown(tt.items, tt.rules, tt.include)

			if tt.wantError {
				require.Error(t, err)
				var invalidErr *domain.InvalidLineItemError
				assert.ErrorAs(t, err, &invalidErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, got.Subtotal.Equal(decimal.RequireFromString(tt.wantSubtotal)),
				"subtotal = %s, want %s", got.Subtotal, tt.wantSubtotal)
			assert.True(t, got.Shipping.Equal(decimal.RequireFromString(tt.wantShipping)),
				"shipping = %s, want %s", got.Shipping, tt.wantShipping)
			assert.True(t, got.Tax.Equal(decimal.RequireFromString(tt.wantTax)),
				"tax = %s, want %s", got.Tax, tt.wantTax)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total = %s, want %s", got.Total, tt.wantTotal)
		})
	}
}

func TestComputeBreakdown_Deterministic(t *testing.T) {
	items := []domain.LineItem{
		item("vase", "19.99", 3, domain.StockInStock),
		item("plate", "7.77", 7, domain.StockLowStock),
	}
	r := rules("0.0825", "5.50", 2)

	first, err := domain.ComputeBreakdown(items, r, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := domain.ComputeBreakdown(items, r, nil)
		require.NoError(t, err)
		assert.True(t, first.Total.Equal(again.Total), "recomputation drifted: %s vs %s", first.Total, again.Total)
	}
}
