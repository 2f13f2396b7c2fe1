// test/helpers/helpers.go
package helpers

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mcerda/storefront-be/internal/core/domain"
)

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestRedis creates a miniredis-backed client for tests
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err, "Could not start miniredis")

	client := redis.NewClient(&redis.Options{
		Addr: server.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	return &TestRedis{Client: client, Server: server}
}

// CreateTestLineItem creates a line item with sensible defaults,
// adjustable through override functions
func CreateTestLineItem(overrides ...func(*domain.LineItem)) domain.LineItem {
	item := domain.LineItem{
		Key: domain.ItemKey{
			ProductID:  "prod-001",
			VariantKey: "red/m",
		},
		Name:       "Test Product",
		UnitPrice:  decimal.NewFromFloat(25.00),
		Quantity:   1,
		Stock:      domain.StockInStock,
		StockCount: 10,
	}
	for _, override := range overrides {
		override(&item)
	}
	return item
}

// CreateTestLineItems creates n distinct line items
func CreateTestLineItems(n int) []domain.LineItem {
	items := make([]domain.LineItem, n)
	for i := 0; i < n; i++ {
		idx := i
		items[i] = CreateTestLineItem(func(item *domain.LineItem) {
			item.Key.ProductID = "prod-" + string(rune('a'+idx))
			item.Quantity = idx + 1
		})
	}
	return items
}

// TestPricingRules returns fixed pricing rules for deterministic tests
func TestPricingRules() domain.PricingRules {
	return domain.PricingRules{
		TaxRate:     decimal.NewFromFloat(0.08),
		ShippingFee: decimal.NewFromFloat(10.00),
		Precision:   3,
	}
}

// CreateTestSnapshot builds a settled snapshot from items
func CreateTestSnapshot(items ...domain.LineItem) domain.CartSnapshot {
	lines := make([]domain.CartLine, len(items))
	for i, item := range items {
		lines[i] = domain.CartLine{LineItem: item, State: domain.StateSettled}
	}
	return domain.CartSnapshot{Lines: lines, TakenAt: time.Now()}
}
