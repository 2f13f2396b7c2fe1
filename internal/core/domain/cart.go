// internal/core/domain/cart.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus represents the availability of a product variant
type StockStatus string

// Stock status constants
const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockExpired    StockStatus = "expired"
)

// CountMeaningful reports whether the stock count carries meaning for
// this status. Counts are only tracked for in-stock and low-stock lines.
func (s StockStatus) CountMeaningful() bool {
	return s == StockInStock || s == StockLowStock
}

// ItemKey identifies a cart line. VariantKey disambiguates color/size
// combinations of the same product.
type ItemKey struct {
	ProductID  string `json:"product_id"`
	VariantKey string `json:"variant_key"`
}

func (k ItemKey) String() string {
	if k.VariantKey == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.VariantKey
}

// LineItem represents one product/variant entry in the cart
type LineItem struct {
	Key        ItemKey         `json:"key"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Stock      StockStatus     `json:"stock_status"`
	StockCount int             `json:"stock_count"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	ImageURL   string          `json:"image_url,omitempty"`
}

// Validate performs domain validation on the line item
func (i *LineItem) Validate() error {
	if i.Key.ProductID == "" {
		return &InvalidLineItemError{Key: i.Key, Field: "product_id", Reason: "is required"}
	}
	if i.Quantity < 1 {
		return &InvalidLineItemError{Key: i.Key, Field: "quantity", Reason: "must be >= 1"}
	}
	if i.UnitPrice.IsNegative() {
		return &InvalidLineItemError{Key: i.Key, Field: "unit_price", Reason: "cannot be negative"}
	}
	if i.StockCount < 0 {
		return &InvalidLineItemError{Key: i.Key, Field: "stock_count", Reason: "cannot be negative"}
	}
	if i.Stock == "" {
		i.Stock = StockInStock
	}
	return nil
}

// CheckStock verifies that quantity does not exceed known available
// stock. Exceeding stock is surfaced to the caller, never clamped.
func (i *LineItem) CheckStock(quantity int) error {
	if i.Stock.CountMeaningful() && quantity > i.StockCount {
		return &InvalidQuantityError{
			Key:      i.Key,
			Quantity: quantity,
			Reason:   fmt.Sprintf("exceeds available stock (%d)", i.StockCount),
		}
	}
	return nil
}

// SyncState represents the reconciliation state of a cart line
type SyncState string

// Sync state constants. Every mutation terminates in settled or
// rolled_back.
const (
	StateSettled    SyncState = "settled"
	StatePending    SyncState = "pending"
	StateRetrying   SyncState = "retrying"
	StateRolledBack SyncState = "rolled_back"
)

// InFlight reports whether a remote operation is unresolved for this state.
func (s SyncState) InFlight() bool {
	return s == StatePending || s == StateRetrying
}

// CartLine is a line item together with its sync bookkeeping
type CartLine struct {
	LineItem
	State SyncState `json:"state"`
}

// Pending reports whether the line has an unresolved remote operation.
func (l CartLine) Pending() bool { return l.State.InFlight() }

// CartSnapshot is a read-only, deep-copied view of the cart. Lines keep
// insertion order, stable across reconciliation.
type CartSnapshot struct {
	Lines   []CartLine `json:"lines"`
	TakenAt time.Time  `json:"taken_at"`
}

// Items returns the bare line items of the snapshot.
func (s CartSnapshot) Items() []LineItem {
	items := make([]LineItem, len(s.Lines))
	for i, l := range s.Lines {
		items[i] = l.LineItem
	}
	return items
}

// HasPending reports whether any line has an in-flight remote operation.
func (s CartSnapshot) HasPending() bool {
	for _, l := range s.Lines {
		if l.Pending() {
			return true
		}
	}
	return false
}

// Empty reports whether the snapshot contains no lines.
func (s CartSnapshot) Empty() bool { return len(s.Lines) == 0 }

// Find returns the line for key, if present.
func (s CartSnapshot) Find(key ItemKey) (CartLine, bool) {
	for _, l := range s.Lines {
		if l.Key == key {
			return l, true
		}
	}
	return CartLine{}, false
}

// ItemCount returns the total quantity across all lines.
func (s CartSnapshot) ItemCount() int {
	count := 0
	for _, l := range s.Lines {
		count += l.Quantity
	}
	return count
}

// SyncEventType classifies settlement outcomes surfaced to the caller
type SyncEventType string

const (
	EventSettled    SyncEventType = "settled"
	EventCorrected  SyncEventType = "corrected"
	EventRolledBack SyncEventType = "rolled_back"
)

// SyncEvent is a line-scoped settlement notification. Corrections carry
// the server-confirmed quantity; rollbacks carry the reason.
type SyncEvent struct {
	Type              SyncEventType `json:"type"`
	Key               ItemKey       `json:"key"`
	Op                string        `json:"op"`
	Reason            string        `json:"reason,omitempty"`
	ConfirmedQuantity int           `json:"confirmed_quantity,omitempty"`
}
