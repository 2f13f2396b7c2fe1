// internal/core/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingMethod is the delivery option chosen at checkout. Its cost
// replaces the flat shipping fee in the pricing rules.
type ShippingMethod struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
	ETA  string          `json:"eta,omitempty"`
}

// Customer is the opaque identity read from the session service
type Customer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// OrderDraft is an immutable copy of the cart handed to the payment
// step. It is created once per checkout attempt and never mutated;
// later cart changes do not touch it.
type OrderDraft struct {
	ID             uuid.UUID        `json:"id"`
	Items          []LineItem       `json:"items"`
	Pricing        PricingBreakdown `json:"pricing"`
	ShippingMethod ShippingMethod   `json:"shipping_method"`
	Note           string           `json:"note,omitempty"`
	Customer       Customer         `json:"customer"`
	CreatedAt      time.Time        `json:"created_at"`
}
