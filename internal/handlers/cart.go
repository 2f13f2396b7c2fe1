// internal/handlers/cart.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/services"
	"github.com/mcerda/storefront-be/internal/handlers/middleware"
)

// CartHandler handles cart-related HTTP requests. Every response body
// carries the full optimistic snapshot plus the derived pricing
// breakdown, so the client never needs a second round trip after a
// mutation.
type CartHandler struct {
	manager *services.Manager
	rules   domain.PricingRules
	logger  *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(manager *services.Manager, rules domain.PricingRules, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		manager: manager,
		rules:   rules,
		logger:  logger.With(slog.String("handler", "cart")),
	}
}

// CartResponse is the standard cart payload returned by every endpoint
type CartResponse struct {
	Lines      []domain.CartLine       `json:"lines"`
	ItemCount  int                     `json:"item_count"`
	HasPending bool                    `json:"has_pending"`
	Pricing    domain.PricingBreakdown `json:"pricing"`
	TakenAt    time.Time               `json:"taken_at"`
}

// AddItemRequest is the body for POST /api/v1/cart/items
type AddItemRequest struct {
	ProductID  string          `json:"product_id"`
	VariantKey string          `json:"variant_key"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Stock      string          `json:"stock_status"`
	StockCount int             `json:"stock_count"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	ImageURL   string          `json:"image_url,omitempty"`
}

// ToDomain converts the request into a line item. Quantity defaults to
// one to match the usual add-to-cart button semantics.
func (r *AddItemRequest) ToDomain() domain.LineItem {
	quantity := r.Quantity
	if quantity == 0 {
		quantity = 1
	}
	return domain.LineItem{
		Key:        domain.ItemKey{ProductID: r.ProductID, VariantKey: r.VariantKey},
		Name:       r.Name,
		UnitPrice:  r.UnitPrice,
		Quantity:   quantity,
		Stock:      domain.StockStatus(r.Stock),
		StockCount: r.StockCount,
		ExpiryDate: r.ExpiryDate,
		ImageURL:   r.ImageURL,
	}
}

// UpdateQuantityRequest is the body for PUT /api/v1/cart/items/{product}/{variant}
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cart := h.manager.Cart(middleware.SessionFromContext(ctx))
	h.respondSnapshot(w, r, http.StatusOK, cart.Snapshot())
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item := req.ToDomain()
	if err := item.Validate(); err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	cart := h.manager.Cart(middleware.SessionFromContext(ctx))
	snap, err := cart.AddOrIncrement(ctx, item)
	if err != nil {
		h.respondDomainError(ctx, w, err, "failed to add cart item")
		return
	}

	h.logger.InfoContext(ctx, "cart item added",
		slog.String("key", item.Key.String()),
		slog.Int("quantity", item.Quantity))

	h.respondSnapshot(w, r, http.StatusAccepted, snap)
}

// UpdateQuantity handles PUT /api/v1/cart/items/{product}/{variant}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := pathKey(r)
	if key.ProductID == "" {
		h.respondError(w, http.StatusBadRequest, "Missing product ID")
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cart := h.manager.Cart(middleware.SessionFromContext(ctx))
	snap, err := cart.SetQuantity(ctx, key, req.Quantity)
	if err != nil {
		h.respondDomainError(ctx, w, err, "failed to update cart quantity")
		return
	}

	h.respondSnapshot(w, r, http.StatusAccepted, snap)
}

// RemoveItem handles DELETE /api/v1/cart/items/{product}/{variant}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := pathKey(r)
	if key.ProductID == "" {
		h.respondError(w, http.StatusBadRequest, "Missing product ID")
		return
	}

	cart := h.manager.Cart(middleware.SessionFromContext(ctx))
	snap, err := cart.Remove(ctx, key)
	if err != nil {
		h.respondDomainError(ctx, w, err, "failed to remove cart item")
		return
	}

	h.respondSnapshot(w, r, http.StatusAccepted, snap)
}

// RefreshCart handles POST /api/v1/cart/refresh
func (h *CartHandler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cart := h.manager.Cart(middleware.SessionFromContext(ctx))
	snap, err := cart.Refresh(ctx)
	if err != nil {
		h.respondDomainError(ctx, w, err, "failed to refresh cart")
		return
	}

	h.logger.InfoContext(ctx, "cart refreshed from remote",
		slog.Int("lines", len(snap.Lines)))

	h.respondSnapshot(w, r, http.StatusOK, snap)
}

// pathKey reads the item key from the route. The variant segment may be
// empty for products without variants.
func pathKey(r *http.Request) domain.ItemKey {
	return domain.ItemKey{
		ProductID:  r.PathValue("product"),
		VariantKey: r.PathValue("variant"),
	}
}

func (h *CartHandler) respondSnapshot(w http.ResponseWriter, r *http.Request, status int, snap domain.CartSnapshot) {
	pricing, err := services.PricingFor(snap, h.rules)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to price cart snapshot",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to price cart")
		return
	}

	h.respondJSON(w, status, CartResponse{
		Lines:      snap.Lines,
		ItemCount:  snap.ItemCount(),
		HasPending: snap.HasPending(),
		Pricing:    pricing,
		TakenAt:    snap.TakenAt,
	})
}

// respondDomainError maps domain errors onto HTTP status codes.
// Validation failures are the client's fault; remote failures surfaced
// synchronously (refresh) distinguish retryable from terminal.
func (h *CartHandler) respondDomainError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	var invalidItem *domain.InvalidLineItemError
	var invalidQty *domain.InvalidQuantityError

	switch {
	case errors.As(err, &invalidItem), errors.As(err, &invalidQty):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrPendingOperations):
		h.respondError(w, http.StatusConflict, err.Error())
	case domain.IsTransient(err):
		h.logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
		h.respondError(w, http.StatusServiceUnavailable, "Remote cart service unavailable")
	case domain.IsDefinite(err):
		h.logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
		h.respondError(w, http.StatusBadGateway, "Remote cart service rejected the request")
	default:
		h.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *CartHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *CartHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
