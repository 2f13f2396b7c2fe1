// internal/handlers/checkout.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
	"github.com/mcerda/storefront-be/internal/core/services"
	"github.com/mcerda/storefront-be/internal/handlers/middleware"
)

// CheckoutHandler handles checkout-related HTTP requests
type CheckoutHandler struct {
	manager   *services.Manager
	assembler *services.CheckoutAssembler
	drafts    ports.DraftRepository
	sessions  ports.SessionService
	logger    *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(
	manager *services.Manager,
	assembler *services.CheckoutAssembler,
	drafts ports.DraftRepository,
	sessions ports.SessionService,
	logger *slog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		manager:   manager,
		assembler: assembler,
		drafts:    drafts,
		sessions:  sessions,
		logger:    logger.With(slog.String("handler", "checkout")),
	}
}

// CheckoutRequest is the body for POST /api/v1/checkout
type CheckoutRequest struct {
	ShippingMethod ShippingMethodRequest `json:"shipping_method"`
	Note           string                `json:"note"`
}

// ShippingMethodRequest carries the delivery option chosen by the client
type ShippingMethodRequest struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
	ETA  string          `json:"eta"`
}

// Validate checks the checkout request fields
func (r *CheckoutRequest) Validate() error {
	if r.ShippingMethod.ID == "" {
		return errors.New("shipping_method.id is required")
	}
	if r.ShippingMethod.Cost.IsNegative() {
		return errors.New("shipping_method.cost cannot be negative")
	}
	return nil
}

// ToDomain converts the request's shipping method to the domain model
func (r *ShippingMethodRequest) ToDomain() domain.ShippingMethod {
	return domain.ShippingMethod{
		ID:   r.ID,
		Name: r.Name,
		Cost: r.Cost,
		ETA:  r.ETA,
	}
}

// Checkout handles POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.SessionFromContext(ctx)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer, err := h.resolveCustomer(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			h.respondError(w, http.StatusUnauthorized, "Unknown or expired session")
			return
		}
		h.logger.ErrorContext(ctx, "failed to resolve customer",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to resolve customer")
		return
	}

	snapshot := h.manager.Cart(sessionID).Snapshot()

	draft, err := h.assembler.Assemble(ctx, snapshot, req.ShippingMethod.ToDomain(), req.Note, customer)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyCart):
			h.respondError(w, http.StatusUnprocessableEntity, "Cart is empty")
		case errors.Is(err, domain.ErrPendingOperations):
			h.respondError(w, http.StatusConflict, "Cart has operations still syncing, retry shortly")
		default:
			h.logger.ErrorContext(ctx, "failed to assemble order draft",
				slog.String("error", err.Error()))
			h.respondError(w, http.StatusInternalServerError, "Failed to assemble order draft")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, draft)
}

// GetDraft handles GET /api/v1/checkout/drafts/{id}
func (h *CheckoutHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid draft ID format")
		return
	}

	draft, err := h.drafts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDraftNotFound) {
			h.respondError(w, http.StatusNotFound, "Order draft not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to load order draft",
			slog.String("draft_id", id.String()),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to load order draft")
		return
	}

	h.respondJSON(w, http.StatusOK, draft)
}

// resolveCustomer looks up the customer bound to the session. Without a
// session service the draft is assembled for an anonymous customer
// carrying only the session credential.
func (h *CheckoutHandler) resolveCustomer(ctx context.Context, sessionID string) (domain.Customer, error) {
	if h.sessions == nil {
		return domain.Customer{ID: sessionID}, nil
	}
	customer, err := h.sessions.Current(ctx, sessionID)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (h *CheckoutHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *CheckoutHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
