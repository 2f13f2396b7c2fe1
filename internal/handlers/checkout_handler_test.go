package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
	"github.com/mcerda/storefront-be/internal/core/services"
	"github.com/mcerda/storefront-be/internal/handlers"
	"github.com/mcerda/storefront-be/internal/handlers/middleware"
	"github.com/mcerda/storefront-be/test/helpers"
	"github.com/mcerda/storefront-be/test/mocks"
)

type checkoutFixture struct {
	remote   *mocks.MockRemoteCartClient
	drafts   *mocks.MockDraftRepository
	sessions *mocks.MockSessionService
	manager  *services.Manager
	mux      *http.ServeMux
}

func setupCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	drafts := mocks.NewMockDraftRepository(ctrl)
	sessions := mocks.NewMockSessionService(ctrl)

	factory := func(sessionID string) ports.RemoteCartClient { return remote }
	cfg := services.SyncerConfig{RetryMax: 1, RetryInterval: time.Millisecond}
	manager := services.NewManager(factory, cfg, time.Hour, nil, helpers.TestLogger())

	assembler := services.NewCheckoutAssembler(drafts, helpers.TestPricingRules(), helpers.TestLogger())
	handler := handlers.NewCheckoutHandler(manager, assembler, drafts, sessions, helpers.TestLogger())

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/checkout", middleware.SessionID(http.HandlerFunc(handler.Checkout)))
	mux.Handle("GET /api/v1/checkout/drafts/{id}", middleware.SessionID(http.HandlerFunc(handler.GetDraft)))

	return &checkoutFixture{remote: remote, drafts: drafts, sessions: sessions, manager: manager, mux: mux}
}

func (f *checkoutFixture) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Session-ID", "sess-test")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *checkoutFixture) seedCart(t *testing.T) {
	t.Helper()
	item := helpers.CreateTestLineItem(func(i *domain.LineItem) { i.Quantity = 2 })
	confirmed := item
	f.remote.EXPECT().Add(gomock.Any(), item.Key, 2).Return(&confirmed, nil)

	_, err := f.manager.Cart("sess-test").AddOrIncrement(context.Background(), item)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.manager.FlushAll(ctx))
}

const checkoutBody = `{"shipping_method":{"id":"express","name":"Express","cost":"15.00","eta":"1-2 days"},"note":"leave at door"}`

func TestCheckoutHandler_Checkout(t *testing.T) {
	t.Run("creates_order_draft", func(t *testing.T) {
		f := setupCheckoutFixture(t)
		f.seedCart(t)

		f.sessions.EXPECT().
			Current(gomock.Any(), "sess-test").
			Return(&domain.Customer{ID: "cust-1", Username: "maria"}, nil)
		f.drafts.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		rec := f.request(t, http.MethodPost, "/api/v1/checkout", checkoutBody)
		require.Equal(t, http.StatusCreated, rec.Code)

		var draft domain.OrderDraft
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&draft))
		assert.Equal(t, "express", draft.ShippingMethod.ID)
		assert.Equal(t, "leave at door", draft.Note)
		assert.Equal(t, "maria", draft.Customer.Username)
		require.Len(t, draft.Items, 1)
		// 50 subtotal + 15 method cost + 4 tax.
		assert.Equal(t, "69", draft.Pricing.Total.String())
	})

	t.Run("empty_cart_rejected", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		f.sessions.EXPECT().
			Current(gomock.Any(), "sess-test").
			Return(&domain.Customer{ID: "cust-1"}, nil)

		rec := f.request(t, http.MethodPost, "/api/v1/checkout", checkoutBody)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("pending_operations_conflict", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		item := helpers.CreateTestLineItem()
		confirmed := item
		release := make(chan struct{})
		f.remote.EXPECT().
			Add(gomock.Any(), item.Key, 1).
			DoAndReturn(func(context.Context, domain.ItemKey, int) (*domain.LineItem, error) {
				<-release
				return &confirmed, nil
			})
		f.sessions.EXPECT().
			Current(gomock.Any(), "sess-test").
			Return(&domain.Customer{ID: "cust-1"}, nil)

		_, err := f.manager.Cart("sess-test").AddOrIncrement(context.Background(), item)
		require.NoError(t, err)

		rec := f.request(t, http.MethodPost, "/api/v1/checkout", checkoutBody)
		assert.Equal(t, http.StatusConflict, rec.Code)

		close(release)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, f.manager.FlushAll(ctx))
	})

	t.Run("unknown_session_unauthorized", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		f.sessions.EXPECT().
			Current(gomock.Any(), "sess-test").
			Return(nil, domain.ErrSessionNotFound)

		rec := f.request(t, http.MethodPost, "/api/v1/checkout", checkoutBody)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing_shipping_method_rejected", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		rec := f.request(t, http.MethodPost, "/api/v1/checkout", `{"note":"hi"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed_body_rejected", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		rec := f.request(t, http.MethodPost, "/api/v1/checkout", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCheckoutHandler_GetDraft(t *testing.T) {
	t.Run("returns_draft", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		id := uuid.New()
		f.drafts.EXPECT().
			FindByID(gomock.Any(), id).
			Return(&domain.OrderDraft{ID: id}, nil)

		rec := f.request(t, http.MethodGet, "/api/v1/checkout/drafts/"+id.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)

		var draft domain.OrderDraft
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&draft))
		assert.Equal(t, id, draft.ID)
	})

	t.Run("missing_draft_not_found", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		id := uuid.New()
		f.drafts.EXPECT().
			FindByID(gomock.Any(), id).
			Return(nil, domain.ErrDraftNotFound)

		rec := f.request(t, http.MethodGet, "/api/v1/checkout/drafts/"+id.String(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid_id_rejected", func(t *testing.T) {
		f := setupCheckoutFixture(t)

		rec := f.request(t, http.MethodGet, "/api/v1/checkout/drafts/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
