package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/services"
	"github.com/mcerda/storefront-be/test/helpers"
	"github.com/mcerda/storefront-be/test/mocks"
)

// eventCollector records settlement events for assertions
type eventCollector struct {
	mu     sync.Mutex
	events []domain.SyncEvent
}

func (c *eventCollector) record(ev domain.SyncEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) all() []domain.SyncEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.SyncEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *eventCollector) byType(t domain.SyncEventType) []domain.SyncEvent {
	var out []domain.SyncEvent
	for _, ev := range c.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestSyncer(t *testing.T, remote *mocks.MockRemoteCartClient) (*services.Syncer, *services.CartStore, *eventCollector) {
	t.Helper()
	store := services.NewCartStore()
	events := &eventCollector{}
	cfg := services.SyncerConfig{RetryMax: 2, RetryInterval: time.Millisecond}
	return services.NewSyncer(store, remote, cfg, events.record, helpers.TestLogger()), store, events
}

func flush(t *testing.T, s *services.Syncer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
}

func TestSyncer_AddOrIncrement_OptimisticThenSettled(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem()
	confirmed := item
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 1).
		Return(&confirmed, nil)

	snap, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)

	// The returned snapshot reflects the local change before settlement.
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, domain.StatePending, snap.Lines[0].State)
	assert.Equal(t, 1, snap.Lines[0].Quantity)

	flush(t, syncer)

	final := syncer.Snapshot()
	require.Len(t, final.Lines, 1)
	assert.Equal(t, domain.StateSettled, final.Lines[0].State)

	settled := events.byType(domain.EventSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, item.Key, settled[0].Key)
}

func TestSyncer_ServerCorrectedQuantity(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem(func(i *domain.LineItem) { i.Quantity = 8 })
	clamped := item
	clamped.Quantity = 5
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 8).
		Return(&clamped, nil)

	_, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	flush(t, syncer)

	final := syncer.Snapshot()
	require.Len(t, final.Lines, 1)
	assert.Equal(t, 5, final.Lines[0].Quantity, "server-confirmed quantity is authoritative")
	assert.Equal(t, domain.StateSettled, final.Lines[0].State)

	corrected := events.byType(domain.EventCorrected)
	require.Len(t, corrected, 1)
	assert.Equal(t, 5, corrected[0].ConfirmedQuantity)
}

func TestSyncer_DefiniteFailureRollsBackNewLine(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem()
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 1).
		Return(nil, &domain.DefiniteSyncError{Op: "add", Key: item.Key, Reason: "quantity exceeds stock"})

	snap, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)

	flush(t, syncer)

	// The line did not exist before the add, so rollback means absence.
	assert.Empty(t, syncer.Snapshot().Lines)

	rolledBack := events.byType(domain.EventRolledBack)
	require.Len(t, rolledBack, 1)
	assert.Contains(t, rolledBack[0].Reason, "quantity exceeds stock")
}

func TestSyncer_DefiniteFailureRevertsQuantityExactly(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem(func(i *domain.LineItem) { i.Quantity = 2 })
	confirmed := item
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 2).
		Return(&confirmed, nil)

	_, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	flush(t, syncer)

	remote.EXPECT().
		UpdateQuantity(gomock.Any(), item.Key, 7).
		Return(nil, &domain.DefiniteSyncError{Op: "update_quantity", Key: item.Key, Reason: "rejected"})

	_, err = syncer.SetQuantity(context.Background(), item.Key, 7)
	require.NoError(t, err)
	flush(t, syncer)

	final := syncer.Snapshot()
	require.Len(t, final.Lines, 1)
	assert.Equal(t, 2, final.Lines[0].Quantity, "rollback must restore the captured pre-mutation quantity")
	assert.Equal(t, domain.StateRolledBack, final.Lines[0].State)
	assert.Len(t, events.byType(domain.EventRolledBack), 1)
}

func TestSyncer_TransientFailureRetriesThenSettles(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem()
	confirmed := item
	transient := &domain.TransientSyncError{Op: "add", Key: item.Key, Cause: context.DeadlineExceeded}
	gomock.InOrder(
		remote.EXPECT().Add(gomock.Any(), item.Key, 1).Return(nil, transient),
		remote.EXPECT().Add(gomock.Any(), item.Key, 1).Return(&confirmed, nil),
	)

	_, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	flush(t, syncer)

	final := syncer.Snapshot()
	require.Len(t, final.Lines, 1)
	assert.Equal(t, 1, final.Lines[0].Quantity, "optimistic value must survive the retry window")
	assert.Equal(t, domain.StateSettled, final.Lines[0].State)
	assert.Empty(t, events.byType(domain.EventRolledBack))
}

func TestSyncer_RetryExhaustionRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem()
	transient := &domain.TransientSyncError{Op: "add", Key: item.Key, Cause: context.DeadlineExceeded}
	// Initial attempt plus RetryMax retries.
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 1).
		Return(nil, transient).
		Times(3)

	_, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	flush(t, syncer)

	assert.Empty(t, syncer.Snapshot().Lines)
	assert.Len(t, events.byType(domain.EventRolledBack), 1)
}

func TestSyncer_RemoveWinsOverInFlightUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem(func(i *domain.LineItem) { i.Quantity = 2 })
	confirmed := item
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 2).
		Return(&confirmed, nil)

	_, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	flush(t, syncer)

	// Hold the update response until after the remove has been issued.
	release := make(chan struct{})
	updated := item
	updated.Quantity = 5
	remote.EXPECT().
		UpdateQuantity(gomock.Any(), item.Key, 5).
		DoAndReturn(func(context.Context, domain.ItemKey, int) (*domain.LineItem, error) {
			<-release
			return &updated, nil
		})
	remote.EXPECT().
		Remove(gomock.Any(), item.Key).
		Return(nil)

	_, err = syncer.SetQuantity(context.Background(), item.Key, 5)
	require.NoError(t, err)

	snap, err := syncer.Remove(context.Background(), item.Key)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)

	close(release)
	flush(t, syncer)

	// The late update response must not resurrect the removed line.
	assert.Empty(t, syncer.Snapshot().Lines)

	for _, ev := range events.all() {
		if ev.Op == "update_quantity" {
			t.Fatalf("superseded update produced event %+v", ev)
		}
	}
}

func TestSyncer_LastIssuedQuantityWinsOverReorderedResponses(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem(func(i *domain.LineItem) { i.Quantity = 2 })
	confirmed := item
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 2).
		Return(&confirmed, nil)

	_, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	flush(t, syncer)

	// Hold the first update's response so it arrives after the second
	// update has already settled.
	release := make(chan struct{})
	first := item
	first.Quantity = 3
	second := item
	second.Quantity = 7
	remote.EXPECT().
		UpdateQuantity(gomock.Any(), item.Key, 3).
		DoAndReturn(func(context.Context, domain.ItemKey, int) (*domain.LineItem, error) {
			<-release
			return &first, nil
		})
	remote.EXPECT().
		UpdateQuantity(gomock.Any(), item.Key, 7).
		Return(&second, nil)

	_, err = syncer.SetQuantity(context.Background(), item.Key, 3)
	require.NoError(t, err)
	_, err = syncer.SetQuantity(context.Background(), item.Key, 7)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := syncer.Snapshot()
		return len(snap.Lines) == 1 && snap.Lines[0].State == domain.StateSettled
	}, 5*time.Second, time.Millisecond, "second update must settle while the first response is held")

	close(release)
	flush(t, syncer)

	// The late first response must not regress the quantity.
	final := syncer.Snapshot()
	require.Len(t, final.Lines, 1)
	assert.Equal(t, 7, final.Lines[0].Quantity, "last issued value wins regardless of response arrival order")
	assert.Equal(t, domain.StateSettled, final.Lines[0].State)

	// The superseded update is discarded silently; only the winning one
	// produces a settlement event.
	var updateEvents int
	for _, ev := range events.all() {
		if ev.Op == "update_quantity" {
			updateEvents++
		}
	}
	assert.Equal(t, 1, updateEvents)
}

func TestSyncer_RemoveNotFoundRemotelyStillSettles(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, events := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem()
	confirmed := item
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 1).
		Return(&confirmed, nil)

	_, err := syncer.AddOrIncrement(context.Background(), item)
	require.NoError(t, err)
	flush(t, syncer)

	remote.EXPECT().
		Remove(gomock.Any(), item.Key).
		Return(&domain.DefiniteSyncError{Op: "remove", Key: item.Key, Code: domain.NotFoundCode, Reason: "not found"})

	_, err = syncer.Remove(context.Background(), item.Key)
	require.NoError(t, err)
	flush(t, syncer)

	// Already gone remotely means the remove achieved its goal.
	assert.Empty(t, syncer.Snapshot().Lines)
	assert.Empty(t, events.byType(domain.EventRolledBack))
}

func TestSyncer_RemoveAbsentKeyIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, _ := newTestSyncer(t, remote)

	// No EXPECT: a remote call here would fail the test.
	snap, err := syncer.Remove(context.Background(), domain.ItemKey{ProductID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
}

func TestSyncer_Refresh(t *testing.T) {
	t.Run("replaces_cart_when_settled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		remote := mocks.NewMockRemoteCartClient(ctrl)
		syncer, _, _ := newTestSyncer(t, remote)

		items := helpers.CreateTestLineItems(2)
		remote.EXPECT().List(gomock.Any()).Return(items, nil)

		snap, err := syncer.Refresh(context.Background())
		require.NoError(t, err)
		require.Len(t, snap.Lines, 2)
		for _, line := range snap.Lines {
			assert.Equal(t, domain.StateSettled, line.State)
		}
	})

	t.Run("rejected_while_operations_pending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		remote := mocks.NewMockRemoteCartClient(ctrl)
		syncer, _, _ := newTestSyncer(t, remote)

		item := helpers.CreateTestLineItem()
		confirmed := item
		release := make(chan struct{})
		remote.EXPECT().
			Add(gomock.Any(), item.Key, 1).
			DoAndReturn(func(context.Context, domain.ItemKey, int) (*domain.LineItem, error) {
				<-release
				return &confirmed, nil
			})
		remote.EXPECT().List(gomock.Any()).Return(nil, nil)

		_, err := syncer.AddOrIncrement(context.Background(), item)
		require.NoError(t, err)

		_, err = syncer.Refresh(context.Background())
		assert.ErrorIs(t, err, domain.ErrPendingOperations)

		close(release)
		flush(t, syncer)
	})

	t.Run("propagates_list_failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		remote := mocks.NewMockRemoteCartClient(ctrl)
		syncer, _, _ := newTestSyncer(t, remote)

		remote.EXPECT().
			List(gomock.Any()).
			Return(nil, &domain.TransientSyncError{Op: "list", Cause: context.DeadlineExceeded})

		_, err := syncer.Refresh(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsTransient(err))
	})
}

func TestSyncer_RequestCancellationDoesNotAbortSettlement(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockRemoteCartClient(ctrl)
	syncer, _, _ := newTestSyncer(t, remote)

	item := helpers.CreateTestLineItem()
	confirmed := item
	remote.EXPECT().
		Add(gomock.Any(), item.Key, 1).
		DoAndReturn(func(ctx context.Context, _ domain.ItemKey, _ int) (*domain.LineItem, error) {
			require.NoError(t, ctx.Err(), "remote call context must be detached from the request")
			return &confirmed, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := syncer.AddOrIncrement(ctx, item)
	require.NoError(t, err)
	cancel()

	flush(t, syncer)

	final := syncer.Snapshot()
	require.Len(t, final.Lines, 1)
	assert.Equal(t, domain.StateSettled, final.Lines[0].State)
}
