// internal/core/services/syncer.go
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
)

// Remote operation names used in events and logs
const (
	opAdd    = "add"
	opUpdate = "update_quantity"
	opRemove = "remove"
)

// SyncerConfig controls the retry policy for transient remote failures
type SyncerConfig struct {
	// RetryMax bounds automatic retries of transient failures.
	// Exceeding the bound escalates to a definite failure.
	RetryMax uint64
	// RetryInterval is the initial backoff between retries.
	RetryInterval time.Duration
}

// DefaultSyncerConfig returns the recommended retry policy
func DefaultSyncerConfig() SyncerConfig {
	return SyncerConfig{RetryMax: 2, RetryInterval: 200 * time.Millisecond}
}

// priorState captures the value of a line before a mutation, so a
// definite remote failure can roll it back exactly.
type priorState struct {
	existed bool
	line    domain.CartLine
	index   int
}

// Syncer orchestrates CartStore mutations against the remote cart
// service: it applies the local change immediately, issues the matching
// remote call asynchronously, and reconciles on settlement.
//
// Each issued mutation bumps a per-key generation counter and tags its
// in-flight call with it. A response whose generation has been
// superseded is discarded, so the store never regresses to an older
// value after a newer local mutation — in particular, a remove always
// wins over a late add/update response for the same key.
type Syncer struct {
	mu      sync.Mutex
	store   *CartStore
	remote  ports.RemoteCartClient
	cfg     SyncerConfig
	onEvent ports.EventListener
	logger  *slog.Logger
	gens    map[domain.ItemKey]uint64
	wg      sync.WaitGroup
}

// Statically assert that *Syncer implements the CartService interface.
var _ ports.CartService = (*Syncer)(nil)

// NewSyncer creates a sync controller owning the given store. onEvent
// receives line-scoped settlement events; nil disables event delivery.
func NewSyncer(store *CartStore, remote ports.RemoteCartClient, cfg SyncerConfig, onEvent ports.EventListener, logger *slog.Logger) *Syncer {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultSyncerConfig().RetryInterval
	}
	return &Syncer{
		store:   store,
		remote:  remote,
		cfg:     cfg,
		onEvent: onEvent,
		logger:  logger.With(slog.String("service", "cart_sync")),
		gens:    make(map[domain.ItemKey]uint64),
	}
}

// Snapshot returns the current optimistic cart state
func (s *Syncer) Snapshot() domain.CartSnapshot {
	return s.store.Snapshot()
}

// AddOrIncrement applies an add-to-cart intent optimistically and
// issues the matching remote add. The returned snapshot reflects the
// local change without waiting for the network round trip.
func (s *Syncer) AddOrIncrement(ctx context.Context, item domain.LineItem) (domain.CartSnapshot, error) {
	s.mu.Lock()
	prior := s.capture(item.Key)
	snap, err := s.store.AddOrIncrement(item)
	if err != nil {
		s.mu.Unlock()
		return domain.CartSnapshot{}, err
	}
	gen := s.bumpLocked(item.Key)
	s.store.setState(item.Key, domain.StatePending)
	snap = s.store.Snapshot()
	s.mu.Unlock()

	delta := item.Quantity
	s.dispatch(ctx, opAdd, item.Key, gen, prior, func(ctx context.Context) (*domain.LineItem, error) {
		return s.remote.Add(ctx, item.Key, delta)
	})
	return snap, nil
}

// SetQuantity applies a quantity-change intent optimistically and
// issues the matching remote update.
func (s *Syncer) SetQuantity(ctx context.Context, key domain.ItemKey, quantity int) (domain.CartSnapshot, error) {
	s.mu.Lock()
	prior := s.capture(key)
	snap, err := s.store.SetQuantity(key, quantity)
	if err != nil {
		s.mu.Unlock()
		return domain.CartSnapshot{}, err
	}
	gen := s.bumpLocked(key)
	s.store.setState(key, domain.StatePending)
	snap = s.store.Snapshot()
	s.mu.Unlock()

	s.dispatch(ctx, opUpdate, key, gen, prior, func(ctx context.Context) (*domain.LineItem, error) {
		return s.remote.UpdateQuantity(ctx, key, quantity)
	})
	return snap, nil
}

// Remove applies a remove intent optimistically and issues the matching
// remote delete. Removing an absent key is a no-op.
func (s *Syncer) Remove(ctx context.Context, key domain.ItemKey) (domain.CartSnapshot, error) {
	s.mu.Lock()
	prior := s.capture(key)
	if !prior.existed {
		snap := s.store.Snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	snap := s.store.Remove(key)
	// Bump the generation so any in-flight add/update response for
	// this key is discarded: the remove intent always wins.
	gen := s.bumpLocked(key)
	s.mu.Unlock()

	s.dispatch(ctx, opRemove, key, gen, prior, func(ctx context.Context) (*domain.LineItem, error) {
		return nil, s.remote.Remove(ctx, key)
	})
	return snap, nil
}

// Refresh replaces the cart with the full remote list. It is rejected
// while operations are in flight, to avoid guessing merge semantics for
// unsettled lines.
func (s *Syncer) Refresh(ctx context.Context) (domain.CartSnapshot, error) {
	items, err := s.remote.List(ctx)
	if err != nil {
		return domain.CartSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.Snapshot().HasPending() {
		return domain.CartSnapshot{}, domain.ErrPendingOperations
	}
	return s.store.ReplaceAll(items), nil
}

// Flush waits for all in-flight settlements, or until ctx expires.
func (s *Syncer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// capture records the pre-mutation value of the line for key. Callers
// must hold s.mu.
func (s *Syncer) capture(key domain.ItemKey) priorState {
	line, ok := s.store.line(key)
	if !ok {
		return priorState{}
	}
	idx, _ := s.store.index(key)
	return priorState{existed: true, line: line, index: idx}
}

// bumpLocked advances the generation counter for key. Callers must hold s.mu.
func (s *Syncer) bumpLocked(key domain.ItemKey) uint64 {
	s.gens[key]++
	return s.gens[key]
}

type remoteCall func(ctx context.Context) (*domain.LineItem, error)

// dispatch issues the remote call on a goroutine. The caller already
// holds the optimistic result; settlement is reported via onEvent.
// Cancellation of the originating request must not abort the call, so
// the context is detached from its cancel signal.
func (s *Syncer) dispatch(ctx context.Context, op string, key domain.ItemKey, gen uint64, prior priorState, call remoteCall) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		confirmed, err := s.callWithRetry(ctx, op, key, gen, call)
		if ev := s.reconcile(ctx, op, key, gen, prior, confirmed, err); ev != nil {
			s.emit(*ev)
		}
	}()
}

// callWithRetry retries transient failures up to the configured bound
// with exponential backoff. The optimistic local value is preserved
// during retries; the line is marked retrying so the UI can tell.
// Definite failures stop retrying immediately.
func (s *Syncer) callWithRetry(ctx context.Context, op string, key domain.ItemKey, gen uint64, call remoteCall) (*domain.LineItem, error) {
	var confirmed *domain.LineItem
	attempt := 0

	operation := func() error {
		res, err := call(ctx)
		if err != nil {
			if domain.IsTransient(err) {
				attempt++
				s.markRetrying(key, gen)
				s.logger.WarnContext(ctx, "transient cart sync failure, retrying",
					slog.String("op", op),
					slog.String("key", key.String()),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()))
				return err
			}
			return backoff.Permanent(err)
		}
		confirmed = res
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.RetryInterval
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.RetryMax), ctx))
	return confirmed, err
}

// markRetrying flips the line to the retrying state, unless the
// mutation has been superseded meanwhile.
func (s *Syncer) markRetrying(key domain.ItemKey, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] == gen {
		s.store.setState(key, domain.StateRetrying)
	}
}

// reconcile settles an in-flight mutation against its outcome under the
// controller lock. Stale responses are discarded. Returns the event to
// deliver, which is emitted outside the lock.
func (s *Syncer) reconcile(ctx context.Context, op string, key domain.ItemKey, gen uint64, prior priorState, confirmed *domain.LineItem, err error) *domain.SyncEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gens[key] != gen {
		// A newer mutation owns this line now; this response is void.
		s.logger.DebugContext(ctx, "discarding stale sync response",
			slog.String("op", op),
			slog.String("key", key.String()),
			slog.Uint64("gen", gen),
			slog.Uint64("current_gen", s.gens[key]))
		return nil
	}

	if err != nil {
		if op == opRemove && domain.IsRemoteNotFound(err) {
			// Already gone remotely: the remove achieved its goal.
			return &domain.SyncEvent{Type: domain.EventSettled, Key: key, Op: op}
		}
		s.rollback(op, key, prior)
		s.logger.WarnContext(ctx, "cart mutation rolled back",
			slog.String("op", op),
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		return &domain.SyncEvent{Type: domain.EventRolledBack, Key: key, Op: op, Reason: err.Error()}
	}

	if op == opRemove {
		return &domain.SyncEvent{Type: domain.EventSettled, Key: key, Op: op}
	}

	line, ok := s.store.line(key)
	if !ok {
		return nil
	}
	if confirmed != nil && confirmed.Quantity != line.Quantity {
		// Server clamped or adjusted the value: the confirmed value is
		// authoritative and the discrepancy is surfaced, not swallowed.
		s.store.setQuantityUnchecked(key, confirmed.Quantity)
		s.store.setState(key, domain.StateSettled)
		return &domain.SyncEvent{
			Type:              domain.EventCorrected,
			Key:               key,
			Op:                op,
			Reason:            "quantity adjusted by server",
			ConfirmedQuantity: confirmed.Quantity,
		}
	}
	s.store.setState(key, domain.StateSettled)
	return &domain.SyncEvent{Type: domain.EventSettled, Key: key, Op: op}
}

// rollback reverts the line to its captured pre-mutation value. Callers
// must hold s.mu.
func (s *Syncer) rollback(op string, key domain.ItemKey, prior priorState) {
	switch {
	case op == opRemove:
		line := prior.line
		line.State = domain.StateRolledBack
		s.store.restoreAt(line, prior.index)
	case !prior.existed:
		// The mutation created the line; rolling back means absence.
		s.store.removeUnchecked(key)
	default:
		s.store.setQuantityUnchecked(key, prior.line.Quantity)
		s.store.setState(key, domain.StateRolledBack)
	}
}

func (s *Syncer) emit(ev domain.SyncEvent) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
