// internal/core/services/cart_store.go
package services

import (
	"sync"
	"time"

	"github.com/mcerda/storefront-be/internal/core/domain"
)

// CartStore is the in-memory authoritative representation of the cart
// for one session. It enforces at most one line per identity key and
// keeps insertion order stable except for true removals and appends.
//
// The store is exclusively mutated by the Syncer; UI-facing code only
// reads deep-copied snapshots. The sync bookkeeping methods are
// unexported for that reason.
type CartStore struct {
	mu    sync.RWMutex
	lines []domain.CartLine
}

// NewCartStore creates an empty cart store
func NewCartStore() *CartStore {
	return &CartStore{}
}

// Snapshot returns a deep copy of the current cart state
func (s *CartStore) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *CartStore) snapshotLocked() domain.CartSnapshot {
	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	for i := range lines {
		if lines[i].ExpiryDate != nil {
			expiry := *lines[i].ExpiryDate
			lines[i].ExpiryDate = &expiry
		}
	}
	return domain.CartSnapshot{Lines: lines, TakenAt: time.Now().UTC()}
}

// AddOrIncrement merges the item into an existing line with the same
// identity key, or appends a new line at the end of the sequence. The
// incoming item carries the freshest stock information, which replaces
// the stored one. Returns the resulting snapshot.
func (s *CartStore) AddOrIncrement(item domain.LineItem) (domain.CartSnapshot, error) {
	if err := item.Validate(); err != nil {
		return domain.CartSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.findLocked(item.Key); ok {
		merged := s.lines[i].Quantity + item.Quantity
		if err := item.CheckStock(merged); err != nil {
			return domain.CartSnapshot{}, err
		}
		s.lines[i].Quantity = merged
		s.lines[i].UnitPrice = item.UnitPrice
		s.lines[i].Stock = item.Stock
		s.lines[i].StockCount = item.StockCount
		s.lines[i].ExpiryDate = item.ExpiryDate
		return s.snapshotLocked(), nil
	}

	if err := item.CheckStock(item.Quantity); err != nil {
		return domain.CartSnapshot{}, err
	}
	s.lines = append(s.lines, domain.CartLine{LineItem: item, State: domain.StateSettled})
	return s.snapshotLocked(), nil
}

// SetQuantity replaces the quantity of the line in place, without
// reordering. Quantities below 1 and quantities exceeding known stock
// are rejected, never clamped.
func (s *CartStore) SetQuantity(key domain.ItemKey, quantity int) (domain.CartSnapshot, error) {
	if quantity < 1 {
		return domain.CartSnapshot{}, &domain.InvalidQuantityError{Key: key, Quantity: quantity, Reason: "must be >= 1"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.findLocked(key)
	if !ok {
		return domain.CartSnapshot{}, &domain.InvalidQuantityError{Key: key, Quantity: quantity, Reason: "no such cart line"}
	}
	if err := s.lines[i].CheckStock(quantity); err != nil {
		return domain.CartSnapshot{}, err
	}
	s.lines[i].Quantity = quantity
	return s.snapshotLocked(), nil
}

// Remove deletes the line for key. Removing an absent key is not an
// error: remove is idempotent.
func (s *CartStore) Remove(key domain.ItemKey) domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
	return s.snapshotLocked()
}

// ReplaceAll replaces the whole cart with the given items, all settled.
// Used for full remote refreshes.
func (s *CartStore) ReplaceAll(items []domain.LineItem) domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.CartLine{LineItem: item, State: domain.StateSettled})
	}
	s.lines = lines
	return s.snapshotLocked()
}

// Bookkeeping operations below are reserved to the Syncer.

func (s *CartStore) findLocked(key domain.ItemKey) (int, bool) {
	for i := range s.lines {
		if s.lines[i].Key == key {
			return i, true
		}
	}
	return -1, false
}

func (s *CartStore) removeLocked(key domain.ItemKey) {
	if i, ok := s.findLocked(key); ok {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
}

// line returns a copy of the line for key, if present.
func (s *CartStore) line(key domain.ItemKey) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.findLocked(key); ok {
		return s.lines[i], true
	}
	return domain.CartLine{}, false
}

// index returns the position of the line for key, if present.
func (s *CartStore) index(key domain.ItemKey) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(key)
}

// setState marks the sync state of the line for key. Absent keys are
// ignored: a stale settlement must not resurrect a removed line.
func (s *CartStore) setState(key domain.ItemKey, state domain.SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.findLocked(key); ok {
		s.lines[i].State = state
	}
}

// setQuantityUnchecked applies a server-confirmed quantity, bypassing
// local stock validation. The server value is authoritative here.
func (s *CartStore) setQuantityUnchecked(key domain.ItemKey, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.findLocked(key); ok {
		s.lines[i].Quantity = quantity
	}
}

// restoreAt re-inserts a rolled-back line at its original position,
// keeping snapshot order stable across reconciliation.
func (s *CartStore) restoreAt(line domain.CartLine, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(line.Key)
	if index < 0 {
		index = 0
	}
	if index > len(s.lines) {
		index = len(s.lines)
	}
	s.lines = append(s.lines[:index], append([]domain.CartLine{line}, s.lines[index:]...)...)
}

// removeUnchecked deletes the line for key without returning a snapshot
func (s *CartStore) removeUnchecked(key domain.ItemKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
}
