// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for checkout preconditions
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrPendingOperations = errors.New("cart has pending operations")
)

// ErrSessionNotFound indicates an unknown or expired session credential
var ErrSessionNotFound = errors.New("session not found")

// ErrDraftNotFound indicates the requested order draft is absent or expired
var ErrDraftNotFound = errors.New("order draft not found")

// InvalidLineItemError indicates a line item that fails local validation.
// It is rejected before any remote call is made.
type InvalidLineItemError struct {
	Key    ItemKey
	Field  string
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %s: %s: %s", e.Key, e.Field, e.Reason)
}

// InvalidQuantityError indicates a quantity mutation that violates the
// quantity >= 1 invariant or exceeds known available stock.
type InvalidQuantityError struct {
	Key      ItemKey
	Quantity int
	Reason   string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for %s: %s", e.Quantity, e.Key, e.Reason)
}

// TransientSyncError wraps a remote failure that is safe to retry
// (network error, timeout, upstream overload).
type TransientSyncError struct {
	Op    string
	Key   ItemKey
	Cause error
}

func (e *TransientSyncError) Error() string {
	return fmt.Sprintf("transient sync error during %s for %s: %v", e.Op, e.Key, e.Cause)
}

func (e *TransientSyncError) Unwrap() error { return e.Cause }

// DefiniteSyncError wraps a remote rejection that must not be retried
// (item gone, quantity exceeds stock). The affected mutation is rolled back.
type DefiniteSyncError struct {
	Op     string
	Key    ItemKey
	Code   string
	Reason string
}

func (e *DefiniteSyncError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sync rejected during %s for %s: %s (%s)", e.Op, e.Key, e.Reason, e.Code)
	}
	return fmt.Sprintf("sync rejected during %s for %s: %s", e.Op, e.Key, e.Reason)
}

// IsTransient reports whether err may be retried.
func IsTransient(err error) bool {
	var te *TransientSyncError
	return errors.As(err, &te)
}

// IsDefinite reports whether err is a terminal remote rejection.
func IsDefinite(err error) bool {
	var de *DefiniteSyncError
	return errors.As(err, &de)
}

// NotFoundCode is the upstream error code for an item that no longer
// exists remotely. A remove that fails with this code is treated as
// success, keeping remove idempotent end to end.
const NotFoundCode = "item_not_found"

// IsRemoteNotFound reports whether err is a definite rejection caused by
// the item being absent from the remote store.
func IsRemoteNotFound(err error) bool {
	var de *DefiniteSyncError
	return errors.As(err, &de) && de.Code == NotFoundCode
}
