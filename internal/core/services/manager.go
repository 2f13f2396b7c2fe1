// internal/core/services/manager.go
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
)

// RemoteClientFactory builds a remote client bound to the given session
// credentials. Every remote call is keyed by the session it acts for.
type RemoteClientFactory func(sessionID string) ports.RemoteCartClient

// Manager keeps one cart store and sync controller per active session.
// Carts have session lifetime: they are created lazily on first use and
// evicted after the configured idle period.
type Manager struct {
	mu        sync.Mutex
	carts     map[string]*sessionCart
	newClient RemoteClientFactory
	cfg       SyncerConfig
	idleTTL   time.Duration
	onEvent   ports.EventListener
	logger    *slog.Logger
}

type sessionCart struct {
	svc      ports.CartService
	lastUsed time.Time
}

// NewManager creates a session cart manager
func NewManager(newClient RemoteClientFactory, cfg SyncerConfig, idleTTL time.Duration, onEvent ports.EventListener, logger *slog.Logger) *Manager {
	return &Manager{
		carts:     make(map[string]*sessionCart),
		newClient: newClient,
		cfg:       cfg,
		idleTTL:   idleTTL,
		onEvent:   onEvent,
		logger:    logger.With(slog.String("service", "cart_manager")),
	}
}

// Cart returns the cart service for the session, creating it on first use.
func (m *Manager) Cart(sessionID string) ports.CartService {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.carts[sessionID]; ok {
		c.lastUsed = time.Now()
		return c.svc
	}

	store := NewCartStore()
	syncer := NewSyncer(store, m.newClient(sessionID), m.cfg, m.onEvent, m.logger)
	m.carts[sessionID] = &sessionCart{svc: syncer, lastUsed: time.Now()}
	m.logger.Debug("session cart created", slog.String("session_id", sessionID))
	return syncer
}

// ActiveSessions returns the number of live session carts.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts)
}

// RunJanitor evicts idle session carts until ctx is done. Carts with
// in-flight operations are skipped until they settle.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.evictIdle(now)
		}
	}
}

func (m *Manager) evictIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.carts {
		if now.Sub(c.lastUsed) < m.idleTTL {
			continue
		}
		if c.svc.Snapshot().HasPending() {
			continue
		}
		delete(m.carts, id)
		m.logger.Debug("idle session cart evicted", slog.String("session_id", id))
	}
}

// FlushAll waits for in-flight settlements across all sessions, used
// during graceful shutdown.
func (m *Manager) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	services := make([]ports.CartService, 0, len(m.carts))
	for _, c := range m.carts {
		services = append(services, c.svc)
	}
	m.mu.Unlock()

	for _, svc := range services {
		if err := svc.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PricingFor derives the breakdown for a snapshot under the configured
// rules. Convenience for the read path: pricing recomputes on every
// snapshot read and never caches intermediate rounding.
func PricingFor(snapshot domain.CartSnapshot, rules domain.PricingRules) (domain.PricingBreakdown, error) {
	return domain.ComputeBreakdown(snapshot.Items(), rules, domain.IncludeAll)
}
