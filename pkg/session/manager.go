package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/elicit/internal/logging"
	"github.com/aretw0/elicit/pkg/domain"
	"github.com/aretw0/elicit/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring no two steps of the same
// session ever execute concurrently. It uses reference counting to
// garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides the distributed lock TTL (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session Manager over the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Load retrieves a checkpoint while holding the session lock.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	var cp *domain.Checkpoint
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		cp, err = m.store.Load(ctx, sessionID)
		return err
	})
	return cp, err
}

// Delete removes a session while holding its lock.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// WithLock executes fn while holding the session's lock, queueing behind
// any in-flight holder.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	return m.withDistributedLock(ctx, sessionID, fn)
}

// TryWithLock executes fn while holding the session's lock, but rejects
// with domain.ErrSessionBusy instead of queueing when the session is
// already mid-step. The engine drives Start/Resume through this so a
// racing duplicate call fails fast rather than replaying against an
// advanced checkpoint.
func (m *Manager) TryWithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	if !entry.mu.TryLock() {
		m.release(sessionID)
		return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionBusy)
	}
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	return m.withDistributedLock(ctx, sessionID, fn)
}

func (m *Manager) withDistributedLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if m.locker == nil {
		return fn(ctx)
	}

	unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
				"session_id", sessionID,
				"err", err,
			)
		}
	}()

	return fn(ctx)
}
