// Package memory provides an in-memory SessionStore, suitable for tests
// and single-process ephemeral use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/elicit/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Checkpoint
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Checkpoint),
	}
}

// Save persists the checkpoint, enforcing the version compare-and-swap.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if cp.SessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(0)
	if existing, ok := s.data[cp.SessionID]; ok {
		current = existing.Version
	}
	if cp.Version != current+1 {
		return fmt.Errorf("session %q at version %d, save requested %d: %w",
			cp.SessionID, current, cp.Version, domain.ErrStaleCheckpoint)
	}

	// Deep copy on write so the caller can't mutate stored state by pointer.
	s.data[cp.SessionID] = cp.Clone()
	return nil
}

// Load retrieves a deep copy of the checkpoint.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cp.Clone(), nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
