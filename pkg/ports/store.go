package ports

import (
	"context"

	"github.com/aretw0/elicit/pkg/domain"
)

// SessionStore persists session checkpoints. It is the durability layer
// that makes "stop & resume" work across process restarts.
//
// Save is a compare-and-swap: it persists cp if and only if the stored
// version equals cp.Version-1 (a fresh session saves Version 1 against
// no stored record). A lost race returns domain.ErrStaleCheckpoint and
// must leave the stored checkpoint untouched. Last-writer-wins is not
// acceptable here: two concurrent resumes of the same session would
// silently drop one of the transitions.
type SessionStore interface {
	// Save persists the checkpoint under its session ID.
	Save(ctx context.Context, cp *domain.Checkpoint) error

	// Load retrieves the latest checkpoint for a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint for a session. The engine never
	// calls this; garbage collection is an external concern.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
