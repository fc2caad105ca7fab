package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when Start is called with an ID that is
// already in use.
var ErrSessionExists = errors.New("session already exists")

// ErrSessionTerminated is returned when Resume is attempted on a session
// that has already produced its final answer.
var ErrSessionTerminated = errors.New("session already completed")

// ErrSessionBusy is returned when a second call races an in-flight step
// execution for the same session. The caller should retry after the
// first call returns.
var ErrSessionBusy = errors.New("session is busy")

// ErrStaleCheckpoint is returned by a store when a save loses the
// version compare-and-swap, i.e. another writer advanced the session.
var ErrStaleCheckpoint = errors.New("stale checkpoint version")

// CollaboratorError wraps a failure of an external collaborator call
// (generator, structurer, judge or answerer). Most of them degrade to a
// fallback inside the step; only answer generation surfaces one.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// ValidationError reports a malformed request: a missing resume field, a
// choice outside the enum, an empty prompt. It never mutates stored state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvariantViolation indicates an internal defect (a dangling node
// reference, a broken loop bound). It is always fatal and never a
// legitimate runtime condition.
type InvariantViolation struct {
	Node   string
	Reason string
}

func (e *InvariantViolation) Error() string {
	if e.Node == "" {
		return "invariant violation: " + e.Reason
	}
	return fmt.Sprintf("invariant violation at %s: %s", e.Node, e.Reason)
}
