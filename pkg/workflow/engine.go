package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/elicit/internal/logging"
	"github.com/aretw0/elicit/pkg/domain"
	"github.com/aretw0/elicit/pkg/ports"
	"github.com/aretw0/elicit/pkg/session"
)

// Defaults for the clarification loop policy.
const (
	// DefaultMaxQuestions is the hard ceiling on questions per session.
	DefaultMaxQuestions = 5
	// DefaultQuestionsPerRound caps how many questions one round may add.
	DefaultQuestionsPerRound = 3
	// DefaultSimilarityThreshold is the Jaccard index at or above which
	// two questions count as duplicates.
	DefaultSimilarityThreshold = 0.7
)

// Collaborators bundles the four external collaborators a session
// consumes. All of them are required; pkg/collaborators/static provides
// deterministic offline implementations.
type Collaborators struct {
	Generator  ports.Generator
	Structurer ports.Structurer
	Judge      ports.Judge
	Answerer   ports.Answerer
}

func (c Collaborators) validate() error {
	switch {
	case c.Generator == nil:
		return errors.New("workflow: Generator collaborator is required")
	case c.Structurer == nil:
		return errors.New("workflow: Structurer collaborator is required")
	case c.Judge == nil:
		return errors.New("workflow: Judge collaborator is required")
	case c.Answerer == nil:
		return errors.New("workflow: Answerer collaborator is required")
	}
	return nil
}

// StepHook observes node executions (for metrics or tracing). Hooks run
// synchronously after each step; keep them cheap.
type StepHook func(sessionID, node string, elapsed time.Duration, err error)

// Engine is the workflow driver. Construct one per process with New and
// share it; all per-session state lives in the store, never in the
// Engine itself.
type Engine struct {
	sessions *session.Manager
	collab   Collaborators
	steps    map[string]step

	maxQuestions int
	perRound     int
	similarity   float64

	logger *slog.Logger
	hooks  []StepHook

	sessionOpts []session.Option
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLocker enables distributed session locking (multi-replica setups).
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithLocker(locker))
	}
}

// WithMaxQuestions overrides the hard question ceiling.
func WithMaxQuestions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxQuestions = n
		}
	}
}

// WithQuestionsPerRound overrides how many questions a round may add.
func WithQuestionsPerRound(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.perRound = n
		}
	}
}

// WithSimilarityThreshold overrides the duplicate-detection threshold.
func WithSimilarityThreshold(f float64) Option {
	return func(e *Engine) {
		if f > 0 && f <= 1 {
			e.similarity = f
		}
	}
}

// WithStepHook registers an observability hook for node executions.
func WithStepHook(h StepHook) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = append(e.hooks, h)
		}
	}
}

// New creates an Engine over the given store and collaborators.
func New(store ports.SessionStore, collab Collaborators, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("workflow: session store is required")
	}
	if err := collab.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		collab:       collab,
		maxQuestions: DefaultMaxQuestions,
		perRound:     DefaultQuestionsPerRound,
		similarity:   DefaultSimilarityThreshold,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	sessionOpts := append([]session.Option{session.WithLogger(e.logger)}, e.sessionOpts...)
	e.sessions = session.NewManager(store, sessionOpts...)
	e.steps = e.buildRegistry()
	return e, nil
}

// Sessions exposes the session manager (listing, inspection, deletion).
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Start creates a new session for the prompt and runs it until it
// suspends or completes. Metadata is opaque pass-through context (e.g.
// UI element descriptors under the "elements" key).
func (e *Engine) Start(ctx context.Context, sessionID, prompt string, metadata map[string]any) (domain.Result, error) {
	if sessionID == "" {
		return domain.Result{}, &domain.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(prompt) == "" {
		return domain.Result{}, &domain.ValidationError{Field: "prompt", Reason: "must not be empty"}
	}

	var res domain.Result
	err := e.sessions.TryWithLock(ctx, sessionID, func(ctx context.Context) error {
		_, err := e.sessions.Store().Load(ctx, sessionID)
		if err == nil {
			return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionExists)
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		cp := domain.NewCheckpoint(sessionID, prompt, metadata)
		res, err = e.run(ctx, cp)
		return err
	})
	return res, err
}

// Resume continues a suspended session with externally supplied data.
// The data map is decoded against the suspended node's declared expected
// fields, merged into state, and the node is re-executed; seeing its
// precondition satisfied it falls through instead of suspending again.
func (e *Engine) Resume(ctx context.Context, sessionID string, data map[string]any) (domain.Result, error) {
	if sessionID == "" {
		return domain.Result{}, &domain.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}

	var res domain.Result
	err := e.sessions.TryWithLock(ctx, sessionID, func(ctx context.Context) error {
		cp, err := e.sessions.Store().Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if cp.Terminal() {
			// Terminal immutability: the answer never changes once set.
			return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionTerminated)
		}

		st, ok := e.steps[cp.NextNode]
		if !ok {
			return &domain.InvariantViolation{Node: cp.NextNode, Reason: "checkpoint references unknown node"}
		}

		// Only suspend points consume resume data. A non-suspend node
		// here means a previous attempt failed after the merge was
		// persisted (e.g. answer generation); re-running it as-is makes
		// the retry safe.
		if st.merge != nil {
			rd, err := decodeResumeData(data)
			if err != nil {
				return err
			}
			work := cp.State.Clone()
			if err := st.merge(work, rd); err != nil {
				return err
			}
			cp.State = work
		}

		res, err = e.run(ctx, cp)
		return err
	})
	return res, err
}

// run executes nodes from the checkpoint's NextNode until the session
// suspends, completes, or fails. Steps run on a cloned state: a failing
// step never leaves a partially applied checkpoint behind.
func (e *Engine) run(ctx context.Context, cp *domain.Checkpoint) (domain.Result, error) {
	for {
		if cp.Terminal() {
			return domain.Result{Status: domain.StatusCompleted, Answer: cp.State.Answer}, nil
		}

		st, ok := e.steps[cp.NextNode]
		if !ok {
			err := &domain.InvariantViolation{Node: cp.NextNode, Reason: "no such node in registry"}
			e.logger.Error("workflow halted", "session_id", cp.SessionID, "err", err)
			return domain.Result{}, err
		}

		work := cp.State.Clone()
		started := time.Now()
		sig, err := st.run(ctx, work)
		e.observe(cp.SessionID, cp.NextNode, time.Since(started), err)
		if err != nil {
			e.logger.Error("step failed",
				"session_id", cp.SessionID,
				"node", cp.NextNode,
				"err", err,
			)
			return domain.Result{}, err
		}
		cp.State = work

		if sig != nil {
			// Persist the suspended node itself so Resume re-enters it.
			if err := e.persist(ctx, cp); err != nil {
				return domain.Result{}, err
			}
			e.logger.Info("session suspended",
				"session_id", cp.SessionID,
				"node", cp.NextNode,
				"reason", sig.Reason,
			)
			return domain.Result{Status: domain.StatusSuspended, Payload: suspendPayload(sig)}, nil
		}

		next, err := nextNode(cp.NextNode, work)
		if err != nil {
			e.logger.Error("routing failed", "session_id", cp.SessionID, "node", cp.NextNode, "err", err)
			return domain.Result{}, err
		}
		e.logger.Debug("transition",
			"session_id", cp.SessionID,
			"from", cp.NextNode,
			"to", next,
		)
		cp.NextNode = next
		if err := e.persist(ctx, cp); err != nil {
			return domain.Result{}, err
		}
	}
}

func (e *Engine) persist(ctx context.Context, cp *domain.Checkpoint) error {
	cp.Version++
	cp.UpdatedAt = time.Now().UTC()
	if err := e.sessions.Store().Save(ctx, cp); err != nil {
		cp.Version--
		return fmt.Errorf("failed to persist checkpoint for %q: %w", cp.SessionID, err)
	}
	return nil
}

func (e *Engine) observe(sessionID, node string, elapsed time.Duration, err error) {
	for _, h := range e.hooks {
		h(sessionID, node, elapsed, err)
	}
}

func suspendPayload(sig *domain.SuspendSignal) map[string]any {
	payload := make(map[string]any, len(sig.Payload)+2)
	for k, v := range sig.Payload {
		payload[k] = v
	}
	payload["message"] = sig.Message
	payload["reason"] = sig.Reason
	return payload
}
