package elicit

import (
	"github.com/aretw0/elicit/pkg/domain"
	"github.com/aretw0/elicit/pkg/ports"
	"github.com/aretw0/elicit/pkg/workflow"
)

// Engine is the high-level entry point for the elicit library. It is an
// alias of the workflow driver; see pkg/workflow for the full API.
type Engine = workflow.Engine

// Collaborators bundles the external collaborators a session consumes.
type Collaborators = workflow.Collaborators

// Option configures the Engine.
type Option = workflow.Option

// Result is the outcome type returned by Start and Resume.
type Result = domain.Result

// New initializes an Engine over the given checkpoint store.
func New(store ports.SessionStore, collab Collaborators, opts ...Option) (*Engine, error) {
	return workflow.New(store, collab, opts...)
}

// Re-exported options, so embedders only need the root import.
var (
	WithLogger              = workflow.WithLogger
	WithLocker              = workflow.WithLocker
	WithMaxQuestions        = workflow.WithMaxQuestions
	WithQuestionsPerRound   = workflow.WithQuestionsPerRound
	WithSimilarityThreshold = workflow.WithSimilarityThreshold
	WithStepHook            = workflow.WithStepHook
)
