package ports

import (
	"context"

	"github.com/aretw0/elicit/pkg/domain"
)

// The four external collaborators the engine consumes. They are opaque:
// typically LLM-backed, but the engine only knows these contracts and
// applies its own fallbacks when they fail (see the step implementations
// in pkg/workflow).

// Generator produces up to a handful of new clarifying questions for a
// prompt. It should avoid near-duplicates of previous on a best-effort
// basis; the engine re-checks with its own similarity filter regardless.
type Generator interface {
	Generate(ctx context.Context, prompt string, previous []string) ([]string, error)
}

// Structurer classifies plain-text questions into UI-ready structured
// questions, choosing among the caller-provided element descriptors.
// On failure the engine falls back to one open-text kind per question.
type Structurer interface {
	Structure(ctx context.Context, questions []string, prompt string, elements []domain.ElementDescriptor) ([]domain.StructuredQuestion, error)
}

// Judge is the sufficiency oracle: given the prompt and everything
// answered so far, does the engine know enough to answer? The engine
// consults it only below the hard question ceiling and fails closed
// (assume more is needed) when it errors.
type Judge interface {
	Assess(ctx context.Context, prompt string, answered []domain.AnsweredQuestion, total int) (sufficient bool, err error)
}

// Answerer produces the final answer text from the prompt and the
// accumulated answers.
type Answerer interface {
	Answer(ctx context.Context, prompt string, answered []domain.AnsweredQuestion) (string, error)
}
