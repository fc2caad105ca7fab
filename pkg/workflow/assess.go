package workflow

import (
	"context"
	"fmt"

	"github.com/aretw0/elicit/pkg/domain"
)

// assess decides whether another clarification round is warranted.
//
// The hard ceiling is checked before the Judge is consulted, so a
// misbehaving judge can never push a session past the question limit.
// On a judge failure the policy fails closed: assume more information
// is needed and let the ceiling bound the loop. Failing open would
// silently truncate legitimately incomplete information gathering.
func (e *Engine) assess(ctx context.Context, st *domain.State) domain.Assessment {
	asked := len(st.AllPreviousQuestions)
	answered := len(st.AnsweredQuestions)

	if answered >= e.maxQuestions || asked >= e.maxQuestions {
		return domain.Assessment{
			NeedsMore: false,
			Reason:    domain.ReasonMaxReached,
			Message:   fmt.Sprintf("Maximum of %d questions reached. I have enough information to provide a comprehensive answer.", e.maxQuestions),
		}
	}

	sufficient, err := e.collab.Judge.Assess(ctx, st.Prompt, st.AnsweredQuestions, answered)
	if err != nil {
		cerr := &domain.CollaboratorError{Op: "assess", Err: err}
		e.logger.Warn("sufficiency assessment failed, assuming more questions are needed", "err", cerr)
		return domain.Assessment{
			NeedsMore: true,
			Reason:    domain.ReasonAssessmentError,
			Message:   "I can provide a better answer with a bit more information.",
		}
	}

	if sufficient {
		return domain.Assessment{
			NeedsMore: false,
			Reason:    domain.ReasonJudgedSufficient,
			Message:   "I have enough information to provide a comprehensive answer.",
		}
	}
	return domain.Assessment{
		NeedsMore: true,
		Reason:    domain.ReasonJudgedInsufficient,
		Message:   "I can provide a better answer with a bit more information.",
	}
}
