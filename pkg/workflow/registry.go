package workflow

import (
	"context"
	"fmt"

	"github.com/aretw0/elicit/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// stepFunc executes one node against the (cloned) state. Returning a
// non-nil SuspendSignal pauses the session at this node.
type stepFunc func(ctx context.Context, st *domain.State) (*domain.SuspendSignal, error)

// mergeFunc injects resume data into state before a suspended node is
// re-executed. Only suspend points have one; it validates the data
// against the node's declared expected fields.
type mergeFunc func(st *domain.State, data *domain.ResumeData) error

type step struct {
	run   stepFunc
	merge mergeFunc
}

// buildRegistry binds every node to its collaborators explicitly; steps
// receive their dependencies as Engine fields, never via package-level
// state, so two Engines with different stores or collaborators can
// coexist in one process.
func (e *Engine) buildRegistry() map[string]step {
	return map[string]step{
		domain.NodeClarify:             {run: e.clarify},
		domain.NodeStructureQuestions:  {run: e.structureQuestions},
		domain.NodeChoice:              {run: e.choice, merge: e.mergeChoice},
		domain.NodeAdditionalQuestions: {run: e.additionalQuestions},
		domain.NodeWaitForHuman:        {run: e.waitForHuman, merge: e.mergeAnswers},
		domain.NodeAnswer:              {run: e.answer},
	}
}

// decodeResumeData converts the caller's raw resume map into the typed
// ResumeData record. Unknown keys are tolerated (callers may echo back
// payload fields); malformed values are a validation error.
func decodeResumeData(data map[string]any) (*domain.ResumeData, error) {
	rd := &domain.ResumeData{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           rd,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build resume decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return nil, &domain.ValidationError{Field: "resume_data", Reason: err.Error()}
	}
	return rd, nil
}
