package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/elicit/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// metadataElementsKey is where session metadata carries the UI element
// descriptors the caller can render.
const metadataElementsKey = "elements"

// clarify generates the first round of clarifying questions. A generator
// failure degrades to an empty round; the session still makes forward
// progress and the user can ask for the answer directly.
func (e *Engine) clarify(ctx context.Context, st *domain.State) (*domain.SuspendSignal, error) {
	questions, err := e.collab.Generator.Generate(ctx, st.Prompt, append([]string(nil), st.AllPreviousQuestions...))
	if err != nil {
		cerr := &domain.CollaboratorError{Op: "generate", Err: err}
		e.logger.Warn("question generation failed, continuing without questions", "err", cerr)
		questions = nil
	}

	e.recordNewQuestions(st, questions)
	return nil, nil
}

// structureQuestions maps the pending plain-text questions to UI-ready
// structured questions. No-op when there is nothing pending. Falls back
// to one open-text question per entry when no element descriptors are
// available or the structurer fails.
func (e *Engine) structureQuestions(ctx context.Context, st *domain.State) (*domain.SuspendSignal, error) {
	if len(st.QuestionsToAsk) == 0 {
		return nil, nil
	}

	elements := elementsFromMetadata(st.Metadata)
	var structured []domain.StructuredQuestion
	if len(elements) > 0 {
		var err error
		structured, err = e.collab.Structurer.Structure(ctx, st.QuestionsToAsk, st.Prompt, elements)
		if err != nil {
			cerr := &domain.CollaboratorError{Op: "structure", Err: err}
			e.logger.Warn("question structuring failed, falling back to open text", "err", cerr)
			structured = nil
		} else if len(structured) != len(st.QuestionsToAsk) {
			e.logger.Warn("structurer returned mismatched question count, falling back to open text",
				"want", len(st.QuestionsToAsk),
				"got", len(structured),
			)
			structured = nil
		}
	}
	if structured == nil {
		structured = make([]domain.StructuredQuestion, 0, len(st.QuestionsToAsk))
		for _, q := range st.QuestionsToAsk {
			structured = append(structured, domain.StructuredQuestion{Kind: domain.KindText, Text: q})
		}
	}

	st.StructuredQuestions = structured
	st.QuestionsToAsk = nil
	return nil, nil
}

// choice is the first suspend point: the user answers the current
// questions and decides between another clarification round and the
// final answer. On resume the merge has already populated UserChoice,
// so the step falls through.
func (e *Engine) choice(ctx context.Context, st *domain.State) (*domain.SuspendSignal, error) {
	if st.UserChoice != domain.ChoiceUndecided {
		return nil, nil
	}

	return &domain.SuspendSignal{
		Reason:  domain.SuspendReasonChoice,
		Message: "Would you like me to ask more clarifying questions or generate the final answer?",
		Payload: map[string]any{
			"questions":          st.StructuredQuestions,
			"answered_questions": st.AnsweredQuestions,
			"choices": []string{
				string(domain.ChoiceMoreQuestions),
				string(domain.ChoiceFinalAnswer),
			},
		},
		Expects: []string{domain.FieldChoice, domain.FieldAnsweredQuestions},
	}, nil
}

func (e *Engine) mergeChoice(st *domain.State, data *domain.ResumeData) error {
	if data == nil || data.Choice == "" {
		return &domain.ValidationError{Field: domain.FieldChoice, Reason: "required to resume a pending choice"}
	}
	choice := domain.UserChoice(data.Choice)
	if !choice.Valid() {
		return &domain.ValidationError{
			Field: domain.FieldChoice,
			Reason: fmt.Sprintf("must be %q or %q",
				domain.ChoiceMoreQuestions, domain.ChoiceFinalAnswer),
		}
	}
	if err := matchAnswers(data.AnsweredQuestions, st.AllPreviousQuestions); err != nil {
		return err
	}

	st.UserChoice = choice
	if data.AnsweredQuestions != nil {
		st.AnsweredQuestions = data.AnsweredQuestions
	}
	// The round's questions are consumed either way.
	st.StructuredQuestions = nil
	return nil
}

// additionalQuestions runs the sufficiency assessment and, when more
// information is needed, generates the next round of non-duplicate
// questions. Leaving QuestionsToAsk empty signals the router to proceed
// to the answer.
func (e *Engine) additionalQuestions(ctx context.Context, st *domain.State) (*domain.SuspendSignal, error) {
	assessment := e.assess(ctx, st)
	e.logger.Info("sufficiency assessment",
		"reason", assessment.Reason,
		"needs_more", assessment.NeedsMore,
		"asked", len(st.AllPreviousQuestions),
		"answered", len(st.AnsweredQuestions),
	)

	if !assessment.NeedsMore {
		st.QuestionsToAsk = nil
		return nil, nil
	}

	questions, err := e.collab.Generator.Generate(ctx, st.Prompt, append([]string(nil), st.AllPreviousQuestions...))
	if err != nil {
		cerr := &domain.CollaboratorError{Op: "generate", Err: err}
		e.logger.Warn("additional question generation failed, proceeding to answer", "err", cerr)
		st.QuestionsToAsk = nil
		return nil, nil
	}

	e.recordNewQuestions(st, questions)
	return nil, nil
}

// waitForHuman is the second suspend point: surface the structured
// questions and wait for answers. No-op when the round produced no
// questions. The merge consumes StructuredQuestions, so re-execution
// after a resume falls through.
func (e *Engine) waitForHuman(ctx context.Context, st *domain.State) (*domain.SuspendSignal, error) {
	if len(st.StructuredQuestions) == 0 {
		return nil, nil
	}

	return &domain.SuspendSignal{
		Reason:  domain.SuspendReasonAnswers,
		Message: "Please answer the clarifying questions to continue.",
		Payload: map[string]any{
			"questions": st.StructuredQuestions,
		},
		Expects: []string{domain.FieldAnsweredQuestions},
	}, nil
}

func (e *Engine) mergeAnswers(st *domain.State, data *domain.ResumeData) error {
	if data == nil || data.AnsweredQuestions == nil {
		return &domain.ValidationError{Field: domain.FieldAnsweredQuestions, Reason: "required to resume pending questions"}
	}
	if err := matchAnswers(data.AnsweredQuestions, st.AllPreviousQuestions); err != nil {
		return err
	}

	// Every pending question needs an entry (a blank answer counts as a
	// deliberate skip). This also rejects a replayed earlier payload,
	// which cannot name questions it was asked after.
	answered := make(map[string]struct{}, len(data.AnsweredQuestions))
	for _, qa := range data.AnsweredQuestions {
		answered[strings.TrimSpace(qa.Question)] = struct{}{}
	}
	for _, sq := range st.StructuredQuestions {
		if _, ok := answered[strings.TrimSpace(sq.Text)]; !ok {
			return &domain.ValidationError{
				Field:  domain.FieldAnsweredQuestions,
				Reason: fmt.Sprintf("missing an answer for pending question %q", sq.Text),
			}
		}
	}

	st.AnsweredQuestions = data.AnsweredQuestions
	st.StructuredQuestions = nil
	return nil
}

// matchAnswers verifies that every submitted answer corresponds to a
// distinct question that was actually asked. This keeps the answered
// total bounded by the asked total and stops fabricated answers from
// influencing the sufficiency assessment.
func matchAnswers(answered []domain.AnsweredQuestion, asked []string) error {
	if len(answered) > len(asked) {
		return &domain.ValidationError{
			Field:  domain.FieldAnsweredQuestions,
			Reason: fmt.Sprintf("%d answers submitted but only %d questions were asked", len(answered), len(asked)),
		}
	}

	available := make(map[string]int, len(asked))
	for _, q := range asked {
		available[strings.TrimSpace(q)]++
	}
	for i, qa := range answered {
		q := strings.TrimSpace(qa.Question)
		if q == "" {
			return &domain.ValidationError{
				Field:  domain.FieldAnsweredQuestions,
				Reason: fmt.Sprintf("entry %d is missing its question text", i),
			}
		}
		if available[q] == 0 {
			return &domain.ValidationError{
				Field:  domain.FieldAnsweredQuestions,
				Reason: fmt.Sprintf("entry %d answers a question that was never asked: %q", i, qa.Question),
			}
		}
		available[q]--
	}
	return nil
}

// answer produces the final answer. Unlike the other collaborator
// calls this one is fatal on failure: the checkpoint stays at the
// answer node, so retrying the resume is safe.
func (e *Engine) answer(ctx context.Context, st *domain.State) (*domain.SuspendSignal, error) {
	text, err := e.collab.Answerer.Answer(ctx, st.Prompt, st.AnsweredQuestions)
	if err != nil {
		return nil, &domain.CollaboratorError{Op: "answer", Err: err}
	}
	st.Answer = text
	return nil, nil
}

// recordNewQuestions filters candidates against everything already
// asked, caps the round and the session total, and records the
// survivors in both QuestionsToAsk and AllPreviousQuestions. The union
// append keeps re-execution idempotent: the same input state always
// yields the same output state.
func (e *Engine) recordNewQuestions(st *domain.State, candidates []string) {
	if len(candidates) > e.perRound {
		candidates = candidates[:e.perRound]
	}
	survivors := e.filterDuplicates(candidates, st.AllPreviousQuestions)

	if room := e.maxQuestions - len(st.AllPreviousQuestions); room < len(survivors) {
		if room < 0 {
			room = 0
		}
		survivors = survivors[:room]
	}

	st.QuestionsToAsk = survivors
	st.AllPreviousQuestions = append(st.AllPreviousQuestions, survivors...)
}

// elementsFromMetadata decodes the UI element descriptors the caller
// supplied at session creation. Malformed entries simply disable
// structured classification; the open-text fallback covers the round.
func elementsFromMetadata(metadata map[string]any) []domain.ElementDescriptor {
	if metadata == nil {
		return nil
	}
	raw, ok := metadata[metadataElementsKey]
	if !ok {
		return nil
	}
	if typed, ok := raw.([]domain.ElementDescriptor); ok {
		return typed
	}

	var elements []domain.ElementDescriptor
	if err := mapstructure.Decode(raw, &elements); err != nil {
		return nil
	}
	return elements
}
