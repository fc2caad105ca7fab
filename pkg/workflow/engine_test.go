package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/elicit/internal/testutils"
	"github.com/aretw0/elicit/pkg/adapters/memory"
	"github.com/aretw0/elicit/pkg/domain"
	"github.com/aretw0/elicit/pkg/workflow"
)

type fixture struct {
	engine    *workflow.Engine
	store     *memory.Store
	generator *testutils.ScriptedGenerator
	judge     *testutils.StubJudge
	answerer  *testutils.StubAnswerer
}

func newFixture(t *testing.T, gen *testutils.ScriptedGenerator, judge *testutils.StubJudge, answerer *testutils.StubAnswerer, opts ...workflow.Option) *fixture {
	t.Helper()

	if gen == nil {
		gen = &testutils.ScriptedGenerator{Rounds: [][]string{{"What is the goal?", "Any constraints?"}}}
	}
	if judge == nil {
		judge = &testutils.StubJudge{Verdicts: []bool{true}}
	}
	if answerer == nil {
		answerer = &testutils.StubAnswerer{Text: "final answer text"}
	}

	store := memory.NewStore()
	engine, err := workflow.New(store, workflow.Collaborators{
		Generator:  gen,
		Structurer: &testutils.EchoStructurer{},
		Judge:      judge,
		Answerer:   answerer,
	}, opts...)
	require.NoError(t, err)

	return &fixture{engine: engine, store: store, generator: gen, judge: judge, answerer: answerer}
}

func (f *fixture) checkpoint(t *testing.T, sessionID string) *domain.Checkpoint {
	t.Helper()
	cp, err := f.store.Load(context.Background(), sessionID)
	require.NoError(t, err)
	return cp
}

func TestEngine_RequiresAllCollaborators(t *testing.T) {
	_, err := workflow.New(memory.NewStore(), workflow.Collaborators{})
	assert.ErrorContains(t, err, "Generator")
}

func TestStart_SuspendsAwaitingChoice(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	res, err := f.engine.Start(ctx, "s1", "how do I deploy my app?", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuspended, res.Status)
	assert.Equal(t, domain.SuspendReasonChoice, res.Payload["reason"])
	assert.NotEmpty(t, res.Payload["message"])

	questions, ok := res.Payload["questions"].([]domain.StructuredQuestion)
	require.True(t, ok)
	require.Len(t, questions, 2)
	assert.Equal(t, domain.KindText, questions[0].Kind)

	cp := f.checkpoint(t, "s1")
	assert.Equal(t, domain.NodeChoice, cp.NextNode)
	assert.False(t, cp.Terminal())
	assert.Equal(t, []string{"What is the goal?", "Any constraints?"}, cp.State.AllPreviousQuestions)
	assert.Greater(t, cp.Version, int64(0))
}

func TestStart_Validation(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	var validation *domain.ValidationError

	_, err := f.engine.Start(ctx, "", "prompt", nil)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "session_id", validation.Field)

	_, err = f.engine.Start(ctx, "s1", "   ", nil)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "prompt", validation.Field)
}

func TestStart_DuplicateSessionRejected(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt one", nil)
	require.NoError(t, err)

	_, err = f.engine.Start(ctx, "s1", "prompt two", nil)
	assert.ErrorIs(t, err, domain.ErrSessionExists)

	// The original session is untouched.
	cp := f.checkpoint(t, "s1")
	assert.Equal(t, "prompt one", cp.State.Prompt)
}

// Scenario: the user goes straight to the final answer.
func TestResume_DirectFinalAnswer(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "how do I deploy my app?", nil)
	require.NoError(t, err)

	res, err := f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "final_answer",
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "zero-downtime deploys"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "final answer text", res.Answer)

	cp := f.checkpoint(t, "s1")
	assert.True(t, cp.Terminal())
	assert.Equal(t, "final answer text", cp.State.Answer)
	assert.Len(t, cp.State.AnsweredQuestions, 1)
}

// Scenario: one additional round of questions, then the answer.
func TestResume_MoreQuestionsRound(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Rounds: [][]string{
		{"What is the goal?", "Any constraints?"},
		{"What is your budget?"},
	}}
	judge := &testutils.StubJudge{Verdicts: []bool{false}}
	f := newFixture(t, gen, judge, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "plan my infrastructure", nil)
	require.NoError(t, err)

	res, err := f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "resilience"},
			{"question": "Any constraints?", "answer": "small team"},
		},
	})
	require.NoError(t, err)

	// The session asks the new round and waits for answers.
	assert.Equal(t, domain.StatusSuspended, res.Status)
	assert.Equal(t, domain.SuspendReasonAnswers, res.Payload["reason"])

	questions, ok := res.Payload["questions"].([]domain.StructuredQuestion)
	require.True(t, ok)
	require.Len(t, questions, 1)
	assert.Equal(t, "What is your budget?", questions[0].Text)

	cp := f.checkpoint(t, "s1")
	assert.Equal(t, domain.NodeWaitForHuman, cp.NextNode)
	assert.Len(t, cp.State.AllPreviousQuestions, 3)

	res, err = f.engine.Resume(ctx, "s1", map[string]any{
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "resilience"},
			{"question": "Any constraints?", "answer": "small team"},
			{"question": "What is your budget?", "answer": "modest"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "final answer text", res.Answer)
	assert.Len(t, f.checkpoint(t, "s1").State.AnsweredQuestions, 3)
}

// Scenario: the user keeps asking for more, the ceiling holds.
func TestResume_QuestionCeilingHolds(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Rounds: [][]string{
		{"Question alpha?", "Question beta?", "Question gamma?"},
		{"Question delta?", "Question epsilon?", "Question zeta?"},
	}}
	judge := &testutils.StubJudge{Verdicts: []bool{false}}
	f := newFixture(t, gen, judge, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "an endless rabbit hole", nil)
	require.NoError(t, err)
	require.Len(t, f.checkpoint(t, "s1").State.AllPreviousQuestions, 3)

	res, err := f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "Question alpha?", "answer": "a"},
			{"question": "Question beta?", "answer": "b"},
			{"question": "Question gamma?", "answer": "c"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuspended, res.Status)

	// Only two of the three new questions fit under the ceiling of five.
	cp := f.checkpoint(t, "s1")
	assert.Len(t, cp.State.AllPreviousQuestions, 5)
	questions := cp.State.StructuredQuestions
	require.Len(t, questions, 2)
	assert.Equal(t, "Question delta?", questions[0].Text)
	assert.Equal(t, "Question epsilon?", questions[1].Text)
}

func TestAssess_CeilingSkipsJudge(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Rounds: [][]string{
		{"Question alpha?", "Question beta?", "Question gamma?"},
		{"Question delta?", "Question epsilon?"},
	}}
	judge := &testutils.StubJudge{Verdicts: []bool{false}}
	f := newFixture(t, gen, judge, nil, workflow.WithMaxQuestions(3))
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)
	require.Len(t, f.checkpoint(t, "s1").State.AllPreviousQuestions, 3)

	// Three asked and answered meets the ceiling: the session completes
	// without the (insufficient-leaning) judge ever being consulted.
	res, err := f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "Question alpha?", "answer": "a"},
			{"question": "Question beta?", "answer": "b"},
			{"question": "Question gamma?", "answer": "c"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, 0, judge.Calls())
	assert.Equal(t, 1, gen.Calls()) // only the opening round was generated
}

// A broken judge must not break the loop bound: the policy fails closed
// and the ceiling still terminates the session.
func TestAssess_JudgeFailureFailsClosed(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Rounds: [][]string{
		{"Question alpha?"},
		{"Question beta?"},
		{"Question gamma?"},
	}}
	judge := &testutils.StubJudge{Err: errors.New("judge is down")}
	f := newFixture(t, gen, judge, nil, workflow.WithMaxQuestions(2))
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)

	// Judge errors, so another round is generated despite one answer.
	res, err := f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "Question alpha?", "answer": "a"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuspended, res.Status)
	require.Len(t, f.checkpoint(t, "s1").State.AllPreviousQuestions, 2)

	// At the ceiling the session completes without consulting the judge.
	res, err = f.engine.Resume(ctx, "s1", map[string]any{
		"answered_questions": []map[string]string{
			{"question": "Question alpha?", "answer": "a"},
			{"question": "Question beta?", "answer": "b"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
}

func TestResume_DuplicateQuestionsFiltered(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Rounds: [][]string{
		{"What is the main goal of your project?"},
		{"What is the main goal of your project really?", "Who is the audience?"},
	}}
	judge := &testutils.StubJudge{Verdicts: []bool{false}}
	f := newFixture(t, gen, judge, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)

	res, err := f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "What is the main goal of your project?", "answer": "growth"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuspended, res.Status)

	// The near-duplicate is dropped; only the genuinely new question is asked.
	cp := f.checkpoint(t, "s1")
	require.Len(t, cp.State.StructuredQuestions, 1)
	assert.Equal(t, "Who is the audience?", cp.State.StructuredQuestions[0].Text)
}

func TestResume_TerminalImmutable(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)
	_, err = f.engine.Resume(ctx, "s1", map[string]any{"choice": "final_answer"})
	require.NoError(t, err)

	before := f.checkpoint(t, "s1")

	_, err = f.engine.Resume(ctx, "s1", map[string]any{"choice": "more_questions"})
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)

	after := f.checkpoint(t, "s1")
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.State.Answer, after.State.Answer)
}

func TestResume_UnknownSession(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	_, err := f.engine.Resume(context.Background(), "ghost", map[string]any{"choice": "final_answer"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestResume_InvalidChoiceLeavesSessionResumable(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)
	before := f.checkpoint(t, "s1")

	var validation *domain.ValidationError

	_, err = f.engine.Resume(ctx, "s1", map[string]any{"choice": "maybe"})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.FieldChoice, validation.Field)

	_, err = f.engine.Resume(ctx, "s1", nil)
	require.ErrorAs(t, err, &validation)

	// Failed validations never touch the checkpoint.
	after := f.checkpoint(t, "s1")
	assert.Equal(t, before.Version, after.Version)

	res, err := f.engine.Resume(ctx, "s1", map[string]any{"choice": "final_answer"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
}

func TestResume_TooManyAnswersRejected(t *testing.T) {
	f := newFixture(t, nil, nil, nil, workflow.WithMaxQuestions(2))
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)

	var validation *domain.ValidationError
	_, err = f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "final_answer",
		"answered_questions": []map[string]string{
			{"question": "q1", "answer": "a"},
			{"question": "q2", "answer": "b"},
			{"question": "q3", "answer": "c"},
		},
	})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.FieldAnsweredQuestions, validation.Field)
}

// An answer-generation failure persists the checkpoint at the answer
// node, so retrying the resume (with the same or no data) is safe.
func TestResume_AnswerFailureIsRetryable(t *testing.T) {
	answerer := &testutils.StubAnswerer{Text: "final answer text", Err: errors.New("model unavailable")}
	f := newFixture(t, nil, nil, answerer)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)

	var collab *domain.CollaboratorError
	_, err = f.engine.Resume(ctx, "s1", map[string]any{"choice": "final_answer"})
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "answer", collab.Op)

	cp := f.checkpoint(t, "s1")
	assert.Equal(t, domain.NodeAnswer, cp.NextNode)
	assert.False(t, cp.Terminal())

	// Collaborator recovers; a bare retry completes the session.
	answerer.Err = nil
	res, err := f.engine.Resume(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "final answer text", res.Answer)
}

// Collaborator failures outside the answer degrade instead of halting:
// a dead generator produces an empty round, and the user can still
// steer straight to the answer.
func TestStart_GeneratorFailureDegrades(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Err: errors.New("generator down")}
	f := newFixture(t, gen, nil, nil)
	ctx := context.Background()

	res, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuspended, res.Status)
	assert.Equal(t, domain.SuspendReasonChoice, res.Payload["reason"])

	res, err = f.engine.Resume(ctx, "s1", map[string]any{"choice": "final_answer"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "final answer text", res.Answer)
}

func TestStart_ConcurrentCallRejected(t *testing.T) {
	gate := make(chan struct{})
	release := make(chan struct{})

	f := newFixture(t, nil, nil, nil, workflow.WithStepHook(func(sessionID, node string, elapsed time.Duration, err error) {
		if node == domain.NodeClarify {
			close(gate)
			<-release
		}
	}))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.engine.Start(ctx, "s1", "prompt", nil)
		assert.NoError(t, err)
	}()

	<-gate
	_, err := f.engine.Resume(ctx, "s1", map[string]any{"choice": "final_answer"})
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	close(release)
	<-done
}

func TestEngine_VersionIncreasesPerTransition(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)
	v1 := f.checkpoint(t, "s1").Version
	assert.Greater(t, v1, int64(0))

	_, err = f.engine.Resume(ctx, "s1", map[string]any{"choice": "final_answer"})
	require.NoError(t, err)
	v2 := f.checkpoint(t, "s1").Version
	assert.Greater(t, v2, v1)
}

func TestStart_StructurerFailureFallsBackToText(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Rounds: [][]string{{"Pick a color (e.g. red, green, or blue)?"}}}
	store := memory.NewStore()
	engine, err := workflow.New(store, workflow.Collaborators{
		Generator:  gen,
		Structurer: &testutils.EchoStructurer{Err: errors.New("classifier offline")},
		Judge:      &testutils.StubJudge{},
		Answerer:   &testutils.StubAnswerer{},
	})
	require.NoError(t, err)

	metadata := map[string]any{
		"elements": []domain.ElementDescriptor{{Name: "radio", Description: "single choice"}},
	}
	res, err := engine.Start(context.Background(), "s1", "style my site", metadata)
	require.NoError(t, err)

	// The structurer failed; every question degrades to open text.
	require.Equal(t, domain.StatusSuspended, res.Status)
	questions, ok := res.Payload["questions"].([]domain.StructuredQuestion)
	require.True(t, ok)
	require.Len(t, questions, 1)
	assert.Equal(t, domain.KindText, questions[0].Kind)
	assert.Empty(t, questions[0].Options)
}

// Answers must correspond to questions that were actually asked:
// neither more answers than questions nor answers to invented questions
// can reach the sufficiency assessment.
func TestResume_FabricatedAnswersRejected(t *testing.T) {
	judge := &testutils.StubJudge{Verdicts: []bool{false}}
	f := newFixture(t, nil, judge, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "prompt", nil)
	require.NoError(t, err)
	before := f.checkpoint(t, "s1")
	require.Len(t, before.State.AllPreviousQuestions, 2)

	var validation *domain.ValidationError

	// More answers than questions asked.
	_, err = f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "a"},
			{"question": "Any constraints?", "answer": "b"},
			{"question": "Made up one?", "answer": "c"},
			{"question": "Made up two?", "answer": "d"},
			{"question": "Made up three?", "answer": "e"},
		},
	})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.FieldAnsweredQuestions, validation.Field)

	// Right count, but one answer was never asked.
	_, err = f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "a"},
			{"question": "Made up one?", "answer": "b"},
		},
	})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.FieldAnsweredQuestions, validation.Field)

	// Nothing reached the judge or the checkpoint.
	assert.Equal(t, 0, judge.Calls())
	after := f.checkpoint(t, "s1")
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, domain.NodeChoice, after.NextNode)

	// Genuine answers still go through.
	_, err = f.engine.Resume(ctx, "s1", map[string]any{
		"choice": "final_answer",
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "a"},
			{"question": "Any constraints?", "answer": "b"},
		},
	})
	require.NoError(t, err)
}

// Replaying the payload of an earlier resume is rejected: it cannot
// name the round of questions that was asked after it.
func TestResume_ReplayedAnswersRejected(t *testing.T) {
	gen := &testutils.ScriptedGenerator{Rounds: [][]string{
		{"What is the goal?", "Any constraints?"},
		{"What is your budget?"},
	}}
	judge := &testutils.StubJudge{Verdicts: []bool{false}}
	f := newFixture(t, gen, judge, nil)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "s1", "plan my infrastructure", nil)
	require.NoError(t, err)

	payload := map[string]any{
		"choice": "more_questions",
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "resilience"},
			{"question": "Any constraints?", "answer": "small team"},
		},
	}
	res, err := f.engine.Resume(ctx, "s1", payload)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuspended, res.Status)
	before := f.checkpoint(t, "s1")
	require.Equal(t, domain.NodeWaitForHuman, before.NextNode)

	// The identical payload again: it lacks the pending question.
	var validation *domain.ValidationError
	_, err = f.engine.Resume(ctx, "s1", payload)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.FieldAnsweredQuestions, validation.Field)

	after := f.checkpoint(t, "s1")
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, domain.NodeWaitForHuman, after.NextNode)

	// Covering the pending round completes the session.
	res, err = f.engine.Resume(ctx, "s1", map[string]any{
		"answered_questions": []map[string]string{
			{"question": "What is the goal?", "answer": "resilience"},
			{"question": "Any constraints?", "answer": "small team"},
			{"question": "What is your budget?", "answer": "modest"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
}
