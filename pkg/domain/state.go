package domain

// UserChoice is the decision a user makes at the choice suspend point.
type UserChoice string

const (
	// ChoiceUndecided means the user has not been asked yet.
	ChoiceUndecided UserChoice = ""
	// ChoiceMoreQuestions asks the engine for another clarification round.
	ChoiceMoreQuestions UserChoice = "more_questions"
	// ChoiceFinalAnswer skips straight to answer generation.
	ChoiceFinalAnswer UserChoice = "final_answer"
)

// Valid reports whether the choice is one of the two accepted values.
func (c UserChoice) Valid() bool {
	return c == ChoiceMoreQuestions || c == ChoiceFinalAnswer
}

// KindText is the fallback presentation kind: a plain open-text input.
// It is used whenever no UI element descriptors are available or the
// structuring collaborator fails.
const KindText = "text"

// StructuredQuestion is a clarifying question annotated with a UI
// presentation kind. Options is populated only for multi-choice kinds.
type StructuredQuestion struct {
	Kind    string   `json:"kind"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// AnsweredQuestion pairs a question with the answer the user gave.
type AnsweredQuestion struct {
	Question string `json:"question" mapstructure:"question"`
	Answer   string `json:"answer" mapstructure:"answer"`
}

// ElementDescriptor describes a UI element kind the caller can render.
// Descriptors are supplied once at session creation through Metadata and
// are only ever read by the engine.
type ElementDescriptor struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
}

// State is the single mutable record of one clarification session.
// It is a snapshot, not a message log: steps overwrite or append fields,
// and the driver persists the whole record after every node execution.
type State struct {
	// Prompt is the original user request. It is immutable after
	// creation; accumulated context lives in AnsweredQuestions only.
	Prompt string `json:"prompt"`

	// QuestionsToAsk holds plain-text questions pending structuring.
	// Cleared once consumed by the structuring step.
	QuestionsToAsk []string `json:"questions_to_ask,omitempty"`

	// StructuredQuestions are the UI-ready questions of the current
	// round. Cleared when their answers are merged back in.
	StructuredQuestions []StructuredQuestion `json:"structured_questions,omitempty"`

	// AnsweredQuestions holds the answers of the current round.
	// Replaced, never appended, on each resume.
	AnsweredQuestions []AnsweredQuestion `json:"answered_questions,omitempty"`

	// AllPreviousQuestions is the union of every question ever asked,
	// in ask order. It only grows, and never beyond the engine's
	// question limit. Used for deduplication.
	AllPreviousQuestions []string `json:"all_previous_questions,omitempty"`

	// UserChoice is set exactly once, by the choice suspend point.
	UserChoice UserChoice `json:"user_choice,omitempty"`

	// Answer is the final answer text, set by the terminal step.
	Answer string `json:"answer,omitempty"`

	// Metadata is opaque caller context (e.g. available UI element
	// descriptors). Supplied at creation, read-only afterwards.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewState creates the initial state for a session.
func NewState(prompt string, metadata map[string]any) *State {
	return &State{
		Prompt:   prompt,
		Metadata: metadata,
	}
}

// Clone returns a deep copy of the state. The driver executes steps on a
// clone so that a failing step never leaves a half-mutated checkpoint.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.QuestionsToAsk = append([]string(nil), s.QuestionsToAsk...)
	out.AllPreviousQuestions = append([]string(nil), s.AllPreviousQuestions...)
	if s.StructuredQuestions != nil {
		out.StructuredQuestions = make([]StructuredQuestion, len(s.StructuredQuestions))
		for i, q := range s.StructuredQuestions {
			q.Options = append([]string(nil), q.Options...)
			out.StructuredQuestions[i] = q
		}
	}
	out.AnsweredQuestions = append([]AnsweredQuestion(nil), s.AnsweredQuestions...)
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
