package domain

// Status tags the outcome of a Start or Resume call. The failure arm is
// the idiomatic Go error return, classified by the types in errors.go.
type Status string

const (
	// StatusSuspended means the session is paused at a suspend point
	// and the Result payload must be surfaced to the user.
	StatusSuspended Status = "suspended"
	// StatusCompleted means the session reached its terminal node.
	StatusCompleted Status = "completed"
)

// Result is what the driver hands back to its caller.
type Result struct {
	Status Status `json:"status"`
	// Payload is the suspend payload (set iff Status == StatusSuspended).
	// It always contains a displayable "message" entry.
	Payload map[string]any `json:"payload,omitempty"`
	// Answer is the final answer (set iff Status == StatusCompleted).
	Answer string `json:"answer,omitempty"`
}

// Suspend reasons, surfaced in the suspend payload so callers can tell
// which kind of input the session is waiting for.
const (
	SuspendReasonChoice  = "awaiting_choice"
	SuspendReasonAnswers = "awaiting_answers"
)

// Resume payload field names declared by the suspend points.
const (
	FieldChoice            = "choice"
	FieldAnsweredQuestions = "answered_questions"
)

// SuspendSignal is returned by a step instead of advancing: pause here,
// persist, and wait for external input.
type SuspendSignal struct {
	// Reason tags the suspension (SuspendReason* constants).
	Reason string
	// Message is user-displayable and always included in the payload.
	Message string
	// Payload is surfaced verbatim to the external caller.
	Payload map[string]any
	// Expects names the resume payload fields the suspended node
	// requires before it will fall through on re-execution.
	Expects []string
}

// ResumeData is the typed form of a resume payload. The driver decodes
// the caller's raw map into it before merging into state.
type ResumeData struct {
	Choice            string             `mapstructure:"choice"`
	AnsweredQuestions []AnsweredQuestion `mapstructure:"answered_questions"`
}

// AssessmentReason explains a sufficiency decision.
type AssessmentReason string

const (
	ReasonMaxReached         AssessmentReason = "max_reached"
	ReasonJudgedSufficient   AssessmentReason = "judged_sufficient"
	ReasonJudgedInsufficient AssessmentReason = "judged_insufficient"
	ReasonAssessmentError    AssessmentReason = "assessment_error"
)

// Assessment is the closed result of the sufficiency check that bounds
// the clarification loop.
type Assessment struct {
	NeedsMore bool
	Reason    AssessmentReason
	Message   string
}
