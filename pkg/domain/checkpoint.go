package domain

import "time"

// Node identifiers of the clarification graph. A checkpoint's NextNode is
// always one of these or NodeTerminal; anything else is an invariant
// violation, never a legitimate runtime condition.
const (
	NodeClarify             = "clarify"
	NodeStructureQuestions  = "structure_questions"
	NodeChoice              = "choice"
	NodeAdditionalQuestions = "additional_questions"
	NodeWaitForHuman        = "wait_for_human"
	NodeAnswer              = "answer"

	// NodeTerminal is the sentinel for a completed session.
	NodeTerminal = "terminal"
)

// KnownNode reports whether name is a defined node or the terminal sentinel.
func KnownNode(name string) bool {
	switch name {
	case NodeClarify, NodeStructureQuestions, NodeChoice,
		NodeAdditionalQuestions, NodeWaitForHuman, NodeAnswer, NodeTerminal:
		return true
	}
	return false
}

// Checkpoint is the persisted unit of a session: the latest state plus the
// node the driver will execute next. Version increases by exactly one per
// save; stores use it as a compare-and-swap token so that two concurrent
// resumes can never both win.
type Checkpoint struct {
	SessionID string    `json:"session_id"`
	NextNode  string    `json:"next_node"`
	State     *State    `json:"state"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCheckpoint creates the initial checkpoint for a fresh session,
// pointed at the clarify node. Version starts at zero; the driver
// increments it before every save, so the first persisted version is 1.
func NewCheckpoint(sessionID, prompt string, metadata map[string]any) *Checkpoint {
	return &Checkpoint{
		SessionID: sessionID,
		NextNode:  NodeClarify,
		State:     NewState(prompt, metadata),
	}
}

// Terminal reports whether the session has produced its final answer.
func (c *Checkpoint) Terminal() bool {
	return c.NextNode == NodeTerminal
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.State = c.State.Clone()
	return &out
}
