// Package workflow is the core engine: a durable, resumable state
// machine that elicits clarifying information before answering an
// open-ended prompt.
//
// The graph has six nodes (clarify, structure_questions, choice,
// additional_questions, wait_for_human, answer). Two of them are
// suspend points: instead of advancing they can return a suspend
// signal, at which point the driver persists the checkpoint and hands a
// payload back to the caller. A later Resume call injects the user's
// input into the paused node and continues routing. The clarification
// loop is bounded by a hard question ceiling that is enforced before
// any external sufficiency judgment runs.
package workflow
