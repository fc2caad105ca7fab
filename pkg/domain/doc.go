// Package domain holds the core types of the clarification workflow:
// the session state, the checkpoint record, the suspend/result unions
// and the error taxonomy. It has no dependencies outside the standard
// library; adapters and the engine build on top of it.
package domain
