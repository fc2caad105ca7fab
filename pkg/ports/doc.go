// Package ports defines the contracts between the workflow engine and
// the outside world: checkpoint persistence, distributed locking and the
// four external collaborators. Adapters implement these interfaces; the
// engine depends only on them.
package ports
