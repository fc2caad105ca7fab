/*
Package elicit is a durable, resumable clarification workflow engine: it
takes a user's underspecified prompt, asks a bounded number of
clarifying questions, and produces a final answer grounded in the
collected context.

It implements a "Suspendable State Machine with Checkpoint Persistence"
architecture, separating the clarification graph (Logic) from the
session state (Checkpoint) and the external collaborators that generate
questions, judge sufficiency and write the answer (Tools).

# Concept

A session walks a fixed graph of nodes: generate questions, structure
them for a UI, suspend for the human's answers and their choice between
another round and the final answer, then answer. Every transition is
checkpointed, so the process can die between a suspension and its resume
without losing anything. Versioned saves make a replayed or raced resume
lose cleanly instead of corrupting state.

# Key Features

  - Durable Execution: every node transition persists a checkpoint; any
    store backend (memory, file, Redis, SQLite) can hold it.
  - Bounded Loop: a hard ceiling on questions holds even when the
    sufficiency judge misbehaves, and near-duplicate questions are
    filtered by textual similarity.
  - Hexagonal Architecture: core logic is decoupled from adapters
    (storage, HTTP, MCP, CLI) and from the collaborator implementations.
  - Idempotent Resume: suspend points re-execute and fall through once
    their expected input is present, so retries are safe.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/elicit"
		"github.com/aretw0/elicit/pkg/adapters/memory"
		"github.com/aretw0/elicit/pkg/collaborators/static"
		"github.com/aretw0/elicit/pkg/domain"
	)

	func main() {
		eng, err := elicit.New(memory.NewStore(), elicit.Collaborators{
			Generator:  static.Generator{},
			Structurer: static.Structurer{},
			Judge:      static.Judge{},
			Answerer:   static.Answerer{},
		})
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		res, err := eng.Start(ctx, "session-123", "how should I deploy my app?", nil)
		if err != nil {
			log.Fatal(err)
		}

		for res.Status == domain.StatusSuspended {
			// Surface res.Payload to the user, collect their input...
			res, err = eng.Resume(ctx, "session-123", map[string]any{
				"choice": "final_answer",
			})
			if err != nil {
				log.Fatal(err)
			}
		}

		fmt.Println(res.Answer)
	}
*/
package elicit
