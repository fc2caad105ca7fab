package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/elicit/pkg/domain"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// honors the interface semantics: not-found sentinel, roundtrip
// isolation, version compare-and-swap, delete and list. Every adapter
// test runs this suite against its backend.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadNotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "contract-missing")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("SaveLoadRoundtrip", func(t *testing.T) {
		cp := domain.NewCheckpoint("contract-rt", "Best region in Europe?", map[string]any{"k": "v"})
		cp.State.QuestionsToAsk = []string{"Which season?"}
		cp.State.AllPreviousQuestions = []string{"Which season?"}
		cp.Version = 1

		if err := store.Save(ctx, cp); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		// Mutating the caller's copy must not leak into the store.
		cp.State.QuestionsToAsk[0] = "mutated"

		got, err := store.Load(ctx, "contract-rt")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if got.NextNode != domain.NodeClarify {
			t.Errorf("next node mismatch: got %q", got.NextNode)
		}
		if got.Version != 1 {
			t.Errorf("version mismatch: got %d", got.Version)
		}
		if got.State.Prompt != "Best region in Europe?" {
			t.Errorf("prompt mismatch: got %q", got.State.Prompt)
		}
		if len(got.State.QuestionsToAsk) != 1 || got.State.QuestionsToAsk[0] != "Which season?" {
			t.Errorf("store leaked caller mutation: %v", got.State.QuestionsToAsk)
		}
	})

	t.Run("VersionCAS", func(t *testing.T) {
		cp := domain.NewCheckpoint("contract-cas", "prompt", nil)
		cp.Version = 1
		if err := store.Save(ctx, cp); err != nil {
			t.Fatalf("initial save failed: %v", err)
		}

		// Replaying the same version must lose the CAS.
		replay := cp.Clone()
		if err := store.Save(ctx, replay); !errors.Is(err, domain.ErrStaleCheckpoint) {
			t.Fatalf("expected ErrStaleCheckpoint on replay, got %v", err)
		}

		// Skipping a version must lose as well.
		skip := cp.Clone()
		skip.Version = 3
		if err := store.Save(ctx, skip); !errors.Is(err, domain.ErrStaleCheckpoint) {
			t.Fatalf("expected ErrStaleCheckpoint on version skip, got %v", err)
		}

		// The successor version wins.
		next := cp.Clone()
		next.Version = 2
		next.NextNode = domain.NodeStructureQuestions
		if err := store.Save(ctx, next); err != nil {
			t.Fatalf("successor save failed: %v", err)
		}
		got, err := store.Load(ctx, "contract-cas")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if got.Version != 2 || got.NextNode != domain.NodeStructureQuestions {
			t.Errorf("CAS winner not stored: version=%d node=%q", got.Version, got.NextNode)
		}

		// A brand-new session must start at version 1.
		fresh := domain.NewCheckpoint("contract-cas-fresh", "prompt", nil)
		fresh.Version = 5
		if err := store.Save(ctx, fresh); !errors.Is(err, domain.ErrStaleCheckpoint) {
			t.Fatalf("expected ErrStaleCheckpoint for fresh session at version 5, got %v", err)
		}
	})

	t.Run("DeleteAndList", func(t *testing.T) {
		cp := domain.NewCheckpoint("contract-del", "prompt", nil)
		cp.Version = 1
		if err := store.Save(ctx, cp); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		ids, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !containsID(ids, "contract-del") {
			t.Errorf("list missing contract-del: %v", ids)
		}

		if err := store.Delete(ctx, "contract-del"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := store.Load(ctx, "contract-del"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
		}
	})
}

func containsID(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
