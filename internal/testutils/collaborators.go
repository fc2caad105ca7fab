// Package testutils provides scripted collaborator stubs shared by the
// engine and transport tests.
package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/elicit/pkg/domain"
)

// ScriptedGenerator returns one pre-scripted round of questions per
// call, then empty rounds. Safe for concurrent use.
type ScriptedGenerator struct {
	Rounds [][]string
	Err    error

	mu    sync.Mutex
	calls int
}

func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string, previous []string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Err != nil {
		return nil, g.Err
	}

	if g.calls >= len(g.Rounds) {
		g.calls++
		return nil, nil
	}
	round := g.Rounds[g.calls]
	g.calls++
	return append([]string(nil), round...), nil
}

// Calls reports how many times Generate was invoked.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// EchoStructurer turns every question into an open-text structured
// question, or fails with Err.
type EchoStructurer struct {
	Err error
}

func (s *EchoStructurer) Structure(ctx context.Context, questions []string, prompt string, elements []domain.ElementDescriptor) ([]domain.StructuredQuestion, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	structured := make([]domain.StructuredQuestion, 0, len(questions))
	for _, q := range questions {
		structured = append(structured, domain.StructuredQuestion{Kind: domain.KindText, Text: q})
	}
	return structured, nil
}

// StubJudge returns scripted verdicts in order, repeating the last one
// once the script runs out. Records how often it was consulted.
type StubJudge struct {
	Verdicts []bool
	Err      error

	mu    sync.Mutex
	calls int
}

func (j *StubJudge) Assess(ctx context.Context, prompt string, answered []domain.AnsweredQuestion, total int) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.calls++
	if j.Err != nil {
		return false, j.Err
	}
	if len(j.Verdicts) == 0 {
		return true, nil
	}
	idx := j.calls - 1
	if idx >= len(j.Verdicts) {
		idx = len(j.Verdicts) - 1
	}
	return j.Verdicts[idx], nil
}

// Calls reports how many times Assess was invoked.
func (j *StubJudge) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

// StubAnswerer returns a fixed answer, or fails with Err.
type StubAnswerer struct {
	Text string
	Err  error

	mu    sync.Mutex
	calls int
}

func (a *StubAnswerer) Answer(ctx context.Context, prompt string, answered []domain.AnsweredQuestion) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	if a.Err != nil {
		return "", a.Err
	}
	if a.Text == "" {
		return "the final answer", nil
	}
	return a.Text, nil
}

// Calls reports how many times Answer was invoked.
func (a *StubAnswerer) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
