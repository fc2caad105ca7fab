// Package static provides deterministic, LLM-free collaborators. They
// power the CLI out of the box and give tests and examples predictable
// behavior; production deployments swap in model-backed implementations
// of the same ports.
package static

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/elicit/pkg/domain"
)

// questionBank is asked in order, skipping anything already covered.
var questionBank = []string{
	"What is the main goal you want to achieve with %q?",
	"Who is the intended audience for this?",
	"Are there any constraints or requirements I should know about?",
	"What have you already tried or considered?",
	"How will you measure whether the outcome is successful?",
}

// Generator produces clarifying questions from a fixed bank,
// parameterized by the prompt.
type Generator struct{}

func (Generator) Generate(ctx context.Context, prompt string, previous []string) ([]string, error) {
	asked := make(map[string]struct{}, len(previous))
	for _, p := range previous {
		asked[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}

	var questions []string
	for _, template := range questionBank {
		q := template
		if strings.Contains(template, "%q") {
			q = fmt.Sprintf(template, summarize(prompt))
		}
		if _, ok := asked[strings.ToLower(strings.TrimSpace(q))]; ok {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// summarize keeps the prompt readable inside a question.
func summarize(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	const max = 60
	if len(prompt) <= max {
		return prompt
	}
	return prompt[:max] + "..."
}

// optionsPattern matches a parenthesized option list such as
// "(e.g. red, green, or blue)" at the end of a question.
var optionsPattern = regexp.MustCompile(`\((?:e\.g\.|for example|such as)\s+([^)]+)\)`)

// Structurer classifies questions by shape: a question carrying an
// explicit example list becomes a radio choice over those examples,
// everything else stays open text.
type Structurer struct{}

func (Structurer) Structure(ctx context.Context, questions []string, prompt string, elements []domain.ElementDescriptor) ([]domain.StructuredQuestion, error) {
	radio := hasElement(elements, "radio")

	structured := make([]domain.StructuredQuestion, 0, len(questions))
	for _, q := range questions {
		if radio {
			if options := extractOptions(q); len(options) >= 2 {
				structured = append(structured, domain.StructuredQuestion{
					Kind:    "radio",
					Text:    q,
					Options: options,
				})
				continue
			}
		}
		structured = append(structured, domain.StructuredQuestion{
			Kind: domain.KindText,
			Text: q,
		})
	}
	return structured, nil
}

func hasElement(elements []domain.ElementDescriptor, name string) bool {
	for _, el := range elements {
		if el.Name == name {
			return true
		}
	}
	return false
}

func extractOptions(question string) []string {
	m := optionsPattern.FindStringSubmatch(question)
	if m == nil {
		return nil
	}

	raw := strings.ReplaceAll(m[1], " or ", ",")
	var options []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			options = append(options, part)
		}
	}
	return options
}

// Judge deems the context sufficient once a minimum number of answers
// has been collected.
type Judge struct {
	// MinAnswers below 1 defaults to 3.
	MinAnswers int
}

func (j Judge) Assess(ctx context.Context, prompt string, answered []domain.AnsweredQuestion, total int) (bool, error) {
	min := j.MinAnswers
	if min < 1 {
		min = 3
	}
	return len(answered) >= min, nil
}

// Answerer renders a deterministic markdown answer that restates the
// prompt and the gathered context.
type Answerer struct{}

func (Answerer) Answer(ctx context.Context, prompt string, answered []domain.AnsweredQuestion) (string, error) {
	var b strings.Builder

	b.WriteString("# Answer\n\n")
	fmt.Fprintf(&b, "You asked: *%s*\n\n", strings.TrimSpace(prompt))

	if len(answered) > 0 {
		b.WriteString("## What you told me\n\n")
		for _, qa := range answered {
			answer := strings.TrimSpace(qa.Answer)
			if answer == "" {
				answer = "(no answer)"
			}
			fmt.Fprintf(&b, "- **%s** %s\n", strings.TrimSpace(qa.Question), answer)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendation\n\n")
	if len(answered) == 0 {
		b.WriteString("Without further context, start with the simplest approach that could work and iterate from there.\n")
	} else {
		fmt.Fprintf(&b, "Based on the %d detail(s) above, focus first on the goal you stated and validate it against your constraints before expanding scope.\n", len(answered))
	}

	return b.String(), nil
}
