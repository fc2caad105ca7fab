package workflow

import "strings"

// filterDuplicates drops candidates that are textually similar to any
// previously asked question, or to an earlier candidate in the same
// batch. Order is preserved.
func (e *Engine) filterDuplicates(candidates, previous []string) []string {
	kept := make([]string, 0, len(candidates))
	seen := append([]string(nil), previous...)

	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		duplicate := false
		for _, p := range seen {
			if questionsSimilar(c, p, e.similarity) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, c)
			seen = append(seen, c)
		}
	}
	return kept
}

// questionsSimilar reports whether two questions share at least
// threshold of their combined vocabulary: the Jaccard index of their
// whitespace-tokenized, lowercased word sets.
func questionsSimilar(a, b string, threshold float64) bool {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection

	return float64(intersection)/float64(union) >= threshold
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
