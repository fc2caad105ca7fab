package workflow

import "github.com/aretw0/elicit/pkg/domain"

// nextNode evaluates the conditional edges of the graph: given the node
// that just completed and the resulting state, it names the node to run
// next.
//
// Tie-break rule: an absent or unrecognized user choice routes to the
// answer node — the engine fails toward producing output rather than
// looping.
func nextNode(node string, st *domain.State) (string, error) {
	switch node {
	case domain.NodeClarify:
		return domain.NodeStructureQuestions, nil

	case domain.NodeStructureQuestions:
		// First round: the user still has to answer and pick a
		// direction. Later rounds already carry a choice, so the new
		// questions go straight to the answer-collection suspend point.
		if st.UserChoice == domain.ChoiceUndecided {
			return domain.NodeChoice, nil
		}
		return domain.NodeWaitForHuman, nil

	case domain.NodeChoice:
		if st.UserChoice == domain.ChoiceMoreQuestions {
			return domain.NodeAdditionalQuestions, nil
		}
		return domain.NodeAnswer, nil

	case domain.NodeAdditionalQuestions:
		if len(st.QuestionsToAsk) > 0 {
			return domain.NodeStructureQuestions, nil
		}
		return domain.NodeAnswer, nil

	case domain.NodeWaitForHuman:
		return domain.NodeAnswer, nil

	case domain.NodeAnswer:
		return domain.NodeTerminal, nil
	}

	return "", &domain.InvariantViolation{Node: node, Reason: "no outgoing edge defined"}
}
