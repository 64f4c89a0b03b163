package detect

import (
	"fmt"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
)

// maxSuggestedActions caps the action list; more than three items stops being
// a priority list.
const maxSuggestedActions = 3

// SuggestedActions synthesizes a short prioritized action list from the
// detector findings: high tension first, then the stalest unanswered question,
// then the weakest health recommendation.
func SuggestedActions(c *capsule.ThreadCapsule, analysis *capsule.ConversationAnalysis) []capsule.SuggestedAction {
	actions := []capsule.SuggestedAction{}

	for _, tp := range analysis.TensionPoints {
		if tp.Severity != capsule.SeverityHigh {
			continue
		}
		actions = append(actions, capsule.SuggestedAction{
			Action: "De-escalate before replying to anything else",
			Reason: tp.Description,
		})
		break
	}

	if len(analysis.UnansweredQuestions) > 0 {
		stalest := analysis.UnansweredQuestions[0]
		for _, q := range analysis.UnansweredQuestions[1:] {
			if q.DaysUnanswered > stalest.DaysUnanswered {
				stalest = q
			}
		}
		actions = append(actions, capsule.SuggestedAction{
			Action: fmt.Sprintf("Answer %s's open question: %q", displayName(c, stalest.ParticipantID), stalest.Question),
			Reason: fmt.Sprintf("unanswered for %.1f days", stalest.DaysUnanswered),
		})
	}

	if h := analysis.Health; h != nil && len(h.Recommendations) > 0 {
		actions = append(actions, capsule.SuggestedAction{
			Action: h.Recommendations[0],
			Reason: fmt.Sprintf("overall health is %s (%.2f)", h.RiskLevel, h.Overall),
		})
	}

	if len(actions) > maxSuggestedActions {
		actions = actions[:maxSuggestedActions]
	}
	for i := range actions {
		actions[i].Priority = i + 1
	}
	return actions
}
