package detect

import (
	"time"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
)

// Health scoring is deterministic and needs no provider. The tables below are
// fixed product decisions — users compare scores across analyses, so the
// cutoffs must not drift.
//
// Risk buckets on the aggregate score:
//
//	≥ 0.80 → low
//	≥ 0.60 → medium
//	≥ 0.40 → high
//	<  0.40 → critical
//
// Sub-scores, each clamped to [0,1] and weighted equally:
//
//	responsiveness = 1 − Σ unansweredWeight / totalQuestions  (no questions → 1.0)
//	  unansweredWeight = min(1, 0.5 + daysUnanswered/14)      (staler hurts more)
//	clarity        = 1 − misalignments/4
//	alignment      = 1 − Σ severityWeight/3                   (high 1.0, moderate 0.5, low 0.25)
const (
	riskLowCutoff    = 0.80
	riskMediumCutoff = 0.60
	riskHighCutoff   = 0.40
)

var severityWeights = map[capsule.Severity]float64{
	capsule.SeverityHigh:     1.0,
	capsule.SeverityModerate: 0.5,
	capsule.SeverityLow:      0.25,
}

// Health computes the aggregate conversation health from the other detectors'
// findings. Nil and empty inputs score the same clean 1.0 — absence of
// findings is not evidence of trouble.
func Health(c *capsule.ThreadCapsule, questions []capsule.UnansweredQuestion, tensions []capsule.TensionPoint, misalignments []capsule.Misalignment, now time.Time) *capsule.ConversationHealth {
	h := &capsule.ConversationHealth{
		Responsiveness:  responsiveness(c, questions),
		Clarity:         clamp01(1 - float64(len(misalignments))/4),
		Alignment:       alignment(tensions),
		Issues:          []string{},
		Strengths:       []string{},
		Recommendations: []string{},
	}

	h.Overall = (h.Responsiveness + h.Clarity + h.Alignment) / 3
	h.RiskLevel = riskLevel(h.Overall)

	describeScores(h)
	return h
}

func responsiveness(c *capsule.ThreadCapsule, unanswered []capsule.UnansweredQuestion) float64 {
	total := 0
	for _, msg := range c.Messages {
		total += len(msg.Features.Questions)
	}
	if total == 0 {
		// No questions asked means nothing went unanswered.
		return 1.0
	}

	weighted := 0.0
	for _, q := range unanswered {
		w := 0.5 + q.DaysUnanswered/14
		if w > 1 {
			w = 1
		}
		weighted += w
	}

	return clamp01(1 - weighted/float64(total))
}

func alignment(tensions []capsule.TensionPoint) float64 {
	sum := 0.0
	for _, tp := range tensions {
		sum += severityWeights[tp.Severity]
	}
	return clamp01(1 - sum/3)
}

func riskLevel(overall float64) capsule.RiskLevel {
	switch {
	case overall >= riskLowCutoff:
		return capsule.RiskLow
	case overall >= riskMediumCutoff:
		return capsule.RiskMedium
	case overall >= riskHighCutoff:
		return capsule.RiskHigh
	default:
		return capsule.RiskCritical
	}
}

// describeScores fills issues, strengths, and recommendations with short
// templated strings keyed on the sub-scores.
func describeScores(h *capsule.ConversationHealth) {
	type sub struct {
		name           string
		score          float64
		issue          string
		strength       string
		recommendation string
	}
	subs := []sub{
		{
			name:           "responsiveness",
			score:          h.Responsiveness,
			issue:          "questions are going unanswered",
			strength:       "questions are being answered promptly",
			recommendation: "reply to the outstanding questions before they go stale",
		},
		{
			name:           "clarity",
			score:          h.Clarity,
			issue:          "participants hold mismatched expectations",
			strength:       "expectations are stated clearly and consistently",
			recommendation: "restate scope, ownership, and timing explicitly to close the gaps",
		},
		{
			name:           "alignment",
			score:          h.Alignment,
			issue:          "tension is building in the thread",
			strength:       "the tone remains constructive",
			recommendation: "acknowledge the friction directly before it escalates",
		},
	}

	for _, s := range subs {
		switch {
		case s.score < 0.5:
			h.Issues = append(h.Issues, s.issue)
			h.Recommendations = append(h.Recommendations, s.recommendation)
		case s.score >= 0.8:
			h.Strengths = append(h.Strengths, s.strength)
		}
	}
}
