package detect

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
)

func TestHealth_CleanConversation(t *testing.T) {
	now := time.Now()
	c := buildCapsule(t, []msgSpec{
		{speaker: "Alice", content: "Release shipped.", ts: now},
		{speaker: "Bob", content: "Nice, thanks.", ts: now},
	})

	h := Health(c, []capsule.UnansweredQuestion{}, []capsule.TensionPoint{}, []capsule.Misalignment{}, now)

	if !floatNear(h.Responsiveness, 1) || !floatNear(h.Clarity, 1) || !floatNear(h.Alignment, 1) {
		t.Errorf("expected perfect sub-scores, got %f/%f/%f", h.Responsiveness, h.Clarity, h.Alignment)
	}
	if !floatNear(h.Overall, 1) {
		t.Errorf("expected overall 1.0, got %f", h.Overall)
	}
	if h.RiskLevel != capsule.RiskLow {
		t.Errorf("expected low risk, got %s", h.RiskLevel)
	}
	if len(h.Strengths) != 3 {
		t.Errorf("expected 3 strengths, got %v", h.Strengths)
	}
	if len(h.Issues) != 0 || len(h.Recommendations) != 0 {
		t.Errorf("expected no issues for a clean thread, got %v / %v", h.Issues, h.Recommendations)
	}
}

func TestHealth_NilDetectorSlicesScoreClean(t *testing.T) {
	// Disabled detectors pass nil; absence of findings must not read as trouble.
	now := time.Now()
	c := buildCapsule(t, []msgSpec{
		{speaker: "Alice", content: "Release shipped.", ts: now},
	})

	h := Health(c, nil, nil, nil, now)
	if !floatNear(h.Overall, 1) {
		t.Errorf("expected overall 1.0 with nil inputs, got %f", h.Overall)
	}
	if h.RiskLevel != capsule.RiskLow {
		t.Errorf("expected low risk, got %s", h.RiskLevel)
	}
}

func TestHealth_ResponsivenessWeighting(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := buildCapsule(t, []msgSpec{
		{
			speaker:   "Alice",
			content:   "Any update on the contract?",
			ts:        now.Add(-84 * time.Hour), // 3.5 days
			questions: []string{"Any update on the contract?"},
		},
	})
	unanswered := UnansweredQuestions(c, now)

	h := Health(c, unanswered, []capsule.TensionPoint{}, []capsule.Misalignment{}, now)

	// weight = 0.5 + 3.5/14 = 0.75 over 1 question → responsiveness 0.25
	if !floatNear(h.Responsiveness, 0.25) {
		t.Errorf("expected responsiveness 0.25, got %f", h.Responsiveness)
	}
}

func TestHealth_ResponsivenessWeightCapsAtOne(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := buildCapsule(t, []msgSpec{
		{
			speaker:   "Alice",
			content:   "Where is the invoice?",
			ts:        now.Add(-30 * 24 * time.Hour),
			questions: []string{"Where is the invoice?"},
		},
	})
	unanswered := UnansweredQuestions(c, now)

	h := Health(c, unanswered, []capsule.TensionPoint{}, []capsule.Misalignment{}, now)
	if !floatNear(h.Responsiveness, 0) {
		t.Errorf("expected responsiveness floored at 0, got %f", h.Responsiveness)
	}
}

func TestHealth_RiskBuckets(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		tensions      []capsule.TensionPoint
		misalignments []capsule.Misalignment
		want          capsule.RiskLevel
	}{
		{
			name: "no findings is low",
			want: capsule.RiskLow,
		},
		{
			// clarity 0.5, alignment 1−0.5/3≈0.833 → overall ≈0.778
			name:          "moderate friction is medium",
			tensions:      []capsule.TensionPoint{{Severity: capsule.SeverityModerate}},
			misalignments: make([]capsule.Misalignment, 2),
			want:          capsule.RiskMedium,
		},
		{
			// clarity 0, alignment 1−1/3≈0.667 → overall ≈0.556
			name:          "heavy misalignment is high",
			tensions:      []capsule.TensionPoint{{Severity: capsule.SeverityHigh}},
			misalignments: make([]capsule.Misalignment, 4),
			want:          capsule.RiskHigh,
		},
		{
			// clarity 0, alignment 0 → overall ≈0.333
			name: "everything on fire is critical",
			tensions: []capsule.TensionPoint{
				{Severity: capsule.SeverityHigh},
				{Severity: capsule.SeverityHigh},
				{Severity: capsule.SeverityHigh},
			},
			misalignments: make([]capsule.Misalignment, 4),
			want:          capsule.RiskCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := buildCapsule(t, []msgSpec{
				{speaker: "Alice", content: "status", ts: now},
			})
			h := Health(c, []capsule.UnansweredQuestion{}, tt.tensions, tt.misalignments, now)
			if h.RiskLevel != tt.want {
				t.Errorf("risk = %s (overall %f), want %s", h.RiskLevel, h.Overall, tt.want)
			}
		})
	}
}

func TestHealth_IssuesAndRecommendationsPairUp(t *testing.T) {
	now := time.Now()
	c := buildCapsule(t, []msgSpec{
		{speaker: "Alice", content: "status", ts: now},
	})

	h := Health(c, []capsule.UnansweredQuestion{},
		[]capsule.TensionPoint{
			{Severity: capsule.SeverityHigh},
			{Severity: capsule.SeverityHigh},
		},
		make([]capsule.Misalignment, 4), now)

	if len(h.Issues) != len(h.Recommendations) {
		t.Errorf("every issue needs a recommendation: %d issues, %d recommendations", len(h.Issues), len(h.Recommendations))
	}
	if len(h.Issues) == 0 {
		t.Error("expected issues for a troubled thread")
	}
}

func TestSuggestedActions_Prioritized(t *testing.T) {
	now := time.Now()
	c := buildCapsule(t, []msgSpec{
		{
			speaker:   "Alice",
			content:   "Where is the proposal? This is urgent.",
			ts:        now.Add(-5 * 24 * time.Hour),
			questions: []string{"Where is the proposal?"},
		},
		{
			speaker:   "Bob",
			content:   "When is the retro?",
			ts:        now.Add(-2 * 24 * time.Hour),
			questions: []string{"When is the retro?"},
		},
	})

	analysis := &capsule.ConversationAnalysis{
		UnansweredQuestions: []capsule.UnansweredQuestion{
			{Question: "When is the retro?", ParticipantID: c.Messages[1].ParticipantID, DaysUnanswered: 2, MessageID: c.Messages[1].ID},
			{Question: "Where is the proposal?", ParticipantID: c.Messages[0].ParticipantID, DaysUnanswered: 5, MessageID: c.Messages[0].ID},
		},
		TensionPoints: []capsule.TensionPoint{
			{Type: "urgency", Severity: capsule.SeverityHigh, Description: "urgency markers: urgent", MessageIDs: []uuid.UUID{c.Messages[0].ID}},
		},
		Health: &capsule.ConversationHealth{
			Overall:         0.45,
			RiskLevel:       capsule.RiskHigh,
			Recommendations: []string{"reply to the outstanding questions before they go stale"},
		},
	}

	actions := SuggestedActions(c, analysis)

	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d: %+v", len(actions), actions)
	}
	for i, a := range actions {
		if a.Priority != i+1 {
			t.Errorf("action %d has priority %d", i, a.Priority)
		}
	}
	if actions[0].Action != "De-escalate before replying to anything else" {
		t.Errorf("expected de-escalation first, got %q", actions[0].Action)
	}
	// The stalest question wins, not the first listed.
	if actions[1].Action != `Answer Alice's open question: "Where is the proposal?"` {
		t.Errorf("expected the 5-day question, got %q", actions[1].Action)
	}
	if actions[2].Action != analysis.Health.Recommendations[0] {
		t.Errorf("expected the health recommendation last, got %q", actions[2].Action)
	}
}

func TestSuggestedActions_QuietThread(t *testing.T) {
	now := time.Now()
	c := buildCapsule(t, []msgSpec{
		{speaker: "Alice", content: "all good here", ts: now},
	})

	analysis := &capsule.ConversationAnalysis{
		UnansweredQuestions: []capsule.UnansweredQuestion{},
		TensionPoints:       []capsule.TensionPoint{},
		Health: &capsule.ConversationHealth{
			Overall:   0.95,
			RiskLevel: capsule.RiskLow,
		},
	}

	actions := SuggestedActions(c, analysis)
	if actions == nil {
		t.Fatal("expected non-nil action slice")
	}
	if len(actions) != 0 {
		t.Fatalf("expected no actions for a healthy thread, got %+v", actions)
	}
}
