package detect

import (
	"testing"
	"time"
)

func TestUnansweredQuestions_StaleQuestionReported(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := buildCapsule(t, []msgSpec{
		{
			speaker:   "Alice",
			content:   "Can you send the proposal by Friday?",
			ts:        now.Add(-2 * 24 * time.Hour),
			questions: []string{"Can you send the proposal by Friday?"},
		},
	})

	got := UnansweredQuestions(c, now)
	if got == nil {
		t.Fatal("expected non-nil slice")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 unanswered question, got %d", len(got))
	}
	if got[0].DaysUnanswered < 2 {
		t.Errorf("expected at least 2 days unanswered, got %f", got[0].DaysUnanswered)
	}
	if got[0].Question != "Can you send the proposal by Friday?" {
		t.Errorf("unexpected question text %q", got[0].Question)
	}
	if got[0].ParticipantID != c.Messages[0].ParticipantID {
		t.Error("expected asker's participant id on the finding")
	}
}

func TestUnansweredQuestions_DirectResponseSettles(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := buildCapsule(t, []msgSpec{
		{
			speaker:   "Alice",
			content:   "Can you send the proposal by Friday?",
			ts:        now.Add(-2 * 24 * time.Hour),
			questions: []string{"Can you send the proposal by Friday?"},
		},
		{
			// No lexical overlap with the question; the reply edge alone settles it.
			speaker: "Bob",
			content: "On it.",
			ts:      now.Add(-24 * time.Hour),
			replyTo: 1,
		},
	})

	got := UnansweredQuestions(c, now)
	if len(got) != 0 {
		t.Fatalf("expected no unanswered questions, got %d: %+v", len(got), got)
	}
}

func TestUnansweredQuestions_SameParticipantDoesNotAnswer(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := buildCapsule(t, []msgSpec{
		{
			speaker:   "Alice",
			content:   "Can you send the proposal by Friday?",
			ts:        now.Add(-2 * 24 * time.Hour),
			questions: []string{"Can you send the proposal by Friday?"},
		},
		{
			speaker: "Alice",
			content: "The proposal deadline is Friday, to be clear.",
			ts:      now.Add(-24 * time.Hour),
		},
	})

	got := UnansweredQuestions(c, now)
	if len(got) != 1 {
		t.Fatalf("expected the question to stay open, got %d findings", len(got))
	}
}

func TestUnansweredQuestions_PartialAnswerLeavesRest(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := buildCapsule(t, []msgSpec{
		{
			speaker: "Alice",
			content: "Can you send the proposal by Friday? And what is the budget for phase two?",
			ts:      now.Add(-24 * time.Hour),
			questions: []string{
				"Can you send the proposal by Friday?",
				"What is the budget for phase two?",
			},
		},
		{
			// Addresses the proposal, ignores the budget. The reply edge must
			// not blanket-settle a multi-question message.
			speaker: "Bob",
			content: "The proposal is attached.",
			ts:      now.Add(-12 * time.Hour),
			replyTo: 1,
		},
	})

	got := UnansweredQuestions(c, now)
	if len(got) != 1 {
		t.Fatalf("expected exactly the budget question open, got %d: %+v", len(got), got)
	}
	if got[0].Question != "What is the budget for phase two?" {
		t.Errorf("expected the budget question reported, got %q", got[0].Question)
	}
}

func TestUnansweredQuestions_EmptyWhenNoQuestions(t *testing.T) {
	now := time.Now()
	c := buildCapsule(t, []msgSpec{
		{speaker: "Alice", content: "Shipping the release today.", ts: now},
		{speaker: "Bob", content: "Sounds good.", ts: now},
	})

	got := UnansweredQuestions(c, now)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected non-nil empty slice, got %v", got)
	}
}
