package detect

import (
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
)

// UnansweredQuestions finds questions with no later cross-participant
// response. Multiple questions in one message are checked independently: when
// a reply addresses some but not all of them, only the unaddressed ones are
// reported. Always returns a non-nil slice; finding nothing serializes as an
// empty list, never null.
func UnansweredQuestions(c *capsule.ThreadCapsule, now time.Time) []capsule.UnansweredQuestion {
	found := []capsule.UnansweredQuestion{}

	for i := range c.Messages {
		msg := &c.Messages[i]
		if !msg.Features.ContainsQuestion {
			continue
		}

		responses := laterCrossParticipant(c, i)
		multi := len(msg.Features.Questions) > 1

		for _, q := range msg.Features.Questions {
			if answered(q, msg.ID, responses, multi) {
				continue
			}
			found = append(found, capsule.UnansweredQuestion{
				Question:       q,
				ParticipantID:  msg.ParticipantID,
				DaysUnanswered: daysSince(msg.Timestamp, now),
				MessageID:      msg.ID,
			})
		}
	}

	return found
}

// laterCrossParticipant returns the messages after index i sent by a different
// participant.
func laterCrossParticipant(c *capsule.ThreadCapsule, i int) []*capsule.Message {
	var out []*capsule.Message
	from := c.Messages[i].ParticipantID
	for j := i + 1; j < len(c.Messages); j++ {
		if c.Messages[j].ParticipantID != from {
			out = append(out, &c.Messages[j])
		}
	}
	return out
}

// answered reports whether any candidate response addresses the question. A
// direct response edge settles a single-question message outright; for
// multi-question messages each question needs lexical overlap with some later
// reply, so a partial answer leaves the rest reported.
func answered(question string, questionMsgID uuid.UUID, responses []*capsule.Message, multi bool) bool {
	for _, resp := range responses {
		direct := resp.ResponseTo != nil && *resp.ResponseTo == questionMsgID
		if direct && !multi {
			return true
		}
		if lexicalOverlap(question, resp.Content) {
			return true
		}
	}
	return false
}
