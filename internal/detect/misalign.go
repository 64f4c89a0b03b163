package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
)

var (
	beliefRe = regexp.MustCompile(`\b(?:i thought|i assumed|i understood|i expected|my understanding was|i was under the impression)\b`)

	ownershipRe = regexp.MustCompile(`\b(?:i|we)(?:'ll|’ll| will| can)?\s+(?:handle|take care of|own|cover)\b`)

	deadlineRe = regexp.MustCompile(`\bby (monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|eod|end of (?:the )?week|next week)\b`)
)

// Misalignments pattern-matches expectation mismatches in the capsule:
// stated beliefs contradicted by another participant, divergent ownership
// claims, and divergent timeline claims. Always returns a non-nil slice.
// The hybrid AI augmentation lives in the engine's escalation path and merges
// into this output via MergeMisalignments.
func Misalignments(c *capsule.ThreadCapsule) []capsule.Misalignment {
	found := []capsule.Misalignment{}
	found = append(found, beliefMismatches(c)...)
	if m, ok := divergentOwnership(c); ok {
		found = append(found, m)
	}
	found = append(found, divergentDeadlines(c)...)
	return found
}

// beliefMismatches flags "I thought/assumed X" statements paired against the
// message they respond to, when that message came from someone else.
func beliefMismatches(c *capsule.ThreadCapsule) []capsule.Misalignment {
	var found []capsule.Misalignment

	for i := range c.Messages {
		msg := &c.Messages[i]
		m := beliefRe.FindString(strings.ToLower(msg.Content))
		if m == "" {
			continue
		}

		counterpart := counterpartOf(c, msg)
		if counterpart == nil {
			continue
		}

		speaker := displayName(c, msg.ParticipantID)
		other := displayName(c, counterpart.ParticipantID)
		found = append(found, capsule.Misalignment{
			Description:    fmt.Sprintf("%s's stated expectation (%q) diverges from what %s said", speaker, m, other),
			ParticipantIDs: []uuid.UUID{msg.ParticipantID, counterpart.ParticipantID},
			MessageIDs:     []uuid.UUID{msg.ID, counterpart.ID},
		})
	}

	return found
}

// divergentOwnership fires when two or more participants claim ownership of
// work in the same thread.
func divergentOwnership(c *capsule.ThreadCapsule) (capsule.Misalignment, bool) {
	claimants := map[uuid.UUID]uuid.UUID{} // participant → claiming message
	var order []uuid.UUID

	for i := range c.Messages {
		msg := &c.Messages[i]
		if !ownershipRe.MatchString(strings.ToLower(msg.Content)) {
			continue
		}
		if _, seen := claimants[msg.ParticipantID]; !seen {
			claimants[msg.ParticipantID] = msg.ID
			order = append(order, msg.ParticipantID)
		}
	}

	if len(claimants) < 2 {
		return capsule.Misalignment{}, false
	}

	var names []string
	var participantIDs, messageIDs []uuid.UUID
	for _, pid := range order {
		names = append(names, displayName(c, pid))
		participantIDs = append(participantIDs, pid)
		messageIDs = append(messageIDs, claimants[pid])
	}

	return capsule.Misalignment{
		Description:    "divergent ownership claims: " + strings.Join(names, " and ") + " each claim responsibility for the work",
		ParticipantIDs: participantIDs,
		MessageIDs:     messageIDs,
	}, true
}

// divergentDeadlines flags different participants stating different deadlines.
func divergentDeadlines(c *capsule.ThreadCapsule) []capsule.Misalignment {
	type claim struct {
		participantID uuid.UUID
		messageID     uuid.UUID
		deadline      string
	}
	var claims []claim

	for i := range c.Messages {
		msg := &c.Messages[i]
		m := deadlineRe.FindStringSubmatch(strings.ToLower(msg.Content))
		if m == nil {
			continue
		}
		claims = append(claims, claim{msg.ParticipantID, msg.ID, m[1]})
	}

	var found []capsule.Misalignment
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			a, b := claims[i], claims[j]
			if a.participantID == b.participantID || a.deadline == b.deadline {
				continue
			}
			found = append(found, capsule.Misalignment{
				Description: fmt.Sprintf("divergent timeline claims: %s says by %s, %s says by %s",
					displayName(c, a.participantID), a.deadline,
					displayName(c, b.participantID), b.deadline),
				ParticipantIDs: []uuid.UUID{a.participantID, b.participantID},
				MessageIDs:     []uuid.UUID{a.messageID, b.messageID},
			})
		}
	}
	return found
}

// MergeMisalignments folds AI-found candidates into the regex findings,
// de-duplicating by overlapping message-id sets: a candidate citing any
// message already cited by an existing finding is treated as the same issue.
func MergeMisalignments(existing, candidates []capsule.Misalignment) []capsule.Misalignment {
	cited := map[uuid.UUID]bool{}
	for _, m := range existing {
		for _, id := range m.MessageIDs {
			cited[id] = true
		}
	}

	merged := existing
	for _, cand := range candidates {
		overlap := false
		for _, id := range cand.MessageIDs {
			if cited[id] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for _, id := range cand.MessageIDs {
			cited[id] = true
		}
		merged = append(merged, cand)
	}
	return merged
}

func counterpartOf(c *capsule.ThreadCapsule, msg *capsule.Message) *capsule.Message {
	if msg.ResponseTo != nil {
		if target, ok := c.MessageByID(*msg.ResponseTo); ok && target.ParticipantID != msg.ParticipantID {
			return target
		}
	}
	var prev *capsule.Message
	for i := range c.Messages {
		if c.Messages[i].ID == msg.ID {
			break
		}
		if c.Messages[i].ParticipantID != msg.ParticipantID {
			prev = &c.Messages[i]
		}
	}
	return prev
}

func displayName(c *capsule.ThreadCapsule, pid uuid.UUID) string {
	if p, ok := c.ParticipantByID(pid); ok {
		return p.DisplayName
	}
	return "Unknown"
}
