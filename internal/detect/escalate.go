package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
	"github.com/MikeSquared-Agency/parley/internal/provider"
	"github.com/MikeSquared-Agency/parley/internal/sanitize"
)

const escalateSystemPrompt = `You analyze multi-party work conversations for expectation mismatches.

You identify three kinds of findings:
- misalignments: participants holding contradictory beliefs about scope, ownership, or timing
- silent_assumptions: unstated beliefs a participant is clearly operating on
- key_moments: messages that changed the direction or temperature of the conversation

Cite findings by message index. Only cite indexes that appear in the transcript. Skip generic observations.`

const escalateUserPrompt = `Analyze this conversation. Messages are numbered.

%s

Respond with valid JSON matching this schema:
{
  "misalignments": [
    {"description": "string", "message_indexes": [0]}
  ],
  "silent_assumptions": [
    {"assumption": "string", "message_indexes": [0]}
  ],
  "key_moments": [
    {"description": "string", "message_index": 0}
  ]
}`

// Augment carries the AI-sourced findings merged into the misalignment slot.
type Augment struct {
	Misalignments []capsule.Misalignment
	Assumptions   []capsule.SilentAssumption
	KeyMoments    []capsule.KeyMoment
}

// Escalate sends ambiguous-case analysis to the provider and maps the
// sanitized response back onto capsule message ids. Indexes outside the
// transcript are dropped — a detector must never cite a message the capsule
// does not hold.
func Escalate(ctx context.Context, llm provider.Provider, c *capsule.ThreadCapsule) (*Augment, error) {
	completion, err := llm.CompleteStructured(ctx, escalateSystemPrompt, fmt.Sprintf(escalateUserPrompt, numberedTranscript(c)))
	if err != nil {
		return nil, fmt.Errorf("misalignment escalation: %w", err)
	}

	fields := sanitize.Parse(completion)
	aug := &Augment{}

	for _, entry := range fields.ObjSlice("misalignments") {
		desc := entry.Str("description", "")
		ids := indexesToIDs(c, entry, "message_indexes")
		if desc == "" || len(ids) == 0 {
			continue
		}
		aug.Misalignments = append(aug.Misalignments, capsule.Misalignment{
			Description:    desc,
			ParticipantIDs: participantsOf(c, ids),
			MessageIDs:     ids,
		})
	}

	for _, entry := range fields.ObjSlice("silent_assumptions") {
		assumption := entry.Str("assumption", "")
		if assumption == "" {
			continue
		}
		aug.Assumptions = append(aug.Assumptions, capsule.SilentAssumption{
			Assumption: assumption,
			MessageIDs: indexesToIDs(c, entry, "message_indexes"),
		})
	}

	for _, entry := range fields.ObjSlice("key_moments") {
		desc := entry.Str("description", "")
		idx := entry.Int("message_index", -1)
		if desc == "" || idx < 0 || idx >= len(c.Messages) {
			continue
		}
		aug.KeyMoments = append(aug.KeyMoments, capsule.KeyMoment{
			Description: desc,
			MessageID:   c.Messages[idx].ID,
		})
	}

	return aug, nil
}

func numberedTranscript(c *capsule.ThreadCapsule) string {
	var sb strings.Builder
	for i, msg := range c.Messages {
		fmt.Fprintf(&sb, "[%d] %s: %s\n", i, displayName(c, msg.ParticipantID), msg.Content)
	}
	return sb.String()
}

func indexesToIDs(c *capsule.ThreadCapsule, entry sanitize.Fields, key string) []uuid.UUID {
	var out []uuid.UUID
	for _, idx := range entry.IntSlice(key) {
		if idx >= 0 && idx < len(c.Messages) {
			out = append(out, c.Messages[idx].ID)
		}
	}
	return out
}

func participantsOf(c *capsule.ThreadCapsule, msgIDs []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, id := range msgIDs {
		if m, ok := c.MessageByID(id); ok && !seen[m.ParticipantID] {
			seen[m.ParticipantID] = true
			out = append(out, m.ParticipantID)
		}
	}
	return out
}
