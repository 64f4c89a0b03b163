// Package builder assembles parser output into a thread capsule: the response
// graph and inferred participant roles. Pure structural inference, no provider
// calls.
package builder

import (
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
	"github.com/MikeSquared-Agency/parley/internal/parser"
)

// Build creates a capsule from parser output and wires the conversation graph.
func Build(source capsule.SourceType, parsed *parser.Result) *capsule.ThreadCapsule {
	c := capsule.New(source)
	c.Messages = parsed.Messages
	c.Participants = parsed.Participants

	linkResponses(c)
	inferRoles(c)

	return c
}

// linkResponses builds the response graph. A message with an explicit quote of
// an earlier message links to that message; otherwise it links to the nearest
// preceding message from a different participant. Asynchronous threads can
// span days, so there is no time cutoff — a slow reply is still a reply, and
// its slowness is signal for the detectors.
func linkResponses(c *capsule.ThreadCapsule) {
	c.Graph.Nodes = make([]uuid.UUID, len(c.Messages))
	for i := range c.Messages {
		c.Graph.Nodes[i] = c.Messages[i].ID
	}

	for i := range c.Messages {
		msg := &c.Messages[i]

		target := quotedTarget(c.Messages[:i], msg.Content)
		if target == uuid.Nil {
			target = nearestOther(c.Messages[:i], msg.ParticipantID)
		}
		if target == uuid.Nil {
			continue
		}

		to := target
		msg.ResponseTo = &to
		c.Graph.Edges = append(c.Graph.Edges, capsule.Edge{
			From: msg.ID,
			To:   to,
			Type: capsule.EdgeResponse,
		})
	}
}

// quotedTarget finds an earlier message that the content explicitly quotes
// with ">" reply markers. The longest quoted line wins to avoid matching on
// short fragments.
func quotedTarget(earlier []capsule.Message, content string) uuid.UUID {
	var best string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, ">") {
			continue
		}
		quoted := strings.TrimSpace(strings.TrimLeft(trimmed, "> "))
		if len(quoted) > len(best) {
			best = quoted
		}
	}
	if len(best) < 12 {
		return uuid.Nil
	}

	for i := len(earlier) - 1; i >= 0; i-- {
		if strings.Contains(earlier[i].Content, best) {
			return earlier[i].ID
		}
	}
	return uuid.Nil
}

func nearestOther(earlier []capsule.Message, participantID uuid.UUID) uuid.UUID {
	for i := len(earlier) - 1; i >= 0; i-- {
		if earlier[i].ParticipantID != participantID {
			return earlier[i].ID
		}
	}
	return uuid.Nil
}

// Role keyword tables. Matches in a participant's display name count double
// since titles are stronger signal than message content.
var roleKeywords = map[capsule.Role][]string{
	capsule.RoleManager: {
		"manager", "approve", "approved", "sign off", "sign-off", "budget",
		"my team", "head of", "director", "lead",
	},
	capsule.RoleVendor: {
		"vendor", "invoice", "quotation", "pricing", "proposal",
		"our team will", "deliverable", "statement of work", "contract",
	},
	capsule.RoleCustomer: {
		"customer", "my order", "purchase", "refund", "my account",
		"subscription", "my invoice",
	},
}

// inferRoles assigns a role per participant from title and content keyword
// matches; unresolved participants stay Unknown.
func inferRoles(c *capsule.ThreadCapsule) {
	for i := range c.Participants {
		p := &c.Participants[i]

		var combined strings.Builder
		for _, msg := range c.Messages {
			if msg.ParticipantID == p.ID {
				combined.WriteString(strings.ToLower(msg.Content))
				combined.WriteString("\n")
			}
		}
		content := combined.String()
		name := strings.ToLower(p.DisplayName)

		bestRole := capsule.RoleUnknown
		bestScore := 0
		for _, role := range []capsule.Role{capsule.RoleManager, capsule.RoleVendor, capsule.RoleCustomer} {
			score := 0
			for _, kw := range roleKeywords[role] {
				if strings.Contains(name, kw) {
					score += 2
				}
				score += strings.Count(content, kw)
			}
			if score > bestScore {
				bestScore = score
				bestRole = role
			}
		}
		p.Role = bestRole
	}
}
