// Package parser turns raw conversation text into participants and ordered
// messages. Regex segmentation always runs; in hybrid mode a low-confidence
// result is escalated to the AI provider and the regex output is kept as the
// silent fallback.
package parser

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
	"github.com/MikeSquared-Agency/parley/internal/provider"
)

// Mode selects the segmentation strategy, decided once per request.
type Mode string

const (
	ModeRegexOnly Mode = "regex"
	ModeHybrid    Mode = "hybrid"
)

// unknownSpeaker is the display name of the synthetic participant that owns
// messages with no detectable sender.
const unknownSpeaker = "Unknown"

// Result is the parser output consumed by the capsule builder.
type Result struct {
	Participants []capsule.Participant
	Messages     []capsule.Message
	// Degraded is true when hybrid escalation was attempted and fell back to
	// the regex output.
	Degraded bool
}

type Parser struct {
	llm    provider.Provider // nil in regex-only deployments
	logger *slog.Logger
}

func New(llm provider.Provider, logger *slog.Logger) *Parser {
	return &Parser{llm: llm, logger: logger}
}

// Parse segments raw text into participants and messages. It never fails:
// empty input yields an empty result and hybrid escalation errors degrade to
// the regex output.
func (p *Parser) Parse(ctx context.Context, raw string, mode Mode) *Result {
	if strings.TrimSpace(raw) == "" {
		return &Result{}
	}

	segments := segmentText(raw)
	degraded := false

	if mode == ModeHybrid && p.llm != nil && lowConfidence(raw, segments) {
		aiSegments, err := p.aiSegment(ctx, raw)
		if err != nil || len(aiSegments) == 0 {
			p.logger.Warn("hybrid segmentation degraded to regex output",
				"segments", len(segments),
				"error", err,
			)
			degraded = true
		} else {
			segments = aiSegments
		}
	}

	result := assemble(segments)
	result.Degraded = degraded
	return result
}

// lowConfidence reports whether regex segmentation looks unreliable: too few
// named speaker boundaries for the apparent line count, or too much of the
// text landing on the synthetic Unknown participant.
func lowConfidence(raw string, segments []segment) bool {
	if len(segments) == 0 {
		return true
	}

	nonEmpty := 0
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
	}

	named := 0
	for _, s := range segments {
		if s.speaker != "" {
			named++
		}
	}

	min := nonEmpty / 8
	if min < 2 {
		min = 2
	}
	if named < min && nonEmpty > 2 {
		return true
	}

	unknownShare := float64(len(segments)-named) / float64(len(segments))
	return unknownShare > 0.4
}

// assemble converts segments into capsule participants and messages, creating
// one stable participant per distinct sender.
func assemble(segments []segment) *Result {
	result := &Result{}
	byName := make(map[string]uuid.UUID)

	participantID := func(name string) uuid.UUID {
		if name == "" {
			name = unknownSpeaker
		}
		key := strings.ToLower(name)
		if id, ok := byName[key]; ok {
			return id
		}
		id := uuid.New()
		byName[key] = id
		result.Participants = append(result.Participants, capsule.Participant{
			ID:          id,
			DisplayName: name,
			Role:        capsule.RoleUnknown,
		})
		return id
	}

	for _, seg := range segments {
		text := seg.text()
		if text == "" {
			continue
		}
		sentiment := scoreSentiment(text)
		result.Messages = append(result.Messages, capsule.Message{
			ID:            uuid.New(),
			ParticipantID: participantID(seg.speaker),
			Timestamp:     seg.timestamp,
			Content:       text,
			Features:      extractFeatures(text),
			Sentiment:     &sentiment,
		})
	}

	return result
}
