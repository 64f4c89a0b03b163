package parser

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/parley/internal/sanitize"
)

const segmentSystemPrompt = `You segment raw multi-party conversation text (email threads, chat exports, transcripts) into individual messages.

Rules:
- Preserve every piece of content. Never summarize or drop text.
- One entry per speaker turn, in original order.
- Use the speaker's name as written. If a turn has no identifiable speaker, use "Unknown".
- Include a timestamp only when one is explicitly present, formatted RFC3339 when the date is known, otherwise leave it empty.`

const segmentUserPrompt = `Segment this conversation into messages.

Text:
---
%s
---

Respond with valid JSON matching this schema:
{
  "messages": [
    {
      "speaker": "string",
      "timestamp": "RFC3339 string or empty",
      "text": "string"
    }
  ]
}`

// aiSegment asks the provider to segment the raw text and converts the
// sanitized JSON back into parser segments.
func (p *Parser) aiSegment(ctx context.Context, raw string) ([]segment, error) {
	completion, err := p.llm.CompleteStructured(ctx, segmentSystemPrompt, fmt.Sprintf(segmentUserPrompt, raw))
	if err != nil {
		return nil, fmt.Errorf("segmentation completion: %w", err)
	}

	fields := sanitize.Parse(completion)
	entries := fields.ObjSlice("messages")
	if len(entries) == 0 {
		return nil, fmt.Errorf("segmentation completion contained no messages")
	}

	segments := make([]segment, 0, len(entries))
	for _, entry := range entries {
		text := entry.Str("text", "")
		if text == "" {
			continue
		}
		speaker := entry.Str("speaker", "")
		if speaker == unknownSpeaker {
			speaker = ""
		}
		segments = append(segments, segment{
			speaker:   speaker,
			timestamp: parseTimestamp(entry.Str("timestamp", "")),
			lines:     []string{text},
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("segmentation completion contained only empty messages")
	}

	return segments, nil
}
