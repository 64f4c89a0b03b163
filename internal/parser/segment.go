package parser

import (
	"regexp"
	"strings"
	"time"
)

// segment is one speaker turn produced by regex segmentation, before it
// becomes a capsule message.
type segment struct {
	speaker   string
	timestamp time.Time
	lines     []string
}

func (s *segment) text() string {
	return strings.TrimSpace(strings.Join(s.lines, "\n"))
}

var (
	// Email thread headers: "From: Alice Chen <alice@example.com>".
	emailFromRe = regexp.MustCompile(`^(?:>+\s*)?From:\s*(.+?)\s*$`)
	// "Sent:" / "Date:" header following a From block.
	emailDateRe = regexp.MustCompile(`^(?:>+\s*)?(?:Sent|Date):\s*(.+?)\s*$`)
	// Headers to swallow inside an email block without treating as content.
	emailSkipRe = regexp.MustCompile(`^(?:>+\s*)?(?:To|Cc|Bcc|Subject):`)

	// Chat export with a bracketed timestamp: "[2024-03-01 10:32] Alice: hey"
	// or "[10:32 AM] Alice: hey".
	bracketLineRe = regexp.MustCompile(`^\[([^\]]{1,40})\]\s*([A-Za-z][\w .'()-]{0,39}?):\s?(.*)$`)

	// Plain speaker prefix: "Alice: hey". The name is capped at a few words to
	// avoid swallowing prose containing a colon.
	speakerLineRe = regexp.MustCompile(`^([A-Za-z][\w .'()-]{0,39}?):\s?(.*)$`)
)

// timestamp layouts tried in order for email date headers and bracket tags.
var timeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Monday, January 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 3:04 PM",
	"1/2/06 3:04 PM",
	"3:04 PM",
	"15:04",
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// segmentText runs the regex-first segmentation: email From: blocks, bracketed
// chat lines, and plain Name: prefixes. Text before any detected speaker
// boundary becomes a speakerless segment so no content is dropped.
func segmentText(raw string) []segment {
	var segments []segment
	var current *segment

	flush := func() {
		if current != nil && current.text() != "" {
			segments = append(segments, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := emailFromRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			current = &segment{speaker: cleanEmailSender(m[1])}
			continue
		}

		if current != nil && current.speaker != "" && len(current.lines) == 0 {
			// Inside an email header block: pick up the date, skip the rest.
			if m := emailDateRe.FindStringSubmatch(trimmed); m != nil {
				current.timestamp = parseTimestamp(m[1])
				continue
			}
			if emailSkipRe.MatchString(trimmed) {
				continue
			}
		}

		if m := bracketLineRe.FindStringSubmatch(trimmed); m != nil && plausibleSpeaker(m[2]) {
			flush()
			current = &segment{
				speaker:   strings.TrimSpace(m[2]),
				timestamp: parseTimestamp(m[1]),
				lines:     []string{m[3]},
			}
			continue
		}

		if m := speakerLineRe.FindStringSubmatch(trimmed); m != nil && plausibleSpeaker(m[1]) {
			flush()
			current = &segment{
				speaker: strings.TrimSpace(m[1]),
				lines:   []string{m[2]},
			}
			continue
		}

		if trimmed == "" {
			if current != nil {
				current.lines = append(current.lines, "")
			}
			continue
		}

		if current == nil {
			// Content before any speaker boundary. Keep it rather than drop it.
			current = &segment{}
		}
		current.lines = append(current.lines, trimmed)
	}
	flush()

	return segments
}

// cleanEmailSender strips the address part from "Alice Chen <alice@example.com>".
func cleanEmailSender(s string) string {
	if idx := strings.IndexByte(s, '<'); idx > 0 {
		s = s[:idx]
	}
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if s == "" {
		return "Unknown"
	}
	return s
}

// plausibleSpeaker rejects colon prefixes that are not names: URLs, email
// headers, long phrases, anything over four words.
func plausibleSpeaker(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 40 {
		return false
	}
	lower := strings.ToLower(name)
	switch lower {
	case "http", "https", "ftp", "note", "warning", "error",
		"to", "cc", "bcc", "subject", "re", "fwd", "fw", "sent", "date":
		return false
	}
	if strings.Count(name, " ") > 3 {
		return false
	}
	return true
}
