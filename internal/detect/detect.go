// Package detect holds the independent conversation analyzers: unanswered
// questions, tension points, misalignments, health scoring, and the suggested
// action generator. Detectors share the read-only capsule and nothing else, so
// the engine can run them concurrently.
package detect

import (
	"strings"
	"time"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// daysSince returns fractional days between ts and now, or 0 when the message
// carried no usable timestamp (parsers leave those zero or date-less).
func daysSince(ts time.Time, now time.Time) float64 {
	if ts.IsZero() || ts.Year() < 1971 {
		return 0
	}
	days := now.Sub(ts).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"will": true, "would": true, "could": true, "should": true, "your": true,
	"about": true, "there": true, "their": true, "what": true, "when": true,
	"where": true, "which": true, "been": true, "they": true, "them": true,
	"please": true, "thanks": true, "just": true, "know": true, "send": true,
}

// significantWords returns the lowercased content words of text, four letters
// or longer, minus stopwords.
func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(w) >= 4 && !stopwords[w] {
			words[w] = true
		}
	}
	return words
}

// lexicalOverlap reports whether candidate shares enough content words with
// question to plausibly address it.
func lexicalOverlap(question, candidate string) bool {
	qWords := significantWords(question)
	if len(qWords) == 0 {
		return false
	}
	cWords := significantWords(candidate)

	shared := 0
	for w := range qWords {
		if cWords[w] {
			shared++
		}
	}
	if len(qWords) <= 2 {
		return shared >= 1
	}
	return shared >= 2
}
