package parser

import (
	"strings"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
)

// Keyword tables for the regex-only feature pass. Deliberately small and
// high-precision; the hybrid path covers the long tail.
var (
	interrogativeLeads = []string{
		"can", "could", "would", "will", "what", "when", "where", "who",
		"why", "how", "do", "does", "did", "is", "are", "should", "shall",
		"any update", "any news",
	}

	urgencyKeywords = []string{
		"urgent", "urgently", "asap", "immediately", "critical", "deadline",
		"eod", "end of day", "overdue", "right away", "time sensitive",
		"time-sensitive", "as soon as possible", "escalate",
	}

	negativeKeywords = []string{
		"frustrated", "frustrating", "disappointed", "disappointing",
		"unacceptable", "concerned", "concerning", "worried", "delay",
		"delayed", "problem", "issue", "blocked", "blocker", "failed",
		"failing", "wrong", "missed", "confused", "confusing", "angry",
		"upset", "still waiting", "no response", "unhappy",
	}

	positiveKeywords = []string{
		"thanks", "thank you", "great", "appreciate", "perfect", "awesome",
		"excellent", "glad", "happy", "wonderful", "well done", "good work",
		"sounds good", "looks good",
	}
)

// extractFeatures derives per-message linguistic features synchronously at
// parse time.
func extractFeatures(text string) capsule.LinguisticFeatures {
	questions := extractQuestions(text)
	markers := matchKeywords(text, urgencyKeywords)
	sentiment := scoreSentiment(text)

	return capsule.LinguisticFeatures{
		ContainsQuestion: len(questions) > 0,
		Questions:        questions,
		UrgencyMarkers:   markers,
		SentimentLabel:   sentiment.Polarity,
	}
}

// extractQuestions returns the question sentences in text: anything ending in
// a question mark, or a sentence opening with an interrogative lead word.
func extractQuestions(text string) []string {
	var questions []string
	for _, sent := range splitSentences(text) {
		trimmed := strings.TrimSpace(sent)
		if trimmed == "" {
			continue
		}
		if strings.HasSuffix(trimmed, "?") {
			questions = append(questions, trimmed)
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, lead := range interrogativeLeads {
			if strings.HasPrefix(lower, lead+" ") {
				// Interrogative lead without a question mark only counts when
				// the sentence reads as a request, not a statement.
				if strings.Contains(lower, " you ") || strings.HasPrefix(lower, "can ") || strings.HasPrefix(lower, "could ") {
					questions = append(questions, trimmed)
				}
				break
			}
		}
	}
	return questions
}

// splitSentences is a naive terminator split. Good enough for feature
// extraction; it does not need to survive abbreviations.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '?' || r == '!' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// matchKeywords returns each keyword found in text, in table order, once each.
func matchKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// scoreSentiment does naive keyword polarity scoring. Intensity scales with
// match count and saturates at 1.0.
func scoreSentiment(text string) capsule.Sentiment {
	neg := len(matchKeywords(text, negativeKeywords))
	pos := len(matchKeywords(text, positiveKeywords))

	switch {
	case neg > pos:
		return capsule.Sentiment{Polarity: capsule.PolarityNegative, Intensity: intensityFor(neg)}
	case pos > neg:
		return capsule.Sentiment{Polarity: capsule.PolarityPositive, Intensity: intensityFor(pos)}
	default:
		return capsule.Sentiment{Polarity: capsule.PolarityNeutral, Intensity: 0}
	}
}

// intensityFor maps a keyword hit count onto [0,1]: one hit is mild, four or
// more saturate.
func intensityFor(hits int) float64 {
	v := 0.4 + 0.2*float64(hits-1)
	if v > 1.0 {
		return 1.0
	}
	return v
}
