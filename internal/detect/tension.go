package detect

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
)

// Tension severity table (fixed — users compare scores over time):
//
//	two or more urgency markers            → high
//	negative polarity, intensity ≥ 0.7     → high
//	negative polarity, intensity ≥ 0.4     → moderate
//	exactly one urgency marker             → moderate
//	any other negative polarity            → low
//	no negative signal                     → no tension point
const (
	highIntensity     = 0.7
	moderateIntensity = 0.4
)

// TensionPoints classifies per-message friction from sentiment and urgency
// markers. Descriptions cite the detected markers so findings stay traceable
// in regex-only mode. Always returns a non-nil slice.
func TensionPoints(c *capsule.ThreadCapsule) []capsule.TensionPoint {
	found := []capsule.TensionPoint{}

	for i := range c.Messages {
		msg := &c.Messages[i]
		if tp, ok := classifyTension(msg); ok {
			found = append(found, tp)
		}
	}

	return found
}

func classifyTension(msg *capsule.Message) (capsule.TensionPoint, bool) {
	urgency := len(msg.Features.UrgencyMarkers)
	negative := msg.Sentiment != nil && msg.Sentiment.Polarity == capsule.PolarityNegative
	intensity := 0.0
	if msg.Sentiment != nil {
		intensity = msg.Sentiment.Intensity
	}

	var severity capsule.Severity
	switch {
	case urgency >= 2:
		severity = capsule.SeverityHigh
	case negative && intensity >= highIntensity:
		severity = capsule.SeverityHigh
	case negative && intensity >= moderateIntensity:
		severity = capsule.SeverityModerate
	case urgency == 1:
		severity = capsule.SeverityModerate
	case negative:
		severity = capsule.SeverityLow
	default:
		return capsule.TensionPoint{}, false
	}

	tensionType := "negative_sentiment"
	if urgency > 0 && (!negative || urgency >= 2) {
		tensionType = "urgency"
	}

	return capsule.TensionPoint{
		Type:        tensionType,
		Severity:    severity,
		Description: describeTension(msg, negative, intensity),
		MessageIDs:  []uuid.UUID{msg.ID},
	}, true
}

func describeTension(msg *capsule.Message, negative bool, intensity float64) string {
	var parts []string
	if negative {
		parts = append(parts, fmt.Sprintf("negative sentiment (intensity %.1f)", intensity))
	}
	if len(msg.Features.UrgencyMarkers) > 0 {
		parts = append(parts, "urgency markers: "+strings.Join(msg.Features.UrgencyMarkers, ", "))
	}
	return strings.Join(parts, "; ")
}
