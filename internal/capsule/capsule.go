package capsule

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion stamps capsules so downstream consumers can detect shape changes.
const SchemaVersion = "1"

// SourceType indicates where the raw conversation text came from.
type SourceType string

const (
	SourceEmail SourceType = "email"
	SourceChat  SourceType = "chat"
	SourceImage SourceType = "image"
	SourceAudio SourceType = "audio"
)

// Role is the inferred function of a participant in the conversation.
type Role string

const (
	RoleManager  Role = "manager"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
	RoleUnknown  Role = "unknown"
)

// Polarity is a coarse sentiment direction.
type Polarity string

const (
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
	PolarityPositive Polarity = "positive"
)

// Severity grades a tension point or risk flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// RiskLevel buckets the aggregate health score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// EdgeType labels a graph edge between two messages.
type EdgeType string

// EdgeResponse links a message to the message it replies to.
const EdgeResponse EdgeType = "response"

// Participant is a unique sender detected during parsing. Immutable once created.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
}

// Sentiment is a polarity plus an intensity in [0,1]. The shape is identical
// whether it came from keyword scoring or an AI completion.
type Sentiment struct {
	Polarity  Polarity `json:"polarity"`
	Intensity float64  `json:"intensity"`
}

// LinguisticFeatures are derived synchronously at parse time.
type LinguisticFeatures struct {
	ContainsQuestion bool     `json:"contains_question"`
	Questions        []string `json:"questions,omitempty"`
	UrgencyMarkers   []string `json:"urgency_markers,omitempty"`
	SentimentLabel   Polarity `json:"sentiment_label"`
}

// Message is a single turn in the conversation. ResponseTo is a weak reference
// to another message's ID, nil when no reply link was detected or inferred.
type Message struct {
	ID            uuid.UUID          `json:"id"`
	ParticipantID uuid.UUID          `json:"participant_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Content       string             `json:"content"`
	ResponseTo    *uuid.UUID         `json:"response_to,omitempty"`
	Features      LinguisticFeatures `json:"features"`
	Sentiment     *Sentiment         `json:"sentiment,omitempty"`
}

// Edge is a typed link between two message nodes.
type Edge struct {
	From uuid.UUID `json:"from"`
	To   uuid.UUID `json:"to"`
	Type EdgeType  `json:"type"`
}

// ConversationGraph records who responded to whom.
type ConversationGraph struct {
	Nodes []uuid.UUID `json:"nodes"`
	Edges []Edge      `json:"edges"`
}

// UnansweredQuestion is a question with no later cross-participant response.
type UnansweredQuestion struct {
	Question       string    `json:"question"`
	ParticipantID  uuid.UUID `json:"participant_id"`
	DaysUnanswered float64   `json:"days_unanswered"`
	MessageID      uuid.UUID `json:"message_id"`
}

// TensionPoint flags interpersonal friction in one or more messages.
type TensionPoint struct {
	Type        string      `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	MessageIDs  []uuid.UUID `json:"message_ids"`
}

// Misalignment flags divergent expectations between participants.
type Misalignment struct {
	Description    string      `json:"description"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	MessageIDs     []uuid.UUID `json:"message_ids"`
}

// SilentAssumption is an unstated belief surfaced by the AI escalation path.
type SilentAssumption struct {
	Assumption string      `json:"assumption"`
	MessageIDs []uuid.UUID `json:"message_ids,omitempty"`
}

// KeyMoment marks a message that changed the direction of the conversation.
type KeyMoment struct {
	Description string    `json:"description"`
	MessageID   uuid.UUID `json:"message_id"`
}

// ConversationHealth aggregates sub-scores into one risk bucket.
type ConversationHealth struct {
	Responsiveness  float64   `json:"responsiveness"`
	Clarity         float64   `json:"clarity"`
	Alignment       float64   `json:"alignment"`
	Overall         float64   `json:"overall"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Issues          []string  `json:"issues"`
	Strengths       []string  `json:"strengths"`
	Recommendations []string  `json:"recommendations"`
}

// ConversationAnalysis is populated incrementally by the detectors.
//
// The three findings lists are always non-nil and serialize as []: a disabled
// detector leaves an explicitly empty slice, so "disabled" and "ran, found
// nothing" are told apart only through the request's feature toggles, never
// through the output shape. SilentAssumptions and KeyMoments are AI-sourced
// and stay nil (JSON null) when the escalation did not run or failed, as does
// Health when its detector is disabled.
type ConversationAnalysis struct {
	UnansweredQuestions []UnansweredQuestion `json:"unanswered_questions"`
	TensionPoints       []TensionPoint       `json:"tension_points"`
	Misalignments       []Misalignment       `json:"misalignments"`
	SilentAssumptions   []SilentAssumption   `json:"silent_assumptions"`
	KeyMoments          []KeyMoment          `json:"key_moments"`
	Health              *ConversationHealth  `json:"health"`
}

// SuggestedAction is one prioritized follow-up. Priority 1 is most urgent.
type SuggestedAction struct {
	Priority int    `json:"priority"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

// ThreadCapsule is the root aggregate for one analyzed conversation. One
// capsule is built and discarded per request; it is never persisted.
type ThreadCapsule struct {
	ID               uuid.UUID            `json:"id"`
	Version          string               `json:"version"`
	CreatedAt        time.Time            `json:"created_at"`
	Source           SourceType           `json:"source"`
	Messages         []Message            `json:"messages"`
	Participants     []Participant        `json:"participants"`
	Graph            ConversationGraph    `json:"graph"`
	Analysis         ConversationAnalysis `json:"analysis"`
	SuggestedActions []SuggestedAction    `json:"suggested_actions,omitempty"`
}

// QuestionCoverage records whether a draft addresses one outstanding question.
type QuestionCoverage struct {
	Question     string `json:"question"`
	Addressed    bool   `json:"addressed"`
	HowAddressed string `json:"how_addressed,omitempty"`
}

// RiskFlag is a risk the draft analyzer raised about sending the draft as-is.
type RiskFlag struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// DraftAnalysis evaluates a candidate reply against the capsule.
type DraftAnalysis struct {
	Tone              string             `json:"tone"`
	Coverage          []QuestionCoverage `json:"coverage"`
	QuestionsIgnored  []string           `json:"questions_ignored"`
	NewQuestions      []string           `json:"new_questions"`
	RiskFlags         []RiskFlag         `json:"risk_flags"`
	CompletenessScore int                `json:"completeness_score"`
	Suggestions       []string           `json:"suggestions"`
	OverallAssessment string             `json:"overall_assessment"`
	ReadyToSend       bool               `json:"ready_to_send"`
}

// New creates an empty capsule for one request.
func New(source SourceType) *ThreadCapsule {
	return &ThreadCapsule{
		ID:        uuid.New(),
		Version:   SchemaVersion,
		CreatedAt: time.Now().UTC(),
		Source:    source,
	}
}

// MessageByID looks a message up by ID.
func (c *ThreadCapsule) MessageByID(id uuid.UUID) (*Message, bool) {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i], true
		}
	}
	return nil, false
}

// ParticipantByID looks a participant up by ID.
func (c *ThreadCapsule) ParticipantByID(id uuid.UUID) (*Participant, bool) {
	for i := range c.Participants {
		if c.Participants[i].ID == id {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

// ResponsesTo returns the messages carrying a response edge to the given message.
func (c *ThreadCapsule) ResponsesTo(id uuid.UUID) []*Message {
	var out []*Message
	for _, e := range c.Graph.Edges {
		if e.Type == EdgeResponse && e.To == id {
			if m, ok := c.MessageByID(e.From); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// FormatTranscript renders the capsule's messages as a Name: transcript string
// suitable for provider prompts.
func (c *ThreadCapsule) FormatTranscript() string {
	var sb strings.Builder
	for _, msg := range c.Messages {
		name := "Unknown"
		if p, ok := c.ParticipantByID(msg.ParticipantID); ok {
			name = p.DisplayName
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
