// Package draft evaluates a candidate reply against the built capsule. This
// is the one detector with no regex-only equivalent — tone and coverage need
// semantic judgment — so it requires the provider and normalizes whatever
// comes back into the canonical DraftAnalysis shape with conservative
// defaults.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
	"github.com/MikeSquared-Agency/parley/internal/provider"
	"github.com/MikeSquared-Agency/parley/internal/sanitize"
)

type Analyzer struct {
	llm    provider.Provider
	logger *slog.Logger
}

func New(llm provider.Provider, logger *slog.Logger) *Analyzer {
	return &Analyzer{llm: llm, logger: logger}
}

// Analyze evaluates draftText against the capsule and its outstanding
// questions. Provider failure is the only error; a malformed completion still
// yields a usable analysis built from defaults.
func (a *Analyzer) Analyze(ctx context.Context, c *capsule.ThreadCapsule, outstanding []capsule.UnansweredQuestion, draftText string) (*capsule.DraftAnalysis, error) {
	prompt := fmt.Sprintf(userPrompt, c.FormatTranscript(), formatQuestions(outstanding), draftText)

	a.logger.Info("analyzing draft",
		"capsule_id", c.ID,
		"outstanding_questions", len(outstanding),
		"draft_len", len(draftText),
	)

	raw, err := a.llm.CompleteStructured(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("draft completion: %w", err)
	}

	analysis := normalize(sanitize.Parse(raw))
	applySendGate(analysis)

	a.logger.Info("draft analyzed",
		"capsule_id", c.ID,
		"tone", analysis.Tone,
		"completeness", analysis.CompletenessScore,
		"ready_to_send", analysis.ReadyToSend,
	)

	return analysis, nil
}

// normalize maps the sanitized completion onto the canonical shape. Every
// missing or mistyped field gets a conservative default rather than failing
// the analysis.
func normalize(fields sanitize.Fields) *capsule.DraftAnalysis {
	analysis := &capsule.DraftAnalysis{
		Tone:              fields.Str("tone", "neutral"),
		Coverage:          []capsule.QuestionCoverage{},
		QuestionsIgnored:  orEmpty(fields.StrSlice("questions_ignored")),
		NewQuestions:      orEmpty(fields.StrSlice("new_questions")),
		RiskFlags:         []capsule.RiskFlag{},
		CompletenessScore: clampScore(fields.Int("completeness_score", 0)),
		Suggestions:       orEmpty(fields.StrSlice("suggestions")),
		OverallAssessment: fields.Str("overall_assessment", ""),
		ReadyToSend:       fields.Bool("ready_to_send", false),
	}

	for _, entry := range fields.ObjSlice("coverage") {
		q := entry.Str("question", "")
		if q == "" {
			continue
		}
		analysis.Coverage = append(analysis.Coverage, capsule.QuestionCoverage{
			Question:     q,
			Addressed:    entry.Bool("addressed", false),
			HowAddressed: entry.Str("how_addressed", ""),
		})
	}

	for _, entry := range fields.ObjSlice("risk_flags") {
		desc := entry.Str("description", "")
		if desc == "" {
			continue
		}
		analysis.RiskFlags = append(analysis.RiskFlags, capsule.RiskFlag{
			Severity:    parseSeverity(entry.Str("severity", "low")),
			Description: desc,
		})
	}

	return analysis
}

// applySendGate enforces the send gate regardless of what the completion
// claimed: a draft ignoring questions or carrying a high-severity risk is
// never ready.
func applySendGate(a *capsule.DraftAnalysis) {
	if len(a.QuestionsIgnored) > 0 {
		a.ReadyToSend = false
		return
	}
	for _, cov := range a.Coverage {
		if !cov.Addressed {
			a.ReadyToSend = false
			return
		}
	}
	for _, rf := range a.RiskFlags {
		if rf.Severity == capsule.SeverityHigh {
			a.ReadyToSend = false
			return
		}
	}
}

func formatQuestions(outstanding []capsule.UnansweredQuestion) string {
	if len(outstanding) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, q := range outstanding {
		fmt.Fprintf(&sb, "- %s\n", q.Question)
	}
	return sb.String()
}

func parseSeverity(s string) capsule.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical":
		return capsule.SeverityHigh
	case "moderate", "medium":
		return capsule.SeverityModerate
	default:
		return capsule.SeverityLow
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
