package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
	"github.com/MikeSquared-Agency/parley/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const openQuestionText = `Alice: Here's the updated timeline.
Bob: Thanks. Can you send the proposal by Friday?`

func analyzeReq(text string) Request {
	return Request{
		Text:     text,
		Source:   capsule.SourceChat,
		Mode:     ModeAuto,
		Features: AllFeatures(),
	}
}

func assertNoDanglingIDs(t *testing.T, c *capsule.ThreadCapsule) {
	t.Helper()
	check := func(kind string, ids []uuid.UUID) {
		for _, id := range ids {
			if _, ok := c.MessageByID(id); !ok {
				t.Errorf("%s cites message %s not present in capsule", kind, id)
			}
		}
	}
	for _, q := range c.Analysis.UnansweredQuestions {
		check("unanswered question", []uuid.UUID{q.MessageID})
	}
	for _, tp := range c.Analysis.TensionPoints {
		check("tension point", tp.MessageIDs)
	}
	for _, m := range c.Analysis.Misalignments {
		check("misalignment", m.MessageIDs)
	}
	for _, a := range c.Analysis.SilentAssumptions {
		check("silent assumption", a.MessageIDs)
	}
	for _, km := range c.Analysis.KeyMoments {
		check("key moment", []uuid.UUID{km.MessageID})
	}
	for _, e := range c.Graph.Edges {
		check("graph edge", []uuid.UUID{e.From, e.To})
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	e := New(nil, time.Second, discardLogger())
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := e.Analyze(context.Background(), analyzeReq(text)); !errors.Is(err, ErrEmptyConversation) {
			t.Errorf("Analyze(%q) error = %v, want ErrEmptyConversation", text, err)
		}
	}
}

func TestAnalyze_RegexOnlyFullPipeline(t *testing.T) {
	e := New(nil, time.Second, discardLogger())

	result, err := e.Analyze(context.Background(), analyzeReq(openQuestionText))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	c := result.Capsule
	if len(c.Messages) != 2 || len(c.Participants) != 2 {
		t.Fatalf("unexpected capsule shape: %d messages, %d participants", len(c.Messages), len(c.Participants))
	}

	// Every enabled detector wrote a non-nil slot.
	if c.Analysis.UnansweredQuestions == nil || c.Analysis.TensionPoints == nil || c.Analysis.Misalignments == nil {
		t.Fatal("expected non-nil slots for enabled detectors")
	}
	if len(c.Analysis.UnansweredQuestions) != 1 {
		t.Errorf("expected Bob's question reported, got %+v", c.Analysis.UnansweredQuestions)
	}
	if c.Analysis.Health == nil {
		t.Fatal("expected health computed")
	}
	if c.SuggestedActions == nil {
		t.Fatal("expected suggested actions slot populated")
	}

	// No provider configured and nothing requested it: nothing degraded.
	if len(result.Degraded) != 0 {
		t.Errorf("expected no degradation, got %v", result.Degraded)
	}
	assertNoDanglingIDs(t, c)
}

func TestAnalyze_DisabledDetectorWritesEmptySlot(t *testing.T) {
	e := New(nil, time.Second, discardLogger())

	req := analyzeReq(openQuestionText)
	req.Features = Features{Tension: true}

	result, err := e.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	c := result.Capsule
	if c.Analysis.TensionPoints == nil {
		t.Error("enabled detector must write a non-nil slice even when empty")
	}
	// Disabled detectors leave explicitly empty slots, shaped identically to
	// "ran, found nothing". The text holds an open question, so a non-empty
	// slice here would mean the detector ran despite the toggle.
	if c.Analysis.UnansweredQuestions == nil || len(c.Analysis.UnansweredQuestions) != 0 {
		t.Errorf("disabled detector slot must be empty, not nil: %v", c.Analysis.UnansweredQuestions)
	}
	if c.Analysis.Misalignments == nil || len(c.Analysis.Misalignments) != 0 {
		t.Errorf("disabled detector slot must be empty, not nil: %v", c.Analysis.Misalignments)
	}
	// Object and AI-only slots are the ones that read as "not computed".
	if c.Analysis.Health != nil {
		t.Error("disabled health must stay nil")
	}
	if c.Analysis.SilentAssumptions != nil || c.Analysis.KeyMoments != nil {
		t.Error("AI-only slots must stay nil when escalation never ran")
	}

	raw, err := json.Marshal(c.Analysis)
	if err != nil {
		t.Fatalf("marshal analysis: %v", err)
	}
	var onWire struct {
		UnansweredQuestions json.RawMessage `json:"unanswered_questions"`
	}
	if err := json.Unmarshal(raw, &onWire); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if string(onWire.UnansweredQuestions) != "[]" {
		t.Errorf("disabled slot serialized as %s, want []", onWire.UnansweredQuestions)
	}
}

func TestAnalyze_BasicModeMakesNoProviderCalls(t *testing.T) {
	llm := provider.NewFake()
	e := New(llm, time.Second, discardLogger())

	req := analyzeReq(openQuestionText)
	req.Mode = ModeBasic

	if _, err := e.Analyze(context.Background(), req); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if llm.CallCount() != 0 {
		t.Errorf("basic mode made %d provider calls", llm.CallCount())
	}
}

func TestAnalyze_EscalationMergesAIFindings(t *testing.T) {
	llm := provider.NewFake(provider.FakeResponse{Text: `{
		"misalignments": [
			{"description": "timeline expectations diverge", "message_indexes": [0, 1]}
		],
		"silent_assumptions": [
			{"assumption": "Bob assumes the proposal is nearly done", "message_indexes": [1]}
		],
		"key_moments": [
			{"description": "deadline introduced", "message_index": 1}
		]
	}`})
	e := New(llm, time.Second, discardLogger())

	result, err := e.Analyze(context.Background(), analyzeReq(openQuestionText))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	c := result.Capsule
	found := false
	for _, m := range c.Analysis.Misalignments {
		if m.Description == "timeline expectations diverge" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected AI misalignment merged, got %+v", c.Analysis.Misalignments)
	}
	if len(c.Analysis.SilentAssumptions) != 1 || len(c.Analysis.KeyMoments) != 1 {
		t.Errorf("expected assumptions and key moments populated, got %+v / %+v",
			c.Analysis.SilentAssumptions, c.Analysis.KeyMoments)
	}
	if len(result.Degraded) != 0 {
		t.Errorf("expected clean run, got degraded %v", result.Degraded)
	}
	assertNoDanglingIDs(t, c)
}

func TestAnalyze_EscalationFailureDegradesOnlyThatSlot(t *testing.T) {
	llm := provider.NewFake(provider.FakeResponse{Err: errors.New("overloaded")})
	e := New(llm, time.Second, discardLogger())

	result, err := e.Analyze(context.Background(), analyzeReq(openQuestionText))
	if err != nil {
		t.Fatalf("expected degraded result, not error: %v", err)
	}

	if len(result.Degraded) != 1 || result.Degraded[0] != "misalignment_escalation" {
		t.Fatalf("expected only misalignment_escalation degraded, got %v", result.Degraded)
	}

	c := result.Capsule
	// The regex findings survive; the AI-only slots stay nil.
	if c.Analysis.Misalignments == nil {
		t.Error("expected regex misalignments kept on escalation failure")
	}
	if c.Analysis.SilentAssumptions != nil || c.Analysis.KeyMoments != nil {
		t.Error("expected AI-only slots nil after failed escalation")
	}
	if c.Analysis.UnansweredQuestions == nil || c.Analysis.Health == nil {
		t.Error("expected the other detectors unaffected")
	}
}

func TestAnalyze_DraftWithoutProviderDegrades(t *testing.T) {
	e := New(nil, time.Second, discardLogger())

	req := analyzeReq(openQuestionText)
	req.Draft = "Will do, sending it Thursday."

	result, err := e.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Draft != nil {
		t.Error("expected nil draft analysis without a provider")
	}
	wantDegraded := false
	for _, d := range result.Degraded {
		if d == "draft" {
			wantDegraded = true
		}
	}
	if !wantDegraded {
		t.Errorf("expected draft slot degraded, got %v", result.Degraded)
	}
}

func TestAnalyze_DraftSeesOutstandingQuestions(t *testing.T) {
	// Call 1 is the misalignment escalation, call 2 the draft evaluation.
	llm := provider.NewFake(
		provider.FakeResponse{Text: "{}"},
		provider.FakeResponse{Text: `{"tone": "friendly", "ready_to_send": true, "completeness_score": 7}`},
	)
	e := New(llm, time.Second, discardLogger())

	req := analyzeReq(openQuestionText)
	req.Draft = "Will do, sending it Thursday."

	result, err := e.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Draft == nil {
		t.Fatal("expected draft analysis")
	}
	if result.Draft.Tone != "friendly" {
		t.Errorf("tone = %q", result.Draft.Tone)
	}

	if llm.CallCount() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", llm.CallCount())
	}
	// The draft prompt is built after detection merges, so it carries the
	// outstanding question.
	if !strings.Contains(llm.Calls[1], "Can you send the proposal by Friday?") {
		t.Errorf("draft prompt missing outstanding question:\n%s", llm.Calls[1])
	}
}

func TestAnalyze_DraftFailureDegradesOnlyDraft(t *testing.T) {
	llm := provider.NewFake(
		provider.FakeResponse{Text: "{}"},
		provider.FakeResponse{Err: errors.New("timeout")},
	)
	e := New(llm, time.Second, discardLogger())

	req := analyzeReq(openQuestionText)
	req.Draft = "Will do."

	result, err := e.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("expected degraded result, not error: %v", err)
	}
	if result.Draft != nil {
		t.Error("expected nil draft analysis after provider failure")
	}
	if len(result.Degraded) != 1 || result.Degraded[0] != "draft" {
		t.Errorf("expected only draft degraded, got %v", result.Degraded)
	}
	if result.Capsule.Analysis.Health == nil {
		t.Error("expected the rest of the analysis intact")
	}
}

func TestAnalyze_UsageSinkGetsCountersOnly(t *testing.T) {
	var got UsageEvent
	called := false

	e := New(nil, time.Second, discardLogger(), WithUsageSink(func(evt UsageEvent) {
		got = evt
		called = true
	}))

	if _, err := e.Analyze(context.Background(), analyzeReq(openQuestionText)); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !called {
		t.Fatal("expected usage sink invoked")
	}
	if got.Source != capsule.SourceChat {
		t.Errorf("source = %s", got.Source)
	}
	if got.Messages != 2 || got.Participants != 2 {
		t.Errorf("counts = %d messages / %d participants", got.Messages, got.Participants)
	}
	if got.Questions != 1 {
		t.Errorf("questions = %d", got.Questions)
	}
	if got.DraftAnalyzed {
		t.Error("no draft was analyzed")
	}
	if got.Duration < 0 {
		t.Errorf("negative duration %v", got.Duration)
	}
}
