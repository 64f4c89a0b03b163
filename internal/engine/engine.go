// Package engine orchestrates one analysis request: parse, build, detect,
// merge, optional draft evaluation. The capsule lives for the request and is
// discarded; nothing here writes conversation content anywhere durable.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/builder"
	"github.com/MikeSquared-Agency/parley/internal/capsule"
	"github.com/MikeSquared-Agency/parley/internal/detect"
	"github.com/MikeSquared-Agency/parley/internal/draft"
	"github.com/MikeSquared-Agency/parley/internal/parser"
	"github.com/MikeSquared-Agency/parley/internal/provider"
)

// ErrEmptyConversation is the only caller-visible request error. Everything
// else degrades to a best-effort result.
var ErrEmptyConversation = errors.New("empty conversation text")

// Mode selects the parsing strategy for the whole request.
type Mode string

const (
	ModeBasic    Mode = "basic"    // regex only, no provider calls
	ModeAdvanced Mode = "advanced" // hybrid
	ModeAuto     Mode = "auto"     // hybrid when a provider is configured
)

// Features toggles individual detectors per request. The zero value disables
// everything; use AllFeatures for the default.
type Features struct {
	Questions    bool `json:"questions"`
	Tension      bool `json:"tension"`
	Misalignment bool `json:"misalignment"`
	Health       bool `json:"health"`
	Actions      bool `json:"actions"`
}

func AllFeatures() Features {
	return Features{Questions: true, Tension: true, Misalignment: true, Health: true, Actions: true}
}

// Request is one analysis job. Feature toggles arrive as an explicit value,
// never ambient state, so concurrent requests cannot interfere.
type Request struct {
	Text     string
	Source   capsule.SourceType
	Mode     Mode
	Draft    string
	Features Features
}

// Result is the merged analysis. Degraded names the slots that fell back
// (parser, misalignment_escalation, draft) so callers can tell a degraded
// empty from a clean empty.
type Result struct {
	Capsule  *capsule.ThreadCapsule
	Draft    *capsule.DraftAnalysis
	Degraded []string
}

// UsageEvent carries aggregate, content-free counters for one completed
// analysis. It is the only thing that may leave the request's lifetime.
type UsageEvent struct {
	Source        capsule.SourceType
	Messages      int
	Participants  int
	Questions     int
	Tensions      int
	Misalignments int
	DraftAnalyzed bool
	Degraded      []string
	Duration      time.Duration
}

type Engine struct {
	llm        provider.Provider // nil in regex-only deployments
	parser     *parser.Parser
	drafts     *draft.Analyzer
	logger     *slog.Logger
	timeout    time.Duration
	onComplete func(UsageEvent)
	now        func() time.Time
}

type Option func(*Engine)

// WithUsageSink registers a callback receiving the content-free usage event
// after each analysis.
func WithUsageSink(fn func(UsageEvent)) Option {
	return func(e *Engine) { e.onComplete = fn }
}

// WithClock overrides the engine clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine. llm may be nil; every AI-assisted path then runs its
// regex/default fallback.
func New(llm provider.Provider, providerTimeout time.Duration, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		llm:     llm,
		parser:  parser.New(llm, logger),
		logger:  logger,
		timeout: providerTimeout,
		now:     time.Now,
	}
	if llm != nil {
		e.drafts = draft.New(llm, logger)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs the full pipeline for one request. Detector failures degrade
// their slot; only request validation fails the call.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyConversation
	}

	start := e.now()
	hybrid := req.Mode != ModeBasic && e.llm != nil
	result := &Result{}

	// Parse → GraphBuilt.
	parsed := e.parseStage(ctx, req.Text, hybrid)
	if parsed.Degraded {
		result.Degraded = append(result.Degraded, "parser")
	}
	c := builder.Build(req.Source, parsed)
	result.Capsule = c

	// Detecting. Detectors only read the capsule, so they run concurrently.
	now := e.now()
	var (
		wg            sync.WaitGroup
		questions     []capsule.UnansweredQuestion
		tensions      []capsule.TensionPoint
		misalignments []capsule.Misalignment
		augment       *detect.Augment
		augmentErr    error
	)

	if req.Features.Questions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			questions = detect.UnansweredQuestions(c, now)
		}()
	}
	if req.Features.Tension {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tensions = detect.TensionPoints(c)
		}()
	}
	if req.Features.Misalignment {
		wg.Add(1)
		go func() {
			defer wg.Done()
			misalignments = detect.Misalignments(c)
			if hybrid {
				callCtx, cancel := e.providerCtx(ctx)
				defer cancel()
				augment, augmentErr = detect.Escalate(callCtx, e.llm, c)
			}
		}()
	}
	wg.Wait()

	// Merged. The three findings lists are always explicitly empty, never
	// null: a disabled detector writes an empty slice, so "disabled" and
	// "ran, found nothing" differ only through the request's feature toggles.
	// The AI-only slots (assumptions, key moments) stay nil unless the
	// escalation actually produced them.
	if !req.Features.Questions {
		questions = []capsule.UnansweredQuestion{}
	}
	c.Analysis.UnansweredQuestions = questions
	if !req.Features.Tension {
		tensions = []capsule.TensionPoint{}
	}
	c.Analysis.TensionPoints = tensions
	if req.Features.Misalignment {
		if augmentErr != nil {
			e.logger.Warn("misalignment escalation degraded to regex findings", "error", augmentErr)
			result.Degraded = append(result.Degraded, "misalignment_escalation")
		} else if augment != nil {
			misalignments = detect.MergeMisalignments(misalignments, augment.Misalignments)
			c.Analysis.SilentAssumptions = orEmptyAssumptions(augment.Assumptions)
			c.Analysis.KeyMoments = orEmptyMoments(augment.KeyMoments)
		}
	} else {
		misalignments = []capsule.Misalignment{}
	}
	c.Analysis.Misalignments = misalignments
	if req.Features.Health {
		c.Analysis.Health = detect.Health(c, questions, tensions, misalignments, now)
	}
	if req.Features.Actions {
		c.SuggestedActions = detect.SuggestedActions(c, &c.Analysis)
	}

	// DraftEvaluated.
	if req.Draft != "" {
		result.Draft = e.draftStage(ctx, c, questions, req.Draft, result)
	}

	e.logger.Info("analysis complete",
		"capsule_id", c.ID,
		"source", c.Source,
		"messages", len(c.Messages),
		"participants", len(c.Participants),
		"degraded", result.Degraded,
		"duration_ms", e.now().Sub(start).Milliseconds(),
	)

	if e.onComplete != nil {
		e.onComplete(UsageEvent{
			Source:        c.Source,
			Messages:      len(c.Messages),
			Participants:  len(c.Participants),
			Questions:     len(questions),
			Tensions:      len(tensions),
			Misalignments: len(misalignments),
			DraftAnalyzed: result.Draft != nil,
			Degraded:      result.Degraded,
			Duration:      e.now().Sub(start),
		})
	}

	return result, nil
}

func (e *Engine) parseStage(ctx context.Context, text string, hybrid bool) *parser.Result {
	mode := parser.ModeRegexOnly
	if hybrid {
		mode = parser.ModeHybrid
	}
	callCtx, cancel := e.providerCtx(ctx)
	defer cancel()
	return e.parser.Parse(callCtx, text, mode)
}

// draftStage runs after detection merges because it consumes the outstanding
// question list. A missing provider or failed completion degrades the slot.
func (e *Engine) draftStage(ctx context.Context, c *capsule.ThreadCapsule, questions []capsule.UnansweredQuestion, draftText string, result *Result) *capsule.DraftAnalysis {
	if e.drafts == nil {
		e.logger.Warn("draft analysis requested without a configured provider")
		result.Degraded = append(result.Degraded, "draft")
		return nil
	}

	callCtx, cancel := e.providerCtx(ctx)
	defer cancel()

	analysis, err := e.drafts.Analyze(callCtx, c, questions, draftText)
	if err != nil {
		e.logger.Warn("draft analysis degraded", "error", err)
		result.Degraded = append(result.Degraded, "draft")
		return nil
	}
	return analysis
}

// providerCtx bounds a single provider call. The parent ctx still cancels
// in-flight calls when the caller aborts.
func (e *Engine) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func orEmptyAssumptions(s []capsule.SilentAssumption) []capsule.SilentAssumption {
	if s == nil {
		return []capsule.SilentAssumption{}
	}
	return s
}

func orEmptyMoments(s []capsule.KeyMoment) []capsule.KeyMoment {
	if s == nil {
		return []capsule.KeyMoment{}
	}
	return s
}
