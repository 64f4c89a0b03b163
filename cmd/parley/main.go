package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/api"
	"github.com/MikeSquared-Agency/parley/internal/config"
	"github.com/MikeSquared-Agency/parley/internal/engine"
	"github.com/MikeSquared-Agency/parley/internal/hermes"
	"github.com/MikeSquared-Agency/parley/internal/provider"
	"github.com/MikeSquared-Agency/parley/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("parley starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM provider (optional — parley degrades to regex-only without one)
	llm := buildProvider(cfg)

	// Usage counter store (optional — counters hold aggregate counts only,
	// never conversation content)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("usage store connected")
	} else {
		slog.Warn("DATABASE_URL not set — usage counters disabled")
	}

	// NATS (optional — usage events only)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		var err error
		hermesClient, err = hermes.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — usage events disabled")
	}

	// Engine — the analysis pipeline
	eng := engine.New(
		llm,
		time.Duration(cfg.LLMTimeoutSecs)*time.Second,
		slog.Default(),
		engine.WithUsageSink(usageSink(db, hermesClient)),
	)

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, eng, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("parley ready", "port", cfg.Port, "provider", providerName(llm, cfg))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("parley stopped")
}

func buildProvider(cfg config.Config) provider.Provider {
	var apiKey string
	switch cfg.Provider {
	case "openai":
		apiKey = cfg.OpenAIAPIKey
	default:
		apiKey = cfg.AnthropicAPIKey
	}
	if apiKey == "" {
		slog.Warn("no provider API key configured — running regex-only")
		return nil
	}

	model := cfg.AnthropicModel
	if cfg.Provider == "openai" {
		model = cfg.OpenAIModel
	}

	llm, err := provider.New(cfg.Provider, apiKey, model)
	if err != nil {
		slog.Error("failed to build provider", "error", err)
		os.Exit(1)
	}
	slog.Info("provider ready", "vendor", cfg.Provider, "model", model)
	return llm
}

// usageSink forwards the per-analysis aggregate counters to the store and the
// event bus. Both are best-effort; a failed counter write never affects the
// analysis result.
func usageSink(db *store.Store, bus *hermes.Client) func(engine.UsageEvent) {
	return func(evt engine.UsageEvent) {
		if db != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.RecordAnalysis(ctx, string(evt.Source), evt.Messages, evt.Questions, evt.Tensions, evt.Misalignments, evt.DraftAnalyzed, len(evt.Degraded) > 0); err != nil {
				slog.Warn("failed to record usage", "error", err)
			}
		}
		if bus != nil {
			if err := bus.Publish(hermes.SubjectAnalysisCompleted, hermes.AnalysisCompleted{
				Source:        string(evt.Source),
				Messages:      evt.Messages,
				Participants:  evt.Participants,
				Questions:     evt.Questions,
				Tensions:      evt.Tensions,
				Misalignments: evt.Misalignments,
				DraftAnalyzed: evt.DraftAnalyzed,
				Degraded:      evt.Degraded,
				DurationMS:    evt.Duration.Milliseconds(),
			}); err != nil {
				slog.Warn("failed to publish usage event", "error", err)
			}
		}
	}
}

func providerName(llm provider.Provider, cfg config.Config) string {
	if llm == nil {
		return "none"
	}
	return cfg.Provider
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
