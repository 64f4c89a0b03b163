package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/parley/internal/capsule"
	"github.com/MikeSquared-Agency/parley/internal/engine"
)

type Server struct {
	router *chi.Mux
	engine *engine.Engine
	logger *slog.Logger
	port   int
}

func NewServer(port int, apiToken string, eng *engine.Engine, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		engine: eng,
		logger: logger,
		port:   port,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/parley/status", s.status)
	router.Route("/api/v1/analyze", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/", s.analyze)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the configured token. An
// empty token disables auth (local development).
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got != token {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AnalyzeRequest is the HTTP payload for one analysis.
type AnalyzeRequest struct {
	Text       string           `json:"text"`
	SourceType string           `json:"source_type"`
	Mode       string           `json:"mode"`
	Draft      string           `json:"draft,omitempty"`
	Features   *engine.Features `json:"features,omitempty"`
}

// AnalyzeResponse is the populated capsule plus the optional draft analysis.
// All field names are snake_case; there is exactly one casing on the wire.
type AnalyzeResponse struct {
	Capsule  *capsule.ThreadCapsule `json:"capsule"`
	Draft    *capsule.DraftAnalysis `json:"draft_analysis,omitempty"`
	Degraded []string               `json:"degraded,omitempty"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	features := engine.AllFeatures()
	if req.Features != nil {
		features = *req.Features
	}

	result, err := s.engine.Analyze(r.Context(), engine.Request{
		Text:     req.Text,
		Source:   parseSource(req.SourceType),
		Mode:     parseMode(req.Mode),
		Draft:    req.Draft,
		Features: features,
	})
	if err != nil {
		if errors.Is(err, engine.ErrEmptyConversation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AnalyzeResponse{
		Capsule:  result.Capsule,
		Draft:    result.Draft,
		Degraded: result.Degraded,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"agent":  "parley",
		"status": "ready",
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func parseSource(s string) capsule.SourceType {
	switch strings.ToLower(s) {
	case "email":
		return capsule.SourceEmail
	case "image":
		return capsule.SourceImage
	case "audio":
		return capsule.SourceAudio
	default:
		return capsule.SourceChat
	}
}

func parseMode(s string) engine.Mode {
	switch strings.ToLower(s) {
	case "basic":
		return engine.ModeBasic
	case "advanced":
		return engine.ModeAdvanced
	default:
		return engine.ModeAuto
	}
}
