// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/parley/pkg/agent"
	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/observability"
)

// ChatRequest is the body of POST /v1/agents/{agent}/chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse carries the model's reply.
type ChatResponse struct {
	Agent string `json:"agent"`
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the chat endpoint plus health and metrics.
type Server struct {
	cfg          config.ServerConfig
	agents       map[string]*config.AgentConfig
	orchestrator *agent.Orchestrator
	metrics      *observability.Metrics

	http *http.Server
}

// New builds a server over the given orchestrator and agent set.
func New(cfg config.ServerConfig, agents map[string]*config.AgentConfig, orch *agent.Orchestrator, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:          cfg,
		agents:       agents,
		orchestrator: orch,
		metrics:      metrics,
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		readTimeout = 30 * time.Second
	}
	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		writeTimeout = 120 * time.Second
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Router builds the chi routing tree. Exposed separately for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/agents", s.handleListAgents)
		r.Post("/agents/{agent}/chat", s.handleChat)
	})
	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListAgents returns the public agents only; private agents are
// addressable by name but not enumerable.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		Name  string `json:"name"`
		Emoji string `json:"emoji,omitempty"`
	}

	out := make([]agentSummary, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Visibility != config.VisibilityPublic {
			continue
		}
		out = append(out, agentSummary{Name: a.Name, Emoji: a.Emoji})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "agent")
	agentCfg, ok := s.agents[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown agent %q", name))
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if agentCfg.Visibility == config.VisibilityPrivate && agentCfg.Owner != "" && agentCfg.Owner != req.UserID {
		writeError(w, http.StatusForbidden, fmt.Sprintf("agent %q is private", name))
		return
	}

	reply, err := s.orchestrator.HandleTurn(r.Context(), agentCfg, req.UserID, req.Message)
	if err != nil {
		if errors.Is(err, agent.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "service not configured")
			return
		}
		slog.Error("Turn failed", "agent", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Agent: name, Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
