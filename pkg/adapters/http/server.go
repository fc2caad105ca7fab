// Package http exposes the clarification workflow over a JSON REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/elicit/internal/logging"
	"github.com/aretw0/elicit/pkg/domain"
)

// Engine is the workflow surface the server drives.
type Engine interface {
	Start(ctx context.Context, sessionID, prompt string, metadata map[string]any) (domain.Result, error)
	Resume(ctx context.Context, sessionID string, data map[string]any) (domain.Result, error)
}

// SessionDirectory provides read and lifecycle access to stored
// sessions. *session.Manager satisfies it.
type SessionDirectory interface {
	Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// Server holds the HTTP handler dependencies.
type Server struct {
	engine   Engine
	sessions SessionDirectory
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, sessions SessionDirectory, opts ...Option) http.Handler {
	server := &Server{
		engine:   engine,
		sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", server.getHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", server.createSession)
		r.Get("/", server.listSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", server.getSession)
			r.Delete("/", server.deleteSession)
			r.Post("/resume", server.resumeSession)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Request/response bodies --

type createSessionRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	Prompt    string         `json:"prompt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type resumeSessionRequest struct {
	Data map[string]any `json:"data"`
}

type sessionResultResponse struct {
	SessionID string         `json:"session_id"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Answer    string         `json:"answer,omitempty"`
}

type sessionInfoResponse struct {
	SessionID         string `json:"session_id"`
	NextNode          string `json:"next_node"`
	Version           int64  `json:"version"`
	UpdatedAt         string `json:"updated_at"`
	Terminal          bool   `json:"terminal"`
	QuestionsAsked    int    `json:"questions_asked"`
	QuestionsAnswered int    `json:"questions_answered"`
	Answer            string `json:"answer,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// -- Handlers --

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res, err := s.engine.Start(r.Context(), sessionID, body.Prompt, body.Metadata)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, resultResponse(sessionID, res))
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body resumeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.engine.Resume(r.Context(), sessionID, body.Data)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resultResponse(sessionID, res))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	cp, err := s.sessions.Load(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	info := sessionInfoResponse{
		SessionID:         cp.SessionID,
		NextNode:          cp.NextNode,
		Version:           cp.Version,
		UpdatedAt:         cp.UpdatedAt.UTC().Format(time.RFC3339),
		Terminal:          cp.Terminal(),
		QuestionsAsked:    len(cp.State.AllPreviousQuestions),
		QuestionsAnswered: len(cp.State.AnsweredQuestions),
	}
	if cp.Terminal() {
		info.Answer = cp.State.Answer
	}

	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	// Existence check so deleting an unknown session reports 404 even on
	// stores with idempotent deletes.
	if _, err := s.sessions.Load(r.Context(), sessionID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	if err := s.sessions.Delete(r.Context(), sessionID); err != nil {
		s.writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if sessions == nil {
		sessions = []string{}
	}

	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": sessions})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// -- Helpers --

func resultResponse(sessionID string, res domain.Result) sessionResultResponse {
	return sessionResultResponse{
		SessionID: sessionID,
		Status:    string(res.Status),
		Payload:   res.Payload,
		Answer:    res.Answer,
	}
}

// writeEngineError maps domain errors to HTTP status codes. Internal
// failures are logged server-side and reported with a stable message so
// collaborator errors never leak to clients.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrSessionExists):
		s.writeError(w, http.StatusConflict, "session already exists")
	case errors.Is(err, domain.ErrSessionTerminated):
		s.writeError(w, http.StatusConflict, "session already completed")
	case errors.Is(err, domain.ErrSessionBusy):
		s.writeError(w, http.StatusConflict, "session is being processed")
	case errors.Is(err, domain.ErrStaleCheckpoint):
		s.writeError(w, http.StatusConflict, "session was modified concurrently")
	case errors.As(err, &validation):
		s.writeError(w, http.StatusBadRequest, validation.Error())
	default:
		s.logger.Error("request failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
