package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/domain"
	"github.com/felixgeelhaar/attune/internal/engine"
)

// Server is the attune daemon HTTP server. Every data endpoint passes the
// requester's role to the engine; the privacy gate lives there, not here.
type Server struct {
	server *http.Server
	router *http.ServeMux
	engine *engine.Service
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Bind   string
	Port   int
	Engine *engine.Service
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router: http.NewServeMux(),
		engine: cfg.Engine,
	}

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	handler := recoveryMiddleware(loggingMiddleware(correlationIDMiddleware(s.router)))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health
	s.router.HandleFunc("GET /v1/health", s.handleHealth)

	// Assessments
	s.router.HandleFunc("POST /v1/assessments", s.handleSubmitAssessment)

	// Profiles
	s.router.HandleFunc("GET /v1/profiles/{id}", s.handleGetProfile)
	s.router.HandleFunc("GET /v1/profiles/{id}/progress", s.handleGetProgress)
	s.router.HandleFunc("GET /v1/profiles/{id}/alerts", s.handleListAlerts)

	// Alerts & actions
	s.router.HandleFunc("POST /v1/alerts/{id}/resolve", s.handleResolveAlert)
	s.router.HandleFunc("POST /v1/actions/{id}/advance", s.handleAdvanceAction)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting attune daemon", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")
	return s.server.Shutdown(ctx)
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileID   string                     `json:"profile_id"`
		Type        string                     `json:"type,omitempty"`
		Source      string                     `json:"source,omitempty"`
		Responses   map[string]domain.RawValue `json:"responses"`
		PrivacyTier string                     `json:"privacy_tier,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	profileID, err := uuid.Parse(req.ProfileID)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid profile_id", err)
		return
	}

	tier := domain.PrivacyTier(req.PrivacyTier)
	if req.PrivacyTier != "" && !tier.Valid() {
		s.jsonError(w, http.StatusBadRequest, "invalid privacy_tier", nil)
		return
	}

	assessment, err := s.engine.SubmitAssessment(r.Context(), engine.SubmitRequest{
		ProfileID:     profileID,
		Type:          domain.AssessmentType(req.Type),
		Source:        domain.AssessmentSource(req.Source),
		Responses:     req.Responses,
		RequestedTier: tier,
	})
	if err != nil {
		s.domainError(w, err, "failed to submit assessment")
		return
	}

	s.jsonResponse(w, http.StatusCreated, assessment)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	profile, err := s.engine.GetProfile(r.Context(), id, requesterRole(r))
	if err != nil {
		s.domainError(w, err, "failed to get profile")
		return
	}

	s.jsonResponse(w, http.StatusOK, profile)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.jsonError(w, http.StatusBadRequest, "days must be a positive integer", nil)
			return
		}
		days = parsed
	}

	report, err := s.engine.GetProgress(r.Context(), id, days, requesterRole(r))
	if err != nil {
		s.domainError(w, err, "failed to get progress")
		return
	}

	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	alerts, err := s.engine.ListActiveAlerts(r.Context(), id, requesterRole(r))
	if err != nil {
		s.domainError(w, err, "failed to list alerts")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
	})
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	alert, err := s.engine.ResolveAlert(r.Context(), id, requesterRole(r))
	if err != nil {
		s.domainError(w, err, "failed to resolve alert")
		return
	}

	s.jsonResponse(w, http.StatusOK, alert)
}

func (s *Server) handleAdvanceAction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	var update domain.ProgressUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	action, err := s.engine.AdvanceInterventionAction(r.Context(), id, update)
	if err != nil {
		s.domainError(w, err, "failed to advance action")
		return
	}

	s.jsonResponse(w, http.StatusOK, action)
}

// Helper methods

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", key), err)
		return uuid.Nil, false
	}
	return id, true
}

// domainError maps domain sentinel errors onto HTTP status codes.
func (s *Server) domainError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidScale),
		errors.Is(err, domain.ErrInvalidProgress):
		s.jsonError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, domain.ErrAccessDenied):
		s.jsonError(w, http.StatusForbidden, "access denied", nil)
	case errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrAssessmentNotFound),
		errors.Is(err, domain.ErrAlertNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrActionNotFound),
		errors.Is(err, domain.ErrNotFound):
		s.jsonError(w, http.StatusNotFound, message, err)
	case errors.Is(err, domain.ErrConcurrencyConflict),
		errors.Is(err, domain.ErrConflict):
		s.jsonError(w, http.StatusConflict, message, err)
	default:
		slog.Error("request failed", "error", err)
		s.jsonError(w, http.StatusInternalServerError, message, err)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}
