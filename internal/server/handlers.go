package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/internal/service"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

func (s *Server) handleHumanize(w http.ResponseWriter, r *http.Request) {
	var req models.HumanizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("humanize request", zap.String("tier", req.Tier), zap.Int("length", len(req.Text)))
	resp, err := s.svc.Humanize(r.Context(), &req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHumanizeBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchHumanizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("batch request", zap.String("tier", req.Tier), zap.Int("texts", len(req.Texts)))
	resp, err := s.svc.HumanizeBatch(r.Context(), &req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Analyze(&req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDetectAndHumanize(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.DetectAndHumanize(r.Context(), &req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTechniques(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.TechniquesResponse{Techniques: s.svc.Techniques()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.svc.Health()
	status := http.StatusOK
	if !health.ModelsLoaded {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, health)
}

func (s *Server) handleAPIIndex(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"name":    "kotoba",
		"version": s.svc.Health().Version,
		"endpoints": map[string]string{
			"POST /api/v1/humanize":                    "Humanize single text",
			"POST /api/v1/humanize/batch":              "Humanize multiple texts",
			"GET /api/v1/health":                       "Check service health",
			"POST /api/v1/analyze":                     "Analyze text for AI patterns",
			"POST /api/v1/analyze/detect-and-humanize": "Auto-detect and humanize",
			"GET /api/v1/techniques":                   "List available techniques",
			"WS /api/v1/humanize/ws":                   "WebSocket for real-time humanization",
			"GET /metrics":                             "Prometheus metrics",
		},
	})
}

// decode reads a JSON body into v, responding 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondServiceError maps service errors to status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, humanizer.ErrInvalidParameter):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotInitialized):
		s.respondError(w, http.StatusServiceUnavailable, "service is initializing")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.respondError(w, http.StatusServiceUnavailable, "request timed out")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
