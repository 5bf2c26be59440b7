// Package server exposes ranking sessions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nadhanasaripv257/skillq-app/internal/common/config"
	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/common/validation"
	rankingsession "github.com/nadhanasaripv257/skillq-app/internal/matching/ranking-session"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
	"github.com/nadhanasaripv257/skillq-app/internal/outreach"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Address      string
	MetricsPath  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func ConfigFrom(c config.ServerConfig) *Config {
	return &Config{
		Address:      c.Address,
		MetricsPath:  c.MetricsPath,
		ReadTimeout:  config.GetDuration(c.ReadTimeout),
		WriteTimeout: config.GetDuration(c.WriteTimeout),
	}
}

type Server struct {
	config   *Config
	sessions *rankingsession.Manager
	outreach outreach.Generator
	logger   logger.Logger
	mux      *http.ServeMux
}

// New wires the routes. gen may be nil, in which case outreach requests fail with
// OUTREACH_FAILED.
func New(cfg *Config, sessions *rankingsession.Manager, gen outreach.Generator, log logger.Logger) *Server {
	s := &Server{
		config:   cfg,
		sessions: sessions,
		outreach: gen,
		logger:   logger.ForComponent(log, "server"),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /sessions", s.handleStart)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGet)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.handleClose)
	s.mux.HandleFunc("POST /sessions/{id}/turns", s.handleTurn)
	s.mux.HandleFunc("GET /sessions/{id}/history", s.handleHistory)
	s.mux.HandleFunc("POST /sessions/{id}/outreach", s.handleOutreach)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	s.mux.Handle("GET "+metricsPath, promhttp.Handler())
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Session API listening", map[string]interface{}{"address": s.config.Address})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.Start()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"sessionId": id,
		"state":     rankingsession.StateAwaitingQuery,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decode(r, turnSchema, &req); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.sessions.SubmitTurn(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.Results == nil {
		res.Results = []models.MatchResult{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.sessions.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (s *Server) handleOutreach(w http.ResponseWriter, r *http.Request) {
	var req outreachRequest
	if err := decode(r, outreachSchema, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if s.outreach == nil {
		s.writeError(w, apperrors.NewOutreachFailedError(errors.New("outreach generator is not configured")))
		return
	}

	view, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if view.Current == nil {
		s.writeError(w, apperrors.NewInvalidRequestError("session has no results yet"))
		return
	}

	var match *models.MatchResult
	for i := range view.Current.Results {
		if view.Current.Results[i].CandidateID == req.CandidateID {
			match = &view.Current.Results[i]
			break
		}
	}
	if match == nil {
		s.writeError(w, apperrors.NewCandidateNotFoundError(req.CandidateID))
		return
	}

	rec, err := s.sessions.Store().FetchCandidate(r.Context(), req.CandidateID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.outreach.Generate(r.Context(), *match, rec, view.Current.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// decode validates the body against schema before unmarshalling it into dst.
func decode(r *http.Request, schema *validation.Schema, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewInvalidRequestError("unreadable body")
	}

	result, err := schema.ValidateBytes(body)
	if err != nil {
		return apperrors.NewInvalidRequestError("body is not valid JSON")
	}
	if !result.Valid {
		return apperrors.NewInvalidRequestError(result.Error()).WithMetadata("schema", schema.Name())
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewInvalidRequestError(err.Error())
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	se, ok := apperrors.AsStandardError(err)
	if !ok {
		s.logger.Error("Unhandled error", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]string{"code": "INTERNAL", "message": "internal error"},
		})
		return
	}
	writeJSON(w, apperrors.HTTPStatus(se.Code), map[string]interface{}{"error": se})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("request failed", fields)
		} else {
			s.logger.Debug("request served", fields)
		}
	})
}
