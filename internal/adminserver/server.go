/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package adminserver exposes the process's admin HTTP surface:
// liveness, Prometheus metrics, a current-track/per-stream status
// snapshot, and a skip-current-track control. Unlike the original
// SIGUSR1-based skip signal, this is the one outward-facing control
// surface of the process (spec.md §5's "checked at safe points only"
// rule still governs how the skip flag itself is consumed).
package adminserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/auth"
	"github.com/friendsincode/grimnir-ices/internal/logbuffer"
	"github.com/friendsincode/grimnir-ices/internal/orchestrator"
	"github.com/friendsincode/grimnir-ices/internal/signals"
	"github.com/friendsincode/grimnir-ices/internal/telemetry"
)

// TrackSource is the subset of the orchestrator this surface reads
// from; satisfied by *orchestrator.Orchestrator.
type TrackSource interface {
	Status() orchestrator.Status
}

// Config is the admin surface's static configuration.
type Config struct {
	Bind string
	Port int

	// AdminTokenHash is a bcrypt hash of the operator's admin token.
	// Empty disables auth entirely: /status and /skip are then open.
	AdminTokenHash string
	SessionTTL     time.Duration
}

// Server is the chi-based admin HTTP surface.
type Server struct {
	cfg        Config
	log        zerolog.Logger
	source     TrackSource
	flags      *signals.Flags
	logs       *logbuffer.Buffer
	jwtSecret  []byte
	httpServer *http.Server
}

// New builds the admin server. If cfg.AdminTokenHash is set, a random
// per-process JWT signing secret is generated to back admin sessions;
// it is never persisted, so a restart invalidates any outstanding
// session token. logs may be nil, disabling the /logs endpoint.
func New(log zerolog.Logger, cfg Config, source TrackSource, flags *signals.Flags, logs *logbuffer.Buffer) (*Server, error) {
	s := &Server{cfg: cfg, log: log.With().Str("component", "adminserver").Logger(), source: source, flags: flags, logs: logs}

	if cfg.AdminTokenHash != "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("adminserver: generate session secret: %w", err)
		}
		s.jwtSecret = secret
	}
	if s.cfg.SessionTTL <= 0 {
		s.cfg.SessionTTL = time.Hour
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(telemetry.TracingMiddleware("ices-adminserver"))

	router.Get("/healthz", s.handleHealthz)
	router.Handle("/metrics", telemetry.Handler())
	router.Post("/admin/session", s.handleSession)

	router.Group(func(r chi.Router) {
		if s.jwtSecret != nil {
			r.Use(auth.Middleware(s.jwtSecret))
		}
		r.Get("/status", s.handleStatus)
		r.Post("/skip", s.handleSkip)
		r.Get("/logs", s.handleLogs)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// ListenAndServe runs the admin HTTP surface until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("admin HTTP surface starting")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the admin HTTP surface.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Status())
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.flags.RequestSkip()
	w.WriteHeader(http.StatusAccepted)
}

// handleLogs serves the most recent captured log lines, optionally
// filtered by level/component/search and capped by limit (default 200).
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	limit := 200
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries := s.logs.Query(logbuffer.QueryParams{
		Level:      q.Get("level"),
		Component:  q.Get("component"),
		Search:     q.Get("search"),
		Limit:      limit,
		Descending: true,
	})
	writeJSON(w, http.StatusOK, entries)
}

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

// handleSession exchanges the configured plaintext admin token for a
// short-lived session JWT. A no-op 404 when auth is disabled, since
// there is nothing to authenticate against.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.jwtSecret == nil {
		http.NotFound(w, r)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !auth.VerifyAdminToken(s.cfg.AdminTokenHash, req.Token) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := auth.Issue(s.jwtSecret, auth.Claims{Subject: "operator"}, s.cfg.SessionTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue admin session token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
