// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the catalog engine over HTTP. Handlers stay thin:
// they parse the request, call one engine operation, and encode the
// result. All domain rules live in the catalog package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tartil-io/tartil/pkg/catalog"
	"github.com/tartil-io/tartil/pkg/logger"
)

// Config holds the API server configuration.
type Config struct {
	Addr string

	// MaxUploadBytes bounds multipart request memory; larger parts
	// spill to disk.
	MaxUploadBytes int64
}

// DefaultConfig returns API defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		MaxUploadBytes: 64 << 20,
	}
}

// Server is the HTTP front of the catalog engine.
type Server struct {
	svc  *catalog.Service
	rec  *catalog.Reconciler
	cfg  Config
	http *http.Server
}

// New creates an API server. The reconciler is optional; without it the
// admin endpoints respond 404.
func New(svc *catalog.Service, rec *catalog.Reconciler, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	s := &Server{svc: svc, rec: rec, cfg: cfg}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/recitations", s.handleListRecitations)
		r.Get("/chapters", s.handleListChapters)

		r.Route("/reciters", func(r chi.Router) {
			r.Get("/", s.handleListReciters)
			r.Post("/", s.handleCreateReciter)
			r.Get("/missing-archives", s.handleMissingArchives)

			r.Route("/{reciterSlug}", func(r chi.Router) {
				r.Get("/", s.handleReciterDetails)
				r.Patch("/", s.handleUpdateReciter)
				r.Delete("/", s.handleDeleteReciter)
				r.Get("/info", s.handleReciterInfo)
				r.Get("/missing-archives", s.handleMissingArchivesForReciter)

				r.Route("/recitations/{recitationSlug}", func(r chi.Router) {
					r.Post("/audio", s.handleUploadAudio)
					r.Get("/archive", s.handleStreamArchive)
					r.Put("/archive", s.handleUploadArchive)
					r.Delete("/", s.handleDeleteRecitation)
					r.Delete("/chapters/{chapterNumber}", s.handleDeleteChapter)
				})
			})
		})

		if s.rec != nil {
			r.Post("/admin/reconcile", s.handleReconcile)
			r.Get("/admin/reconcile", s.handleReconcileReport)
		}
	})

	return r
}

// ListenAndServe runs the API server until the listener fails or
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger.Info().Str("addr", s.cfg.Addr).Msg("api server listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener. Active
// uploads and archive streams run to completion within the context
// deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestLogger logs one line per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps engine errors onto HTTP statuses. Internal details
// are logged, not leaked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *catalog.ServiceError
	if errors.As(err, &svcErr) {
		status := svcErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
			writeJSON(w, status, errorResponse{Error: "internal error"})
			return
		}
		writeJSON(w, status, errorResponse{Error: svcErr.Message})
		return
	}

	logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
