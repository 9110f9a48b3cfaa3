// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package web serves the Ringwork JSON API and the unauthenticated public
// key endpoints over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/toeirei/ringwork/internal/logging"
	"go.uber.org/atomic"
)

// HTTPServerConfig holds listener settings for the portal server.
type HTTPServerConfig struct {
	ListenAddr string
	// Quiet disables the per-request access log.
	Quiet bool

	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server wraps the HTTP listener, the router and the readiness flag.
type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool

	srv     *http.Server
	handler *Handler
	router  http.Handler
}

// New builds a server that dispatches API calls to handler.
func New(cfg *HTTPServerConfig, handler *Handler) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("nil server config")
	}
	if handler == nil {
		return nil, errors.New("nil handler")
	}
	srv := &Server{
		cfg:     cfg,
		handler: handler,
	}
	srv.isReady.Store(true)
	srv.router = srv.getRouter()

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv, nil
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	if !srv.cfg.Quiet {
		mux.Use(accessLog)
	}

	mux.Get("/livez", srv.handleLivenessCheck)
	mux.Get("/readyz", srv.handleReadinessCheck)

	mux.Group(func(r chi.Router) {
		r.Use(srv.handler.ensureToken)
		srv.handler.RegisterRoutes(r)
	})
	return mux
}

// Handler returns the root HTTP handler, for tests and embedding.
func (srv *Server) Handler() http.Handler {
	return srv.router
}

// SetReady flips the readiness probe.
func (srv *Server) SetReady(ready bool) {
	srv.isReady.Store(ready)
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !srv.isReady.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground starts the listener in a goroutine. A listener failure
// other than a regular shutdown is sent on the returned channel.
func (srv *Server) RunInBackground() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		logging.L.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L.Error("HTTP server failed", "err", err)
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown marks the server not ready and drains in-flight requests within
// the configured grace period.
func (srv *Server) Shutdown() {
	srv.isReady.Store(false)
	timeout := srv.cfg.GracefulShutdownDuration
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		logging.L.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		logging.L.Info("HTTP server gracefully stopped")
	}
}
