// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api wires the facade to an HTTP surface: route table,
// middleware, and the optional TLS listener.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cui-run/server/internal/api/handlers"
	"github.com/cui-run/server/internal/api/middleware"
	"github.com/cui-run/server/internal/facade"
	"github.com/gorilla/mux"
)

// ServerConfig holds the listener configuration for the API server.
type ServerConfig struct {
	Host    string
	Port    int
	TLSCert string
	TLSKey  string
}

// NewRouter builds the route table in front of f.
func NewRouter(f *facade.Facade) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	conversations := handlers.NewConversationsHandler(f)
	permissions := handlers.NewPermissionsHandler(f)
	system := handlers.NewSystemHandler(f)
	stream := handlers.NewStreamHandler(f)
	statusWS := handlers.NewStatusWebSocketHandler(f)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/conversations/start", conversations.Start).Methods("POST")
	api.HandleFunc("/conversations/resume", conversations.Resume).Methods("POST")
	api.HandleFunc("/conversations/{streamingId}/stop", conversations.Stop).Methods("POST")
	api.HandleFunc("/conversations", conversations.List).Methods("GET")
	api.HandleFunc("/conversations/{sessionId}", conversations.Fetch).Methods("GET")
	api.HandleFunc("/conversations/{sessionId}/update", conversations.Update).Methods("PUT")
	api.HandleFunc("/conversations/{sessionId}/export", conversations.Export).Methods("GET")

	api.HandleFunc("/stream/{streamingId}", stream.Stream).Methods("GET")

	api.HandleFunc("/permissions/notify", permissions.Notify).Methods("POST")
	api.HandleFunc("/permissions", permissions.List).Methods("GET")
	api.HandleFunc("/permissions/{id}/wait", permissions.Wait).Methods("GET")
	api.HandleFunc("/permissions/{id}/decision", permissions.Decide).Methods("POST")

	api.HandleFunc("/system/status", system.Status).Methods("GET")
	api.HandleFunc("/system/status/ws", statusWS.WebSocket).Methods("GET")
	api.HandleFunc("/working-directories", system.WorkingDirectories).Methods("GET")
	api.HandleFunc("/preferences", system.GetPreferences).Methods("GET")
	api.HandleFunc("/preferences", system.UpdatePreferences).Methods("PUT")

	return r
}

// Server wraps the router in an http.Server with optional TLS.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a Server for f under cfg.
func NewServer(cfg ServerConfig, f *facade.Facade) *Server {
	return &Server{router: NewRouter(f), cfg: cfg}
}

// Router returns the underlying router, mostly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe starts the server, using TLS when cfg names a
// cert/key pair.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{Addr: addr, Handler: s.router}

	tlsEnabled, err := CheckTLSConfig(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}
	if tlsEnabled {
		certPath := expandPath(s.cfg.TLSCert)
		keyPath := expandPath(s.cfg.TLSKey)
		log.Printf("API server listening on https://%s (TLS enabled)", addr)
		return s.server.ListenAndServeTLS(certPath, keyPath)
	}

	log.Printf("API server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Println("shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(shutdownCtx)
}
