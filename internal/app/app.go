// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires every component into a running server: load
// config, construct the event bus and the seven core components,
// compose the facade, start the HTTP listener, and handle graceful
// shutdown.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cui-run/server/internal/api"
	"github.com/cui-run/server/internal/config"
	"github.com/cui-run/server/internal/events"
	"github.com/cui-run/server/internal/facade"
	"github.com/cui-run/server/internal/history"
	"github.com/cui-run/server/internal/permission"
	"github.com/cui-run/server/internal/preferences"
	"github.com/cui-run/server/internal/process"
	"github.com/cui-run/server/internal/sessioninfo"
	"github.com/cui-run/server/internal/status"
	"github.com/cui-run/server/internal/streamfanout"
)

// Options configures a single run of the server.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Version    string
}

// App owns every long-lived component and the HTTP listener.
type App struct {
	version string
	config  *config.Config

	bus         events.Bus
	fanout      *streamfanout.Fanout
	tracker     *status.Tracker
	sessionInfo *sessioninfo.Store
	historyRdr  *history.Reader
	watcher     *history.Watcher
	mediator    *permission.Mediator
	manager     *process.Manager
	prefs       *preferences.Store
	facade      *facade.Facade
	apiServer   *api.Server

	done     chan struct{}
	doneOnce bool
}

// New loads configuration and constructs every component, but does not
// start the HTTP listener yet.
func New(opts Options) (*App, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	a := &App{version: opts.Version, config: cfg, done: make(chan struct{})}

	a.bus = events.NewMemoryBus(events.MemoryBusConfig{})
	a.fanout = streamfanout.New(0)
	a.tracker = status.New(a.bus)

	a.sessionInfo = sessioninfo.New(cfg.SessionInfo.Path)
	if err := a.sessionInfo.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize session-info store: %w", err)
	}

	a.historyRdr = history.New(cfg.History.ProjectsRoot, a.sessionInfo, a.tracker)
	if cfg.History.Watch {
		w, err := history.NewWatcher(a.historyRdr)
		if err != nil {
			log.Printf("history watcher disabled: %v", err)
		} else {
			a.watcher = w
		}
	}

	a.mediator = permission.New(facade.NewFanoutNotifier(a.fanout), a.bus)
	a.mediator.SetPendingTimeout(time.Duration(cfg.Permission.PendingTimeoutSec) * time.Second)
	a.prefs = preferences.New(cfg.Preferences.Path)

	a.manager = process.New(process.Options{
		Binary:      cfg.Process.Binary,
		InitTimeout: time.Duration(cfg.Process.InitTimeoutSec) * time.Second,
		StopGrace:   time.Duration(cfg.Process.StopGraceSec) * time.Second,
	}, a.fanout, a.tracker, a.bus)

	a.facade = &facade.Facade{
		Process:     a.manager,
		Fanout:      a.fanout,
		History:     a.historyRdr,
		Tracker:     a.tracker,
		SessionInfo: a.sessionInfo,
		Permission:  a.mediator,
		Preferences: a.prefs,
		Bus:         a.bus,
	}

	a.apiServer = api.NewServer(api.ServerConfig{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		TLSCert: cfg.Server.TLSCert,
		TLSKey:  cfg.Server.TLSKey,
	}, a.facade)

	return a, nil
}

// Run starts the HTTP listener and blocks until a shutdown signal, a
// cancelled ctx, or an explicit Stop call.
func (a *App) Run(ctx context.Context) error {
	go func() {
		log.Printf("cui-server %s listening on %s:%d", a.version, a.config.Server.Host, a.config.Server.Port)
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down", sig)
	case <-ctx.Done():
		log.Printf("context cancelled, shutting down")
	case <-a.done:
		log.Printf("shutdown requested")
	}

	return a.Shutdown(context.Background())
}

// Stop requests Run to begin shutdown; safe to call once.
func (a *App) Stop() {
	if !a.doneOnce {
		a.doneOnce = true
		close(a.done)
	}
}

// Shutdown stops the HTTP listener, every live CLI child, and the
// history watcher, in that order.
func (a *App) Shutdown(ctx context.Context) error {
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down API server: %v", err)
	}

	perSessionTimeout := time.Duration(a.config.Process.ShutdownTimeout) * time.Second
	a.manager.Shutdown(shutdownCtx, perSessionTimeout)

	if a.watcher != nil {
		a.watcher.Close()
	}
	a.bus.Close()

	return nil
}
