// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package process owns the lifetime of every CLI child: building its
// argument vector, spawning it, draining its stdout through the NDJSON
// parser onto the stream fan-out, and tearing it down on stop or
// server shutdown.
package process

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cui-run/server/internal/events"
	"github.com/cui-run/server/internal/ndjson"
	"github.com/cui-run/server/internal/status"
	"github.com/cui-run/server/internal/streamfanout"
)

// StartConfig is the caller-supplied configuration for starting or
// resuming a conversation.
type StartConfig struct {
	WorkingDirectory string
	InitialPrompt    string
	Model            string
	AllowedTools     []string
	DisallowedTools  []string
	SystemPrompt     string
	PermissionMode   string

	// ResumeSessionID is set when this spawn continues a prior
	// conversation; InitialPrompt becomes the follow-up message in
	// that case.
	ResumeSessionID string
}

// SystemInit is the decoded `init` record the CLI emits first.
type SystemInit struct {
	SessionID      string   `json:"session_id"`
	CWD            string   `json:"cwd"`
	Model          string   `json:"model"`
	Tools          []string `json:"tools"`
	MCPServers     []string `json:"mcp_servers"`
	PermissionMode string   `json:"permission_mode"`
	APIKeySource   string   `json:"apiKeySource"`
}

// StartResult is returned once the init record arrives.
type StartResult struct {
	StreamingID string
	SystemInit  SystemInit
}

// Options configures a Manager.
type Options struct {
	Binary            string
	InitTimeout       time.Duration
	StopGrace         time.Duration
	BaseURL           string
	MCPConfigPath     string
	PermissionToolID  string
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = "claude"
	}
	if o.InitTimeout <= 0 {
		o.InitTimeout = 30 * time.Second
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 5 * time.Second
	}
	return o
}

// Manager owns every live CLI child process.
type Manager struct {
	opts Options

	fanout  *streamfanout.Fanout
	tracker *status.Tracker
	bus     events.Bus

	mu       sync.Mutex
	children map[string]*child
}

type child struct {
	streamingID string
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	exited      chan struct{}

	initialPrompt string
}

// New creates a Manager.
func New(opts Options, fanout *streamfanout.Fanout, tracker *status.Tracker, bus events.Bus) *Manager {
	return &Manager{
		opts:     opts.withDefaults(),
		fanout:   fanout,
		tracker:  tracker,
		bus:      bus,
		children: make(map[string]*child),
	}
}

// Start spawns a new CLI child and blocks until its init record arrives
// or the configured timeout elapses.
func (m *Manager) Start(ctx context.Context, cfg StartConfig) (StartResult, error) {
	if cfg.WorkingDirectory != "" {
		if fi, err := os.Stat(cfg.WorkingDirectory); err != nil || !fi.IsDir() {
			return StartResult{}, fmt.Errorf("working directory %q is not a directory", cfg.WorkingDirectory)
		}
	}

	streamingID := uuid.New().String()
	args := m.buildArgs(cfg)

	cmd := exec.Command(m.opts.Binary, args...)
	if cfg.WorkingDirectory != "" {
		cmd.Dir = cfg.WorkingDirectory
	}
	cmd.Env = append(os.Environ(),
		"CUI_STREAMING_ID="+streamingID,
		"CUI_BASE_URL="+m.opts.BaseURL,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return StartResult{}, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return StartResult{}, fmt.Errorf("create stderr pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return StartResult{}, fmt.Errorf("create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return StartResult{}, fmt.Errorf("start %s: %w", m.opts.Binary, err)
	}

	c := &child{streamingID: streamingID, cmd: cmd, stdin: stdin, exited: make(chan struct{}), initialPrompt: cfg.InitialPrompt}
	m.mu.Lock()
	m.children[streamingID] = c
	m.mu.Unlock()

	initCh := make(chan SystemInit, 1)
	go m.drainStdout(c, stdout, initCh)
	go m.drainStderr(c, stderr)
	go m.awaitExit(c)

	select {
	case init := <-initCh:
		return StartResult{StreamingID: streamingID, SystemInit: init}, nil
	case <-time.After(m.opts.InitTimeout):
		return StartResult{}, fmt.Errorf("timed out waiting for init record from %s", m.opts.Binary)
	case <-ctx.Done():
		return StartResult{}, ctx.Err()
	}
}

// buildArgs assembles the CLI invocation per the print-mode / NDJSON
// contract.
func (m *Manager) buildArgs(cfg StartConfig) []string {
	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--verbose",
	}

	if m.opts.MCPConfigPath != "" {
		args = append(args, "--mcp-config", m.opts.MCPConfigPath)
	}
	if m.opts.PermissionToolID != "" {
		args = append(args, "--permission-prompt-tool", m.opts.PermissionToolID)
	}

	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if len(cfg.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(cfg.AllowedTools, ","))
	}
	if len(cfg.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(cfg.DisallowedTools, ","))
	}
	if cfg.SystemPrompt != "" {
		args = append(args, "--system-prompt", cfg.SystemPrompt)
	}
	if cfg.PermissionMode != "" {
		args = append(args, "--permission-mode", cfg.PermissionMode)
	}

	if cfg.ResumeSessionID != "" {
		args = append(args, "--resume", cfg.ResumeSessionID)
	}
	if cfg.InitialPrompt != "" {
		args = append(args, cfg.InitialPrompt)
	}

	return args
}

func (m *Manager) drainStdout(c *child, stdout io.Reader, initCh chan<- SystemInit) {
	var initSent bool
	var sawResult bool

	parser := ndjson.New(func(raw []byte) error {
		m.fanout.Publish(c.streamingID, json.RawMessage(raw))

		var probe struct {
			Type      string `json:"type"`
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil
		}

		if probe.Type == "result" {
			sawResult = true
		}

		if !initSent && probe.Type == "system" && probe.SessionID != "" {
			var init SystemInit
			json.Unmarshal(raw, &init)
			initSent = true

			m.tracker.Register(c.streamingID, init.SessionID, status.Context{
				WorkingDirectory: init.CWD,
				InitialPrompt:    c.initialPrompt,
				Model:            init.Model,
				Timestamp:        time.Now(),
			})
			select {
			case initCh <- init:
			default:
			}
		}
		return nil
	}, func(lineErr *ndjson.LineError) {
		log.Printf("process: malformed stdout line for %s: %v", c.streamingID, lineErr.Err)
	})

	buf := make([]byte, 64*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n])
		}
		if err != nil {
			break
		}
	}
	parser.Close()

	if !sawResult {
		terminal, _ := json.Marshal(map[string]interface{}{
			"type":      "result",
			"subtype":   "ended_without_result",
			"timestamp": time.Now(),
		})
		m.fanout.Publish(c.streamingID, terminal)
	}
}

func (m *Manager) drainStderr(c *child, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		log.Printf("process: %s stderr: %s", c.streamingID, line)
		errRecord, _ := json.Marshal(map[string]interface{}{
			"type":      "error",
			"message":   line,
			"timestamp": time.Now(),
		})
		m.fanout.Publish(c.streamingID, errRecord)
	}
}

func (m *Manager) awaitExit(c *child) {
	c.cmd.Wait()
	close(c.exited)

	m.mu.Lock()
	delete(m.children, c.streamingID)
	m.mu.Unlock()

	m.tracker.Unregister(c.streamingID)
	m.fanout.Close(c.streamingID)
}

// Stop requests a child's process group to terminate, waiting up to
// the configured grace period before escalating to a hard kill. Stream
// closure is driven by awaitExit, not by Stop, so callers never race
// the exit handler.
func (m *Manager) Stop(streamingID string) bool {
	m.mu.Lock()
	c, ok := m.children[streamingID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	pgid := c.cmd.Process.Pid
	syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-c.exited:
	case <-time.After(m.opts.StopGrace):
		syscall.Kill(-pgid, syscall.SIGKILL)
		<-c.exited
	}
	return true
}

// Shutdown stops every live child in parallel, bounded by perSessionTimeout.
func (m *Manager) Shutdown(ctx context.Context, perSessionTimeout time.Duration) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.children))
	for id := range m.children {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			done := make(chan struct{})
			go func() {
				m.Stop(id)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(perSessionTimeout):
				log.Printf("process: %s did not stop within shutdown timeout", id)
			}
			return nil
		})
	}
	g.Wait()

	m.fanout.DisconnectAll()
}

// Active reports whether streamingID currently has a live child.
func (m *Manager) Active(streamingID string) bool {
	m.mu.Lock()
	_, ok := m.children[streamingID]
	m.mu.Unlock()
	return ok
}
