// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cui-run/server/internal/events"
	"github.com/cui-run/server/internal/history"
	"github.com/cui-run/server/internal/permission"
	"github.com/cui-run/server/internal/preferences"
	"github.com/cui-run/server/internal/process"
	"github.com/cui-run/server/internal/sessioninfo"
	"github.com/cui-run/server/internal/status"
	"github.com/cui-run/server/internal/streamfanout"
)

// Facade composes the Session-Info Store, History Reader, Status
// Tracker, Stream Fan-out, Permission Mediator and Process Manager
// behind the operations the HTTP layer needs.
type Facade struct {
	Process     *process.Manager
	Fanout      *streamfanout.Fanout
	History     *history.Reader
	Tracker     *status.Tracker
	SessionInfo *sessioninfo.Store
	Permission  *permission.Mediator
	Preferences *preferences.Store
	Bus         events.Bus

	BaseURL string
}

// StartRequest is the body of POST /api/conversations/start.
type StartRequest struct {
	WorkingDirectory string   `json:"workingDirectory"`
	InitialPrompt    string   `json:"initialPrompt"`
	Model            string   `json:"model,omitempty"`
	AllowedTools     []string `json:"allowedTools,omitempty"`
	DisallowedTools  []string `json:"disallowedTools,omitempty"`
	SystemPrompt     string   `json:"systemPrompt,omitempty"`
	PermissionMode   string   `json:"permissionMode,omitempty"`
}

// StartResponse is the response for both start and resume.
type StartResponse struct {
	StreamingID    string   `json:"streamingId"`
	StreamURL      string   `json:"streamUrl"`
	SessionID      string   `json:"sessionId"`
	CWD            string   `json:"cwd"`
	Tools          []string `json:"tools"`
	MCPServers     []string `json:"mcpServers"`
	Model          string   `json:"model"`
	PermissionMode string   `json:"permissionMode"`
	APIKeySource   string   `json:"apiKeySource"`
}

// Start validates cfg and spawns a fresh CLI child.
func (f *Facade) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	if req.WorkingDirectory == "" {
		return StartResponse{}, newError(CodeMissingWorkingDirectory, "workingDirectory is required")
	}
	if req.InitialPrompt == "" {
		return StartResponse{}, newError(CodeMissingInitialPrompt, "initialPrompt is required")
	}

	result, err := f.Process.Start(ctx, process.StartConfig{
		WorkingDirectory: req.WorkingDirectory,
		InitialPrompt:    req.InitialPrompt,
		Model:            req.Model,
		AllowedTools:     req.AllowedTools,
		DisallowedTools:  req.DisallowedTools,
		SystemPrompt:     req.SystemPrompt,
		PermissionMode:   req.PermissionMode,
	})
	if err != nil {
		return StartResponse{}, translateStartError(err)
	}

	return StartResponse{
		StreamingID:    result.StreamingID,
		StreamURL:      fmt.Sprintf("/api/stream/%s", result.StreamingID),
		SessionID:      result.SystemInit.SessionID,
		CWD:            result.SystemInit.CWD,
		Tools:          result.SystemInit.Tools,
		MCPServers:     result.SystemInit.MCPServers,
		Model:          result.SystemInit.Model,
		PermissionMode: result.SystemInit.PermissionMode,
		APIKeySource:   result.SystemInit.APIKeySource,
	}, nil
}

// ResumeRequest is the body of POST /api/conversations/resume.
type ResumeRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Resume continues a prior conversation by spawning a new child with
// --resume.
func (f *Facade) Resume(ctx context.Context, req ResumeRequest) (StartResponse, error) {
	if req.SessionID == "" {
		return StartResponse{}, newError(CodeMissingSessionID, "sessionId is required")
	}
	if req.Message == "" {
		return StartResponse{}, newError(CodeMissingMessage, "message is required")
	}

	meta, err := f.History.GetConversationMetadata(req.SessionID)
	workingDirectory := ""
	if err == nil {
		workingDirectory = meta.ProjectPath
	}

	result, err := f.Process.Start(ctx, process.StartConfig{
		WorkingDirectory: workingDirectory,
		InitialPrompt:    req.Message,
		ResumeSessionID:  req.SessionID,
	})
	if err != nil {
		return StartResponse{}, translateStartError(err)
	}

	return StartResponse{
		StreamingID:    result.StreamingID,
		StreamURL:      fmt.Sprintf("/api/stream/%s", result.StreamingID),
		SessionID:      result.SystemInit.SessionID,
		CWD:            result.SystemInit.CWD,
		Tools:          result.SystemInit.Tools,
		MCPServers:     result.SystemInit.MCPServers,
		Model:          result.SystemInit.Model,
		PermissionMode: result.SystemInit.PermissionMode,
		APIKeySource:   result.SystemInit.APIKeySource,
	}, nil
}

func translateStartError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timed out waiting for init") {
		return newError(CodeInitTimeout, err.Error())
	}
	return newError(CodeSpawnFailed, err.Error())
}

// Stop requests a live child to terminate.
func (f *Facade) Stop(streamingID string) bool {
	return f.Process.Stop(streamingID)
}

// Subscribe attaches sink to a StreamingId's broadcast. It never
// returns an error: the fan-out directory drops a stream's entry once
// Close runs, and a subscribe against an id it does not hold (never
// created, or already closed) gets a fresh empty stream, so the sink
// receives the connected record and nothing to replay.
func (f *Facade) Subscribe(streamingID string, sink streamfanout.Sink) (detach func(), err error) {
	return f.Fanout.Subscribe(streamingID, sink), nil
}

// List returns the paginated conversation index.
func (f *Facade) List(q history.Query) (history.Result, error) {
	result, err := f.History.ListConversations(q)
	if err != nil {
		return history.Result{}, newError(CodeInternal, err.Error())
	}
	return result, nil
}

// FetchResponse is the response for GET /api/conversations/:sessionId.
type FetchResponse struct {
	Messages    []history.PersistedMessage `json:"messages"`
	Summary     string                     `json:"summary"`
	ProjectPath string                     `json:"projectPath"`
	Metadata    FetchMetadata              `json:"metadata"`
}

// FetchMetadata carries the digest fields surfaced alongside messages.
type FetchMetadata struct {
	TotalDuration int64  `json:"totalDuration"`
	Model         string `json:"model"`
}

// Fetch returns a conversation's messages, synthesizing an optimistic
// single-message view for an active-but-unpersisted session rather
// than 404ing while the CLI hasn't flushed its log yet.
func (f *Facade) Fetch(sessionID string) (FetchResponse, error) {
	if sessionID == "" {
		return FetchResponse{}, newError(CodeMissingSessionID, "sessionId is required")
	}

	messages, err := f.History.FetchConversation(sessionID)
	if err == nil {
		meta, metaErr := f.History.GetConversationMetadata(sessionID)
		resp := FetchResponse{Messages: messages}
		if metaErr == nil {
			resp.Summary = meta.Summary
			resp.ProjectPath = meta.ProjectPath
			resp.Metadata = FetchMetadata{TotalDuration: meta.TotalDurationMs, Model: meta.Model}
		}
		return resp, nil
	}

	var notFound *history.NotFoundError
	if !errors.As(err, &notFound) {
		return FetchResponse{}, newError(CodeInternal, err.Error())
	}

	optimistic, ok := f.synthesizeOptimisticView(sessionID)
	if !ok {
		return FetchResponse{}, newError(CodeConversationNotFound, fmt.Sprintf("conversation %s not found", sessionID))
	}
	return optimistic, nil
}

func (f *Facade) synthesizeOptimisticView(sessionID string) (FetchResponse, bool) {
	streamingID, ok := f.Tracker.GetStreamingID(sessionID)
	if !ok {
		return FetchResponse{}, false
	}
	ctx, ok := f.Tracker.GetContext(streamingID)
	if !ok {
		return FetchResponse{}, false
	}

	content, _ := json.Marshal(map[string]interface{}{
		"role":    "user",
		"content": ctx.InitialPrompt,
	})

	msg := history.PersistedMessage{
		Type:      "user",
		SessionID: sessionID,
		UUID:      "active-" + sessionID + "-user",
		Message:   content,
		CWD:       ctx.WorkingDirectory,
		Timestamp: ctx.Timestamp,
	}

	return FetchResponse{
		Messages:    []history.PersistedMessage{msg},
		ProjectPath: ctx.WorkingDirectory,
		Metadata:    FetchMetadata{Model: ctx.Model},
	}, true
}

// Export packages a conversation as a self-contained transcript at the
// requested detail level.
func (f *Facade) Export(sessionID string, level history.ExportLevel) (*history.Transcript, error) {
	if sessionID == "" {
		return nil, newError(CodeMissingSessionID, "sessionId is required")
	}
	if level == "" {
		level = history.ExportFull
	}

	transcript, err := f.History.ExportConversation(sessionID, level)
	if err != nil {
		var notFound *history.NotFoundError
		if errors.As(err, &notFound) {
			return nil, newError(CodeConversationNotFound, fmt.Sprintf("conversation %s not found", sessionID))
		}
		return nil, newError(CodeInternal, err.Error())
	}
	return transcript, nil
}

// UpdateSessionInfo applies a partial patch to a session's metadata.
func (f *Facade) UpdateSessionInfo(sessionID string, patch sessioninfo.Patch) (sessioninfo.SessionInfo, error) {
	if sessionID == "" {
		return sessioninfo.SessionInfo{}, newError(CodeMissingSessionID, "sessionId is required")
	}
	updated, err := f.SessionInfo.Update(sessionID, patch)
	if err != nil {
		return sessioninfo.SessionInfo{}, newError(CodeInternal, err.Error())
	}
	return updated, nil
}

// DecidePermission resolves a pending permission request.
func (f *Facade) DecidePermission(id string, decision permission.Decision) (permission.Request, error) {
	req, err := f.Permission.Decide(id, decision)
	if err != nil {
		if errors.Is(err, permission.ErrNotFound) {
			return permission.Request{}, newError(CodeSessionNotFound, err.Error())
		}
		return permission.Request{}, newError(CodeInvalidAction, err.Error())
	}
	return req, nil
}

// WaitForPermissionDecision blocks until id is decided or the
// mediator's configured pending timeout elapses, sparing the caller
// the polling loop GetPending/GetAll otherwise require.
func (f *Facade) WaitForPermissionDecision(ctx context.Context, id string) (permission.Request, error) {
	req, err := f.Permission.WaitForDecisionDefault(ctx, id)
	if err != nil {
		if errors.Is(err, permission.ErrNotFound) {
			return permission.Request{}, newError(CodeSessionNotFound, err.Error())
		}
		return permission.Request{}, newError(CodeInvalidAction, err.Error())
	}
	return req, nil
}

// GetWorkingDirectories returns project paths seen in history, most
// recently updated first, deduplicated.
func (f *Facade) GetWorkingDirectories() ([]string, error) {
	result, err := f.History.ListConversations(history.Query{Limit: 1000, SortBy: history.SortByUpdated, Order: history.OrderDesc})
	if err != nil {
		return nil, newError(CodeInternal, err.Error())
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, cs := range result.Conversations {
		if cs.ProjectPath == "" || seen[cs.ProjectPath] {
			continue
		}
		seen[cs.ProjectPath] = true
		dirs = append(dirs, cs.ProjectPath)
	}
	return dirs, nil
}

// SystemStatus is the response for GET /api/system/status.
type SystemStatus struct {
	Timestamp      time.Time `json:"timestamp"`
	ActiveSessions int       `json:"activeSessions"`
	PendingPermissions int   `json:"pendingPermissions"`
}

// SystemStatus reports a snapshot of live activity.
func (f *Facade) SystemStatus() (SystemStatus, error) {
	pending := f.Permission.GetPending("")
	active := 0
	infos := f.SessionInfo.ListAll()
	for sessionID := range infos {
		if f.Tracker.GetStatus(sessionID) == status.StatusOngoing {
			active++
		}
	}
	return SystemStatus{
		Timestamp:          time.Now(),
		ActiveSessions:     active,
		PendingPermissions: len(pending),
	}, nil
}

