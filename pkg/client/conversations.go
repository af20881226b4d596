// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ConversationsClient wraps the conversation lifecycle and history
// endpoints.
type ConversationsClient struct {
	c *Client
}

// StartRequest starts a fresh CLI conversation.
type StartRequest struct {
	WorkingDirectory string   `json:"workingDirectory"`
	InitialPrompt    string   `json:"initialPrompt"`
	Model            string   `json:"model,omitempty"`
	AllowedTools     []string `json:"allowedTools,omitempty"`
	DisallowedTools  []string `json:"disallowedTools,omitempty"`
	SystemPrompt     string   `json:"systemPrompt,omitempty"`
	PermissionMode   string   `json:"permissionMode,omitempty"`
}

// ResumeRequest continues a prior conversation.
type ResumeRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// StartResponse is returned by both Start and Resume.
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

// Start spawns a fresh CLI conversation.
func (cc *ConversationsClient) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	data, err := cc.c.postJSON(ctx, "/api/conversations/start", req)
	if err != nil {
		return nil, err
	}
	var resp StartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode start response: %w", err)
	}
	return &resp, nil
}

// Resume continues a prior conversation by session id.
func (cc *ConversationsClient) Resume(ctx context.Context, req ResumeRequest) (*StartResponse, error) {
	data, err := cc.c.postJSON(ctx, "/api/conversations/resume", req)
	if err != nil {
		return nil, err
	}
	var resp StartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode resume response: %w", err)
	}
	return &resp, nil
}

// Stop requests a live child to terminate, returning whether a live
// stream was actually found and signaled.
func (cc *ConversationsClient) Stop(ctx context.Context, streamingID string) (bool, error) {
	data, err := cc.c.postJSON(ctx, "/api/conversations/"+streamingID+"/stop", struct{}{})
	if err != nil {
		return false, err
	}
	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return false, fmt.Errorf("decode stop response: %w", err)
	}
	return result.Success, nil
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Limit           int
	Offset          int
	ProjectPath     string
	SortBy          string // "created" or "updated"
	Order           string // "asc" or "desc"
	Archived        *bool
	Pinned          *bool
	HasContinuation *bool
}

// ConversationSummary is a single row of the conversation index.
type ConversationSummary struct {
	SessionID             string    `json:"sessionId"`
	ProjectPath           string    `json:"projectPath"`
	Summary               string    `json:"summary"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
	MessageCount          int       `json:"messageCount"`
	TotalDurationMs       int64     `json:"totalDurationMs"`
	Model                 string    `json:"model"`
	Status                string    `json:"status"`
	StreamingID           string    `json:"streamingId,omitempty"`
	Pinned                bool      `json:"pinned"`
	Archived              bool      `json:"archived"`
	ContinuationSessionID string    `json:"continuationSessionId,omitempty"`
	CustomName            string    `json:"customName,omitempty"`
	PermissionMode        string    `json:"permissionMode"`
}

// ListResult is the paginated response from List.
type ListResult struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}

// List returns the paginated conversation index.
func (cc *ConversationsClient) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.ProjectPath != "" {
		q.Set("projectPath", opts.ProjectPath)
	}
	if opts.SortBy != "" {
		q.Set("sortBy", opts.SortBy)
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	if opts.Archived != nil {
		q.Set("archived", strconv.FormatBool(*opts.Archived))
	}
	if opts.Pinned != nil {
		q.Set("pinned", strconv.FormatBool(*opts.Pinned))
	}
	if opts.HasContinuation != nil {
		q.Set("hasContinuation", strconv.FormatBool(*opts.HasContinuation))
	}

	path := "/api/conversations"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	data, err := cc.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var result ListResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return &result, nil
}

// FetchMetadata carries the digest fields alongside Messages.
type FetchMetadata struct {
	TotalDuration int64  `json:"totalDuration"`
	Model         string `json:"model"`
}

// FetchResult is the response from Fetch.
type FetchResult struct {
	Messages    []json.RawMessage `json:"messages"`
	Summary     string            `json:"summary"`
	ProjectPath string            `json:"projectPath"`
	Metadata    FetchMetadata     `json:"metadata"`
}

// Fetch returns a conversation's persisted (or optimistically
// synthesized, if still active) messages.
func (cc *ConversationsClient) Fetch(ctx context.Context, sessionID string) (*FetchResult, error) {
	data, err := cc.c.get(ctx, "/api/conversations/"+sessionID)
	if err != nil {
		return nil, err
	}
	var result FetchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode fetch response: %w", err)
	}
	return &result, nil
}

// UpdatePatch is a partial update to a session's metadata; nil fields
// are left unchanged.
type UpdatePatch struct {
	CustomName            *string `json:"custom_name,omitempty"`
	Pinned                *bool   `json:"pinned,omitempty"`
	Archived              *bool   `json:"archived,omitempty"`
	ContinuationSessionID *string `json:"continuation_session_id,omitempty"`
	InitialCommitHead     *string `json:"initial_commit_head,omitempty"`
	PermissionMode        *string `json:"permission_mode,omitempty"`
}

// SessionInfo is the stored metadata document for a session.
type SessionInfo struct {
	CustomName            string    `json:"custom_name"`
	Pinned                bool      `json:"pinned"`
	Archived              bool      `json:"archived"`
	ContinuationSessionID string    `json:"continuation_session_id"`
	InitialCommitHead     string    `json:"initial_commit_head"`
	PermissionMode        string    `json:"permission_mode"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	Version               int       `json:"version"`
}

// TranscriptSource records where an exported transcript came from.
type TranscriptSource struct {
	SessionID   string    `json:"sessionId"`
	ProjectPath string    `json:"projectPath"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TranscriptStats summarizes an exported transcript's contents.
type TranscriptStats struct {
	MessageCount   int `json:"messageCount"`
	UserTurns      int `json:"userTurns"`
	AssistantTurns int `json:"assistantTurns"`
}

// Transcript is a self-contained export of a conversation.
type Transcript struct {
	Schema     string            `json:"schema"`
	ExportedAt time.Time         `json:"exportedAt"`
	Source     TranscriptSource  `json:"source"`
	Messages   []json.RawMessage `json:"messages"`
	Stats      TranscriptStats   `json:"stats"`
}

// Export packages a conversation as a transcript. level is "full" or
// "summary"; an empty level defaults to "full".
func (cc *ConversationsClient) Export(ctx context.Context, sessionID, level string) (*Transcript, error) {
	path := "/api/conversations/" + sessionID + "/export"
	if level != "" {
		path += "?level=" + url.QueryEscape(level)
	}

	data, err := cc.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("decode export response: %w", err)
	}
	return &transcript, nil
}

// Update applies patch to a session's metadata.
func (cc *ConversationsClient) Update(ctx context.Context, sessionID string, patch UpdatePatch) (*SessionInfo, error) {
	data, err := cc.c.putJSON(ctx, "/api/conversations/"+sessionID+"/update", patch)
	if err != nil {
		return nil, err
	}
	var info SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode update response: %w", err)
	}
	return &info, nil
}
