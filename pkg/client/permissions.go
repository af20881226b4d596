// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// PermissionsClient wraps the permission-mediation endpoints.
type PermissionsClient struct {
	c *Client
}

// PermissionRequest mirrors a pending or resolved tool-use approval.
type PermissionRequest struct {
	ID            string          `json:"id"`
	StreamingID   string          `json:"streamingId"`
	ToolName      string          `json:"toolName"`
	ToolInput     json.RawMessage `json:"toolInput"`
	Timestamp     time.Time       `json:"timestamp"`
	Status        string          `json:"status"`
	ModifiedInput json.RawMessage `json:"modifiedInput,omitempty"`
	DenyReason    string          `json:"denyReason,omitempty"`
}

// Notify registers a tool-use approval request against a streaming
// session. Intended for the CLI's permission hook, not typical UI
// clients.
func (pc *PermissionsClient) Notify(ctx context.Context, streamingID, toolName string, toolInput json.RawMessage) (string, error) {
	data, err := pc.c.postJSON(ctx, "/api/permissions/notify", map[string]interface{}{
		"streamingId": streamingID,
		"toolName":    toolName,
		"toolInput":   toolInput,
	})
	if err != nil {
		return "", err
	}
	var result struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode notify response: %w", err)
	}
	return result.ID, nil
}

// List returns permission requests for a streaming session. Set
// pendingOnly to restrict to requests awaiting a decision.
func (pc *PermissionsClient) List(ctx context.Context, streamingID string, pendingOnly bool) ([]PermissionRequest, error) {
	q := url.Values{}
	if streamingID != "" {
		q.Set("streamingId", streamingID)
	}
	if pendingOnly {
		q.Set("status", "pending")
	}
	path := "/api/permissions"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	data, err := pc.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var requests []PermissionRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("decode permissions list response: %w", err)
	}
	return requests, nil
}

// Wait blocks until id is decided or the server's configured pending
// timeout elapses, as a request-scoped replacement for polling List
// with pendingOnly set.
func (pc *PermissionsClient) Wait(ctx context.Context, id string) (*PermissionRequest, error) {
	data, err := pc.c.get(ctx, "/api/permissions/"+id+"/wait")
	if err != nil {
		return nil, err
	}
	var result PermissionRequest
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode wait response: %w", err)
	}
	return &result, nil
}

// Decide resolves a pending permission request. Set approved false and
// denyReason to reject, or approved true and modifiedInput to approve
// with an amended tool input.
func (pc *PermissionsClient) Decide(ctx context.Context, id string, approved bool, modifiedInput json.RawMessage, denyReason string) (*PermissionRequest, error) {
	data, err := pc.c.postJSON(ctx, "/api/permissions/"+id+"/decision", map[string]interface{}{
		"approved":      approved,
		"modifiedInput": modifiedInput,
		"denyReason":    denyReason,
	})
	if err != nil {
		return nil, err
	}
	var result PermissionRequest
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode decision response: %w", err)
	}
	return &result, nil
}
