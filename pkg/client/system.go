// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SystemClient wraps the system-status, working-directory, and
// preferences endpoints.
type SystemClient struct {
	c *Client
}

// Status is a snapshot of live server activity.
type Status struct {
	Timestamp          time.Time `json:"timestamp"`
	ActiveSessions     int       `json:"activeSessions"`
	PendingPermissions int       `json:"pendingPermissions"`
}

// Status reports a snapshot of live activity.
func (sc *SystemClient) Status(ctx context.Context) (*Status, error) {
	data, err := sc.c.get(ctx, "/api/system/status")
	if err != nil {
		return nil, err
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &s, nil
}

// WorkingDirectories returns project paths seen in history, most
// recently updated first, deduplicated.
func (sc *SystemClient) WorkingDirectories(ctx context.Context) ([]string, error) {
	data, err := sc.c.get(ctx, "/api/working-directories")
	if err != nil {
		return nil, err
	}
	var result struct {
		WorkingDirectories []string `json:"workingDirectories"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode working directories response: %w", err)
	}
	return result.WorkingDirectories, nil
}

// Preferences is the loosely-typed UI preferences document.
type Preferences map[string]interface{}

// GetPreferences returns the current preferences document.
func (sc *SystemClient) GetPreferences(ctx context.Context) (Preferences, error) {
	data, err := sc.c.get(ctx, "/api/preferences")
	if err != nil {
		return nil, err
	}
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences response: %w", err)
	}
	return prefs, nil
}

// UpdatePreferences merges patch over the existing preferences document.
func (sc *SystemClient) UpdatePreferences(ctx context.Context, patch Preferences) (Preferences, error) {
	data, err := sc.c.putJSON(ctx, "/api/preferences", patch)
	if err != nil {
		return nil, err
	}
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences response: %w", err)
	}
	return prefs, nil
}
