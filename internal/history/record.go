// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package history reads the CLI's on-disk per-project conversation log
// layout: one directory per project under a configurable root, each
// holding one or more append-only .jsonl files that interleave message
// and summary records across any number of session ids.
package history

import (
	"encoding/json"
	"time"
)

// rawLine is the superset of fields a line in a project's .jsonl file
// may carry. A line is either a message record (type is "init",
// "user", "assistant" or "result") or a summary record (type
// "summary").
type rawLine struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"sessionId"`
	UUID           string          `json:"uuid"`
	ParentUUID     string          `json:"parentUuid,omitempty"`
	LeafUUID       string          `json:"leafUuid,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Message        json.RawMessage `json:"message,omitempty"`
	CWD            string          `json:"cwd,omitempty"`
	GitBranch      string          `json:"gitBranch,omitempty"`
	Version        string          `json:"version,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	DurationMs     int64           `json:"durationMs,omitempty"`
	IsSidechain    bool            `json:"isSidechain,omitempty"`
	Model          string          `json:"model,omitempty"`
	PermissionMode string          `json:"permissionMode,omitempty"`
}

// PersistedMessage is a conversation record as the CLI wrote it, plus
// its envelope fields.
type PersistedMessage struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"sessionId"`
	UUID           string          `json:"uuid"`
	ParentUUID     string          `json:"parentUuid,omitempty"`
	Message        json.RawMessage `json:"message,omitempty"`
	CWD            string          `json:"cwd,omitempty"`
	GitBranch      string          `json:"gitBranch,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	DurationMs     int64           `json:"durationMs,omitempty"`
	IsSidechain    bool            `json:"isSidechain,omitempty"`
	Model          string          `json:"model,omitempty"`
	PermissionMode string          `json:"permissionMode,omitempty"`
}

func (r rawLine) isSummary() bool {
	return r.Type == "summary"
}

func (r rawLine) toPersistedMessage() PersistedMessage {
	return PersistedMessage{
		Type:           r.Type,
		SessionID:      r.SessionID,
		UUID:           r.UUID,
		ParentUUID:     r.ParentUUID,
		Message:        r.Message,
		CWD:            r.CWD,
		GitBranch:      r.GitBranch,
		Timestamp:      r.Timestamp,
		DurationMs:     r.DurationMs,
		IsSidechain:    r.IsSidechain,
		Model:          r.Model,
		PermissionMode: r.PermissionMode,
	}
}
