// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// WriteSessionFile writes a project's .jsonl log file for one session,
// in the CLI's on-disk format. It exists to build realistic fixtures in
// tests and tools; the reader itself never writes logs — only the CLI
// child does.
func WriteSessionFile(projectsRoot, projectPath, sessionID, model string, messages []FixtureMessage) (string, error) {
	dir := filepath.Join(projectsRoot, encodeProjectPath(projectPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create project dir: %w", err)
	}

	path := filepath.Join(dir, sessionID+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create jsonl file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	var prevUUID string
	var lastAssistantUUID string
	for _, msg := range messages {
		lineUUID := uuid.New().String()
		msgJSON, err := json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: msg.Role, Content: msg.Text})
		if err != nil {
			return "", fmt.Errorf("marshal message: %w", err)
		}

		ln := rawLine{
			Type:       msg.Role,
			SessionID:  sessionID,
			UUID:       lineUUID,
			ParentUUID: prevUUID,
			Message:    json.RawMessage(msgJSON),
			CWD:        projectPath,
			Timestamp:  msg.Timestamp,
			DurationMs: msg.DurationMs,
			Model:      model,
		}
		if err := enc.Encode(ln); err != nil {
			return "", fmt.Errorf("write jsonl line: %w", err)
		}
		prevUUID = lineUUID
		if msg.Role == "assistant" {
			lastAssistantUUID = lineUUID
		}
	}

	if lastAssistantUUID != "" {
		summary := rawLine{
			Type:      "summary",
			LeafUUID:  lastAssistantUUID,
			Summary:   sessionID + " summary",
			Timestamp: time.Now(),
		}
		if err := enc.Encode(summary); err != nil {
			return "", fmt.Errorf("write summary line: %w", err)
		}
	}

	return path, nil
}

// FixtureMessage is a simplified message used by WriteSessionFile.
type FixtureMessage struct {
	Role       string
	Text       string
	Timestamp  time.Time
	DurationMs int64
}
