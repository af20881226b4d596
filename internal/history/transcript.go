// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import "time"

// ExportLevel controls how much detail ExportConversation includes.
type ExportLevel string

const (
	// ExportFull includes every message verbatim.
	ExportFull ExportLevel = "full"
	// ExportSummary drops every message's content payload (text and
	// tool inputs/outputs alike), keeping only the type and envelope
	// fields.
	ExportSummary ExportLevel = "summary"
)

// TranscriptSchema identifies the export document's shape.
const TranscriptSchema = "cui.transcript.v1"

// Transcript is the full export format for a conversation.
type Transcript struct {
	Schema     string             `json:"schema"`
	ExportedAt time.Time          `json:"exportedAt"`
	Source     TranscriptSource   `json:"source"`
	Messages   []PersistedMessage `json:"messages"`
	Stats      TranscriptStats    `json:"stats"`
}

// TranscriptSource records where a transcript came from.
type TranscriptSource struct {
	SessionID   string    `json:"sessionId"`
	ProjectPath string    `json:"projectPath"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TranscriptStats summarizes a transcript's contents.
type TranscriptStats struct {
	MessageCount   int `json:"messageCount"`
	UserTurns      int `json:"userTurns"`
	AssistantTurns int `json:"assistantTurns"`
}

// ExportConversation fetches a conversation and packages it as a
// Transcript at the requested detail level.
func (r *Reader) ExportConversation(sessionID string, level ExportLevel) (*Transcript, error) {
	messages, err := r.FetchConversation(sessionID)
	if err != nil {
		return nil, err
	}
	meta, err := r.GetConversationMetadata(sessionID)
	if err != nil {
		return nil, err
	}

	if level == ExportSummary {
		messages = summarizeMessages(messages)
	}

	return &Transcript{
		Schema:     TranscriptSchema,
		ExportedAt: time.Now(),
		Source: TranscriptSource{
			SessionID:   sessionID,
			ProjectPath: meta.ProjectPath,
			CreatedAt:   meta.CreatedAt,
		},
		Messages: messages,
		Stats:    computeStats(messages),
	}, nil
}

func computeStats(messages []PersistedMessage) TranscriptStats {
	stats := TranscriptStats{MessageCount: len(messages)}
	for _, m := range messages {
		switch m.Type {
		case "user":
			stats.UserTurns++
		case "assistant":
			stats.AssistantTurns++
		}
	}
	return stats
}

// summarizeMessages strips message bodies down to their type and
// envelope, dropping the raw content payload (which may carry tool
// inputs/outputs the caller asked to omit).
func summarizeMessages(messages []PersistedMessage) []PersistedMessage {
	out := make([]PersistedMessage, len(messages))
	for i, m := range messages {
		out[i] = PersistedMessage{
			Type:        m.Type,
			SessionID:   m.SessionID,
			UUID:        m.UUID,
			ParentUUID:  m.ParentUUID,
			CWD:         m.CWD,
			Timestamp:   m.Timestamp,
			DurationMs:  m.DurationMs,
			IsSidechain: m.IsSidechain,
			Model:       m.Model,
		}
	}
	return out
}
