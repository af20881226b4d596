// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sessioninfo

import "time"

// CurrentSchemaVersion is the schema version new/migrated entries are
// brought up to. See migrate.go for the 1->2->3 migration steps.
const CurrentSchemaVersion = 3

// PermissionMode mirrors the CLI's --permission-mode values.
type PermissionMode string

const (
	PermissionModeDefault     PermissionMode = "default"
	PermissionModeAcceptEdits PermissionMode = "accept-edits"
	PermissionModeBypass      PermissionMode = "bypass"
	PermissionModePlan        PermissionMode = "plan"
)

// SessionInfo is the persisted per-session user-editable metadata.
type SessionInfo struct {
	CustomName            string         `json:"custom_name"`
	Pinned                bool           `json:"pinned"`
	Archived              bool           `json:"archived"`
	ContinuationSessionID string         `json:"continuation_session_id"`
	InitialCommitHead     string         `json:"initial_commit_head"`
	PermissionMode        PermissionMode `json:"permission_mode"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	Version               int            `json:"version"`
}

// defaultEntry returns a fresh entry at the current schema version.
func defaultEntry(now time.Time) SessionInfo {
	return SessionInfo{
		PermissionMode: PermissionModeDefault,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        CurrentSchemaVersion,
	}
}

// Patch is a partial update applied over an existing SessionInfo.
// Nil fields are left untouched; non-nil fields overwrite.
type Patch struct {
	CustomName            *string         `json:"custom_name,omitempty"`
	Pinned                *bool           `json:"pinned,omitempty"`
	Archived              *bool           `json:"archived,omitempty"`
	ContinuationSessionID *string         `json:"continuation_session_id,omitempty"`
	InitialCommitHead     *string         `json:"initial_commit_head,omitempty"`
	PermissionMode        *PermissionMode `json:"permission_mode,omitempty"`
}

func (p Patch) apply(base SessionInfo) SessionInfo {
	if p.CustomName != nil {
		base.CustomName = *p.CustomName
	}
	if p.Pinned != nil {
		base.Pinned = *p.Pinned
	}
	if p.Archived != nil {
		base.Archived = *p.Archived
	}
	if p.ContinuationSessionID != nil {
		base.ContinuationSessionID = *p.ContinuationSessionID
	}
	if p.InitialCommitHead != nil {
		base.InitialCommitHead = *p.InitialCommitHead
	}
	if p.PermissionMode != nil {
		base.PermissionMode = *p.PermissionMode
	}
	return base
}

// document is the on-disk shape: { sessions: {...}, metadata: {...} }.
type document struct {
	Sessions map[string]SessionInfo `json:"sessions"`
	Metadata metadata               `json:"metadata"`
}

type metadata struct {
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Stats is the summary returned by Store.Stats.
type Stats struct {
	SessionCount int       `json:"session_count"`
	DBSize       int64     `json:"db_size"`
	LastUpdated  time.Time `json:"last_updated"`
}
