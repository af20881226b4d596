// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"time"

	"github.com/cui-run/server/internal/sessioninfo"
	"github.com/cui-run/server/internal/status"
)

// ConversationSummary is a history-level digest of one session.
type ConversationSummary struct {
	SessionID             string               `json:"sessionId"`
	ProjectPath           string               `json:"projectPath"`
	Summary               string               `json:"summary"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
	MessageCount          int                  `json:"messageCount"`
	TotalDurationMs        int64                `json:"totalDurationMs"`
	Model                 string               `json:"model"`
	Status                status.Status        `json:"status"`
	StreamingID           string               `json:"streamingId,omitempty"`
	Pinned                bool                 `json:"pinned"`
	Archived              bool                 `json:"archived"`
	ContinuationSessionID string               `json:"continuationSessionId,omitempty"`
	CustomName            string               `json:"customName,omitempty"`
	PermissionMode        sessioninfo.PermissionMode `json:"permissionMode"`
}

// SortField selects which timestamp ConversationSummary is ordered by.
type SortField string

const (
	SortByCreated SortField = "created"
	SortByUpdated SortField = "updated"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Query filters and paginates listConversations.
type Query struct {
	Limit           int
	Offset          int
	ProjectPath     string
	SortBy          SortField
	Order           SortOrder
	Archived        *bool
	Pinned          *bool
	HasContinuation *bool
}

// Result is the paginated listConversations response.
type Result struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}

// ConversationMetadata is returned by getConversationMetadata; the same
// digest listConversations produces for a single session.
type ConversationMetadata = ConversationSummary
