// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package facade

import (
	"encoding/json"
	"time"

	"github.com/cui-run/server/internal/permission"
	"github.com/cui-run/server/internal/streamfanout"
)

// fanoutNotifier adapts a *streamfanout.Fanout to permission.Notifier
// so the Permission Mediator can push permission_request records onto
// a session's stream without importing streamfanout directly.
type fanoutNotifier struct {
	fanout *streamfanout.Fanout
}

// NewFanoutNotifier wires fanout as the delivery mechanism for
// permission requests.
func NewFanoutNotifier(fanout *streamfanout.Fanout) permission.Notifier {
	return &fanoutNotifier{fanout: fanout}
}

type permissionRequestRecord struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	ToolName  string          `json:"toolName"`
	ToolInput json.RawMessage `json:"toolInput,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (n *fanoutNotifier) PublishPermissionRequest(streamingID string, req permission.Request) {
	record, err := json.Marshal(permissionRequestRecord{
		Type:      "permission_request",
		ID:        req.ID,
		ToolName:  req.ToolName,
		ToolInput: req.ToolInput,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		return
	}
	n.fanout.Publish(streamingID, record)
}
