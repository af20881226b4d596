// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"testing"

	"github.com/cui-run/server/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)


func TestTracker_RegisterUnregister(t *testing.T) {
	tr := New(nil)

	_, ok := tr.GetSessionID("stream-1")
	assert.False(t, ok)
	assert.Equal(t, StatusCompleted, tr.GetStatus("sess-1"))

	tr.Register("stream-1", "sess-1", Context{Model: "claude"})

	sid, ok := tr.GetSessionID("stream-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", sid)
	assert.Equal(t, StatusOngoing, tr.GetStatus("sess-1"))

	streamID, ok := tr.GetStreamingID("sess-1")
	require.True(t, ok)
	assert.Equal(t, "stream-1", streamID)

	ctx, ok := tr.GetContext("stream-1")
	require.True(t, ok)
	assert.Equal(t, "claude", ctx.Model)

	tr.Unregister("stream-1")
	assert.Equal(t, StatusCompleted, tr.GetStatus("sess-1"))
	_, ok = tr.GetStreamingID("sess-1")
	assert.False(t, ok)

	// streamingId -> sessionId mapping survives unregister.
	sid, ok = tr.GetSessionID("stream-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", sid)
}

func TestTracker_ResumeReusesSessionWithNewStreamingID(t *testing.T) {
	tr := New(nil)
	tr.Register("stream-1", "sess-1", Context{})
	tr.Unregister("stream-1")

	tr.Register("stream-2", "sess-1", Context{})
	streamID, ok := tr.GetStreamingID("sess-1")
	require.True(t, ok)
	assert.Equal(t, "stream-2", streamID)
}

func TestTracker_EmitsEvents(t *testing.T) {
	bus := events.NewMemoryBus(events.MemoryBusConfig{})
	defer bus.Close()

	tr := New(bus)
	tr.Register("stream-1", "sess-1", Context{})
	tr.Unregister("stream-1")

	hist, err := bus.History(events.Filter{Types: []string{"session.*"}})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, events.EventSessionRegistered, hist[0].Type)
	assert.Equal(t, events.EventSessionUnregistered, hist[1].Type)
}
