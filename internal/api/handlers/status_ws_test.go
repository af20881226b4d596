// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cui-run/server/internal/events"
	"github.com/cui-run/server/internal/facade"
	"github.com/cui-run/server/internal/history"
	"github.com/cui-run/server/internal/permission"
	"github.com/cui-run/server/internal/preferences"
	"github.com/cui-run/server/internal/process"
	"github.com/cui-run/server/internal/sessioninfo"
	"github.com/cui-run/server/internal/status"
	"github.com/cui-run/server/internal/streamfanout"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestFacadeForHandlers(t *testing.T) (*facade.Facade, events.Bus) {
	t.Helper()
	root := t.TempDir()

	bus := events.NewMemoryBus(events.MemoryBusConfig{})
	t.Cleanup(func() { bus.Close() })

	fanout := streamfanout.New(0)
	tracker := status.New(bus)
	sessionInfoStore := sessioninfo.New(filepath.Join(root, "session-info.json"))
	require.NoError(t, sessionInfoStore.Initialize())
	historyReader := history.New(filepath.Join(root, "projects"), sessionInfoStore, tracker)
	mediator := permission.New(nil, bus)
	prefsStore := preferences.New(filepath.Join(root, "preferences.json"))
	manager := process.New(process.Options{Binary: "claude"}, fanout, tracker, bus)

	return &facade.Facade{
		Process:     manager,
		Fanout:      fanout,
		History:     historyReader,
		Tracker:     tracker,
		SessionInfo: sessionInfoStore,
		Permission:  mediator,
		Preferences: prefsStore,
		Bus:         bus,
	}, bus
}

func TestStatusWebSocket_PushesSnapshotOnSessionEvent(t *testing.T) {
	f, bus := newTestFacadeForHandlers(t)
	handler := NewStatusWebSocketHandler(f)

	srv := httptest.NewServer(http.HandlerFunc(handler.WebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Initial snapshot sent immediately on connect.
	var initial map[string]interface{}
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, bus.Publish(context.Background(), events.Event{
		Type:        events.EventSessionRegistered,
		StreamingID: "stream-1",
		SessionID:   "sess-1",
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pushed map[string]interface{}
	require.NoError(t, conn.ReadJSON(&pushed))
}
