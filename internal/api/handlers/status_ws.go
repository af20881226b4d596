// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cui-run/server/internal/events"
	"github.com/cui-run/server/internal/facade"
	"github.com/gorilla/websocket"
)

var statusUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StatusWebSocketHandler pushes a SystemStatus snapshot to the browser
// every time the event bus emits a session.* event, an additive feed
// alongside the polling GET /api/system/status route rather than a
// replacement for it.
type StatusWebSocketHandler struct {
	facade *facade.Facade
}

// NewStatusWebSocketHandler wires the handler to facade.
func NewStatusWebSocketHandler(f *facade.Facade) *StatusWebSocketHandler {
	return &StatusWebSocketHandler{facade: f}
}

// WebSocket handles GET /api/system/status/ws.
func (h *StatusWebSocketHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := h.sendSnapshot(conn); err != nil {
		return
	}

	notify := make(chan struct{}, 1)
	subID, err := h.facade.Bus.SubscribeAsync("session.*", func(ctx context.Context, event events.Event) error {
		select {
		case notify <- struct{}{}:
		default:
		}
		return nil
	}, 16)
	if err != nil {
		log.Printf("system status ws: subscribe: %v", err)
		return
	}
	defer h.facade.Bus.Unsubscribe(subID)

	// Keepalive ping in case no session event ever arrives, so idle
	// browser connections still detect a dead link.
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-notify:
			if err := h.sendSnapshot(conn); err != nil {
				return
			}
		case <-keepalive.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (h *StatusWebSocketHandler) sendSnapshot(conn *websocket.Conn) error {
	snapshot, err := h.facade.SystemStatus()
	if err != nil {
		log.Printf("system status: %v", err)
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(snapshot)
}
