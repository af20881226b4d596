// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package status tracks which CLI sessions are currently live and maps
// between the ephemeral StreamingId minted at spawn and the SessionId
// the CLI assigns once its init record arrives.
package status

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cui-run/server/internal/events"
)

// Status is the live/ongoing state of a session.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Context is the information captured at spawn, used to synthesize an
// optimistic conversation view before the CLI has flushed anything to
// disk.
type Context struct {
	InitialPrompt   string
	WorkingDirectory string
	Model           string
	Timestamp       time.Time
}

// Tracker maintains the streamingId<->sessionId mapping for live
// sessions. All mutation and reads are serialized by a single lock.
type Tracker struct {
	mu sync.Mutex

	// streamingToSession holds every streamingId seen since process
	// start, whether or not its process is still alive, so getSessionId
	// keeps working after a session completes.
	streamingToSession map[string]string
	// sessionToStreaming holds an entry only while the session is
	// ongoing; unregister removes it.
	sessionToStreaming map[string]string
	contexts           map[string]Context

	bus events.Bus
}

// New creates a Tracker. bus may be nil, in which case lifecycle events
// are not published.
func New(bus events.Bus) *Tracker {
	return &Tracker{
		streamingToSession: make(map[string]string),
		sessionToStreaming: make(map[string]string),
		contexts:           make(map[string]Context),
		bus:                bus,
	}
}

// Register records that streamingId has resolved to sessionId and is
// now ongoing. Called once the CLI's init record is seen.
func (t *Tracker) Register(streamingID, sessionID string, ctx Context) {
	t.mu.Lock()
	t.streamingToSession[streamingID] = sessionID
	t.sessionToStreaming[sessionID] = streamingID
	t.contexts[streamingID] = ctx
	t.mu.Unlock()

	t.publish(events.EventSessionRegistered, streamingID, sessionID)
}

// Unregister marks a streamingId's session no longer ongoing. The
// streamingId->sessionId mapping is retained so GetSessionId keeps
// resolving after completion; only the reverse mapping (which encodes
// liveness) is removed.
func (t *Tracker) Unregister(streamingID string) {
	t.mu.Lock()
	sessionID, ok := t.streamingToSession[streamingID]
	if ok {
		if t.sessionToStreaming[sessionID] == streamingID {
			delete(t.sessionToStreaming, sessionID)
		}
	}
	delete(t.contexts, streamingID)
	t.mu.Unlock()

	if ok {
		t.publish(events.EventSessionUnregistered, streamingID, sessionID)
	}
}

// GetStatus reports whether sessionID is currently ongoing.
func (t *Tracker) GetStatus(sessionID string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sessionToStreaming[sessionID]; ok {
		return StatusOngoing
	}
	return StatusCompleted
}

// GetStreamingID returns the live streamingId for sessionID, if any.
func (t *Tracker) GetStreamingID(sessionID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.sessionToStreaming[sessionID]
	return id, ok
}

// GetSessionID returns the sessionId streamingID resolved to, if the
// init record has been observed yet.
func (t *Tracker) GetSessionID(streamingID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.streamingToSession[streamingID]
	return id, ok
}

// GetContext returns the spawn-time context recorded for streamingID.
func (t *Tracker) GetContext(streamingID string) (Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ctx, ok := t.contexts[streamingID]
	return ctx, ok
}

func (t *Tracker) publish(eventType, streamingID, sessionID string) {
	if t.bus == nil {
		return
	}
	evt := events.Event{
		Type:        eventType,
		Timestamp:   time.Now(),
		StreamingID: streamingID,
		SessionID:   sessionID,
		Payload:     map[string]interface{}{},
	}
	if err := t.bus.Publish(context.Background(), evt); err != nil {
		log.Printf("status: failed to publish %s: %v", eventType, err)
	}
}
