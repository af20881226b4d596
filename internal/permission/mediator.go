// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package permission mediates tool-use approvals between the CLI's
// control-plane helper and the user's browser. The helper calls Notify
// and then long-polls GetPending until its request is no longer
// pending; the browser calls Decide to resolve it.
package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cui-run/server/internal/events"
	"github.com/google/uuid"
)

// Status is a PermissionRequest's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// ErrAlreadyDecided is returned by Decide when the request is already
// terminal and the caller's decision would change the outcome.
var ErrAlreadyDecided = errors.New("permission request already decided")

// ErrNotFound is returned when an id has no matching request.
var ErrNotFound = errors.New("permission request not found")

// Request is a single tool-use approval request.
type Request struct {
	ID            string          `json:"id"`
	StreamingID   string          `json:"streamingId"`
	ToolName      string          `json:"toolName"`
	ToolInput     json.RawMessage `json:"toolInput"`
	Timestamp     time.Time       `json:"timestamp"`
	Status        Status          `json:"status"`
	ModifiedInput json.RawMessage `json:"modifiedInput,omitempty"`
	DenyReason    string          `json:"denyReason,omitempty"`
}

// Decision is the browser's verdict on a pending request.
type Decision struct {
	Approved      bool
	ModifiedInput json.RawMessage
	DenyReason    string
}

// Notifier publishes a permission_request record to a StreamingId's
// stream. Satisfied by *streamfanout.Fanout via a thin adapter so this
// package doesn't import it directly.
type Notifier interface {
	PublishPermissionRequest(streamingID string, req Request)
}

// Mediator tracks every PermissionRequest in memory. Completed requests
// are retained for audit; the store never expires entries itself — the
// long-poll caller applies its own timeout.
type Mediator struct {
	mu       sync.Mutex
	requests map[string]*Request
	waiters  map[string][]chan Request

	notifier       Notifier
	bus            events.Bus
	defaultTimeout time.Duration
}

// New creates a Mediator. notifier and bus may be nil. The
// default-timeout variant of WaitForDecision falls back to one hour
// until SetPendingTimeout is called.
func New(notifier Notifier, bus events.Bus) *Mediator {
	return &Mediator{
		requests:       make(map[string]*Request),
		waiters:        make(map[string][]chan Request),
		notifier:       notifier,
		bus:            bus,
		defaultTimeout: time.Hour,
	}
}

// SetPendingTimeout configures how long the default-timeout variant of
// WaitForDecision waits before giving up. Callers own reading this
// value from their own configuration; the mediator has no config
// dependency of its own.
func (m *Mediator) SetPendingTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultTimeout = d
}

// WaitForDecision blocks until id is decided, ctx is cancelled, or
// timeout elapses, whichever comes first. It replaces the helper-side
// polling loop with a single request-scoped wait; the polling
// endpoints (GetPending/GetAll) remain available for callers that still
// want them.
func (m *Mediator) WaitForDecision(ctx context.Context, id string, timeout time.Duration) (Request, error) {
	m.mu.Lock()
	req, ok := m.requests[id]
	if !ok {
		m.mu.Unlock()
		return Request{}, ErrNotFound
	}
	if req.Status != StatusPending {
		result := *req
		m.mu.Unlock()
		return result, nil
	}
	ch := make(chan Request, 1)
	m.waiters[id] = append(m.waiters[id], ch)
	m.mu.Unlock()

	select {
	case result := <-ch:
		return result, nil
	case <-time.After(timeout):
		return Request{}, fmt.Errorf("timed out waiting for decision on request %s", id)
	case <-ctx.Done():
		return Request{}, ctx.Err()
	}
}

// WaitForDecisionDefault waits using the mediator's configured pending
// timeout instead of a caller-supplied one.
func (m *Mediator) WaitForDecisionDefault(ctx context.Context, id string) (Request, error) {
	m.mu.Lock()
	timeout := m.defaultTimeout
	m.mu.Unlock()
	return m.WaitForDecision(ctx, id, timeout)
}

// Notify records a new pending request and returns its id.
func (m *Mediator) Notify(streamingID, toolName string, toolInput json.RawMessage) string {
	req := &Request{
		ID:          uuid.New().String(),
		StreamingID: streamingID,
		ToolName:    toolName,
		ToolInput:   toolInput,
		Timestamp:   time.Now(),
		Status:      StatusPending,
	}

	m.mu.Lock()
	m.requests[req.ID] = req
	m.mu.Unlock()

	if m.notifier != nil {
		m.notifier.PublishPermissionRequest(streamingID, *req)
	}
	m.publish(events.EventPermissionRequested, *req)

	return req.ID
}

// GetPending returns every pending request, optionally filtered by
// streamingID (empty string means all streams).
func (m *Mediator) GetPending(streamingID string) []Request {
	return m.filter(streamingID, &StatusPending)
}

// GetAll returns every request regardless of status, optionally
// filtered by streamingID.
func (m *Mediator) GetAll(streamingID string) []Request {
	return m.filter(streamingID, nil)
}

func (m *Mediator) filter(streamingID string, status *Status) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Request
	for _, req := range m.requests {
		if streamingID != "" && req.StreamingID != streamingID {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		out = append(out, *req)
	}
	return out
}

// Get returns a single request by id.
func (m *Mediator) Get(id string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return *req, nil
}

// Decide flips a pending request to its terminal state. Only a pending
// request may transition; a second call with a differing verdict
// observes the already-terminal state and fails with
// ErrAlreadyDecided, never silently overwriting a prior decision. A
// second call with the same verdict returns the recorded request.
func (m *Mediator) Decide(id string, decision Decision) (Request, error) {
	m.mu.Lock()
	req, ok := m.requests[id]
	if !ok {
		m.mu.Unlock()
		return Request{}, ErrNotFound
	}
	if req.Status != StatusPending {
		if (req.Status == StatusApproved) == decision.Approved {
			result := *req
			m.mu.Unlock()
			return result, nil
		}
		m.mu.Unlock()
		return Request{}, fmt.Errorf("%w: request %s is already %s", ErrAlreadyDecided, id, req.Status)
	}

	if decision.Approved {
		req.Status = StatusApproved
		req.ModifiedInput = decision.ModifiedInput
	} else {
		req.Status = StatusDenied
		req.DenyReason = decision.DenyReason
	}
	result := *req
	waiters := m.waiters[id]
	delete(m.waiters, id)
	m.mu.Unlock()

	for _, ch := range waiters {
		ch <- result
	}

	m.publish(events.EventPermissionDecided, result)
	return result, nil
}

func (m *Mediator) publish(eventType string, req Request) {
	if m.bus == nil {
		return
	}
	evt := events.Event{
		Type:        eventType,
		Timestamp:   time.Now(),
		StreamingID: req.StreamingID,
		Payload: map[string]interface{}{
			"id":       req.ID,
			"toolName": req.ToolName,
			"status":   string(req.Status),
		},
	}
	if err := m.bus.Publish(context.Background(), evt); err != nil {
		log.Printf("permission: failed to publish %s: %v", eventType, err)
	}
}
