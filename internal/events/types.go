// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the event bus that decouples the Status
// Tracker, Process Manager and Facade from each other and from any
// listeners that want to react to session lifecycle changes (e.g. a
// conversation-listing cache). It is an explicit, injected dependency —
// never a package-level singleton.
package events

import (
	"context"
	"time"
)

// Event represents an immutable event record.
type Event struct {
	ID          string                 `json:"id"`
	Version     string                 `json:"version"`
	Type        string                 `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	StreamingID string                 `json:"streaming_id,omitempty"`
	SessionID   string                 `json:"session_id,omitempty"`
	Payload     map[string]interface{} `json:"payload"`
}

// Handler processes received events.
type Handler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// Filter for querying event history.
type Filter struct {
	Types     []string // Event types to match (supports wildcards)
	SessionID string   // Filter by CLI session id
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Bus is the core event pub/sub system.
type Bus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler Handler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with a buffered channel.
	SubscribeAsync(pattern string, handler Handler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter Filter) ([]Event, error)

	// Close shuts down the event bus gracefully.
	Close() error
}

// Event types of the core. The status tracker publishes the
// session.registered and session.unregistered events and the permission
// mediator the permission.* events; no component publishes
// session.completed.
const (
	EventSessionRegistered   = "session.registered"
	EventSessionUnregistered = "session.unregistered"
	EventSessionCompleted    = "session.completed"
	EventPermissionRequested = "permission.requested"
	EventPermissionDecided   = "permission.decided"
)
