// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cui-run/server/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	published []Request
}

func (n *recordingNotifier) PublishPermissionRequest(streamingID string, req Request) {
	n.published = append(n.published, req)
}

func TestMediator_NotifyThenGetPending(t *testing.T) {
	notifier := &recordingNotifier{}
	m := New(notifier, nil)

	id := m.Notify("stream-1", "Bash", json.RawMessage(`{"command":"ls"}`))
	assert.NotEmpty(t, id)
	require.Len(t, notifier.published, 1)
	assert.Equal(t, StatusPending, notifier.published[0].Status)

	pending := m.GetPending("stream-1")
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)

	assert.Empty(t, m.GetPending("other-stream"))
}

func TestMediator_Decide_ApprovedRemovesFromPending(t *testing.T) {
	m := New(nil, nil)
	id := m.Notify("stream-1", "Bash", nil)

	result, err := m.Decide(id, Decision{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, result.Status)

	assert.Empty(t, m.GetPending("stream-1"))
	all := m.GetAll("stream-1")
	require.Len(t, all, 1)
	assert.Equal(t, StatusApproved, all[0].Status)
}

func TestMediator_Decide_Denied(t *testing.T) {
	m := New(nil, nil)
	id := m.Notify("stream-1", "Bash", nil)

	result, err := m.Decide(id, Decision{Approved: false, DenyReason: "not allowed"})
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, result.Status)
	assert.Equal(t, "not allowed", result.DenyReason)
}

func TestMediator_Decide_SecondCallRejected(t *testing.T) {
	m := New(nil, nil)
	id := m.Notify("stream-1", "Bash", nil)

	_, err := m.Decide(id, Decision{Approved: true})
	require.NoError(t, err)

	_, err = m.Decide(id, Decision{Approved: false})
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestMediator_Decide_UnknownID(t *testing.T) {
	m := New(nil, nil)
	_, err := m.Decide("nonexistent", Decision{Approved: true})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMediator_WaitForDecision_ReturnsOnDecide(t *testing.T) {
	m := New(nil, nil)
	id := m.Notify("stream-1", "Bash", nil)

	done := make(chan Request, 1)
	go func() {
		result, err := m.WaitForDecision(context.Background(), id, time.Second)
		require.NoError(t, err)
		done <- result
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := m.Decide(id, Decision{Approved: true})
	require.NoError(t, err)

	select {
	case result := <-done:
		assert.Equal(t, StatusApproved, result.Status)
	case <-time.After(time.Second):
		t.Fatal("WaitForDecision did not return after Decide")
	}
}

func TestMediator_WaitForDecision_TimesOut(t *testing.T) {
	m := New(nil, nil)
	id := m.Notify("stream-1", "Bash", nil)

	_, err := m.WaitForDecision(context.Background(), id, 20*time.Millisecond)
	require.Error(t, err)
}

func TestMediator_WaitForDecision_AlreadyDecidedReturnsImmediately(t *testing.T) {
	m := New(nil, nil)
	id := m.Notify("stream-1", "Bash", nil)
	_, err := m.Decide(id, Decision{Approved: true})
	require.NoError(t, err)

	result, err := m.WaitForDecision(context.Background(), id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, result.Status)
}

func TestMediator_WaitForDecisionDefault_UsesConfiguredTimeout(t *testing.T) {
	m := New(nil, nil)
	m.SetPendingTimeout(20 * time.Millisecond)
	id := m.Notify("stream-1", "Bash", nil)

	_, err := m.WaitForDecisionDefault(context.Background(), id)
	require.Error(t, err)
}

func TestMediator_WaitForDecisionDefault_ReturnsOnDecide(t *testing.T) {
	m := New(nil, nil)
	m.SetPendingTimeout(time.Second)
	id := m.Notify("stream-1", "Bash", nil)

	done := make(chan Request, 1)
	go func() {
		result, _ := m.WaitForDecisionDefault(context.Background(), id)
		done <- result
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := m.Decide(id, Decision{Approved: true})
	require.NoError(t, err)

	select {
	case result := <-done:
		assert.Equal(t, StatusApproved, result.Status)
	case <-time.After(time.Second):
		t.Fatal("WaitForDecisionDefault did not return after Decide")
	}
}

func TestMediator_EmitsEvents(t *testing.T) {
	bus := events.NewMemoryBus(events.MemoryBusConfig{})
	defer bus.Close()

	m := New(nil, bus)
	id := m.Notify("stream-1", "Bash", nil)
	m.Decide(id, Decision{Approved: true})

	hist, err := bus.History(events.Filter{Types: []string{"permission.*"}})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, events.EventPermissionRequested, hist[0].Type)
	assert.Equal(t, events.EventPermissionDecided, hist[1].Type)
}
