// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cui-run/server/internal/sessioninfo"
	"github.com/cui-run/server/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T) (*Reader, string) {
	t.Helper()
	root := t.TempDir()
	store := sessioninfo.New(t.TempDir() + "/session-info.json")
	require.NoError(t, store.Initialize())
	tracker := status.New(nil)
	return New(root, store, tracker), root
}

func TestReader_ListConversations_SummaryFallsBackToEarlierAssistantLeaf(t *testing.T) {
	r, root := newTestReader(t)

	dir := filepath.Join(root, encodeProjectPath("/home/alice/project-b"))
	require.NoError(t, os.MkdirAll(dir, 0o755))

	base := time.Now().Add(-time.Hour)
	uuid1 := "assistant-1"
	uuid2 := "assistant-2"
	lines := []rawLine{
		{Type: "user", SessionID: "sess-2", UUID: "user-1", CWD: "/home/alice/project-b", Timestamp: base, Model: "claude-4"},
		{Type: "assistant", SessionID: "sess-2", UUID: uuid1, ParentUUID: "user-1", CWD: "/home/alice/project-b", Timestamp: base.Add(time.Minute), Model: "claude-4"},
		{Type: "summary", LeafUUID: uuid1, Summary: "earlier summary", Timestamp: base.Add(2 * time.Minute)},
		{Type: "user", SessionID: "sess-2", UUID: "user-2", ParentUUID: uuid1, CWD: "/home/alice/project-b", Timestamp: base.Add(3 * time.Minute), Model: "claude-4"},
		{Type: "assistant", SessionID: "sess-2", UUID: uuid2, ParentUUID: "user-2", CWD: "/home/alice/project-b", Timestamp: base.Add(4 * time.Minute), Model: "claude-4"},
	}
	f, err := os.Create(filepath.Join(dir, "sess-2.jsonl"))
	require.NoError(t, err)
	enc := json.NewEncoder(f)
	for _, ln := range lines {
		require.NoError(t, enc.Encode(ln))
	}
	require.NoError(t, f.Close())

	result, err := r.ListConversations(Query{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "earlier summary", result.Conversations[0].Summary)
}

func TestReader_ListConversations_Empty(t *testing.T) {
	r, _ := newTestReader(t)
	result, err := r.ListConversations(Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Conversations)
}

func TestReader_ListConversations_MissingRoot(t *testing.T) {
	store := sessioninfo.New(t.TempDir() + "/session-info.json")
	require.NoError(t, store.Initialize())
	r := New("/nonexistent/projects/root", store, status.New(nil))

	result, err := r.ListConversations(Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}

func TestReader_ListAndFetch(t *testing.T) {
	r, root := newTestReader(t)

	base := time.Now().Add(-time.Hour)
	_, err := WriteSessionFile(root, "/home/alice/project-a", "sess-1", "claude-4", []FixtureMessage{
		{Role: "user", Text: "hello", Timestamp: base},
		{Role: "assistant", Text: "hi there", Timestamp: base.Add(time.Minute), DurationMs: 1200},
	})
	require.NoError(t, err)

	result, err := r.ListConversations(Query{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)

	cs := result.Conversations[0]
	assert.Equal(t, "sess-1", cs.SessionID)
	assert.Equal(t, "/home/alice/project-a", cs.ProjectPath)
	assert.Equal(t, 2, cs.MessageCount)
	assert.Equal(t, "claude-4", cs.Model)
	assert.Equal(t, "sess-1 summary", cs.Summary)
	assert.Equal(t, status.StatusCompleted, cs.Status)

	messages, err := r.FetchConversation("sess-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Type)
	assert.Equal(t, "assistant", messages[1].Type)
}

func TestReader_FetchConversation_NotFound(t *testing.T) {
	r, _ := newTestReader(t)
	_, err := r.FetchConversation("does-not-exist")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestReader_FilterByArchivedAndPinned(t *testing.T) {
	r, root := newTestReader(t)
	now := time.Now()

	_, err := WriteSessionFile(root, "/proj", "sess-archived", "m", []FixtureMessage{{Role: "user", Text: "x", Timestamp: now}})
	require.NoError(t, err)
	_, err = WriteSessionFile(root, "/proj", "sess-normal", "m", []FixtureMessage{{Role: "user", Text: "x", Timestamp: now}})
	require.NoError(t, err)

	archived := true
	_, err = r.sessionInfo.Update("sess-archived", sessioninfo.Patch{Archived: &archived})
	require.NoError(t, err)

	wantArchived := true
	result, err := r.ListConversations(Query{Archived: &wantArchived})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "sess-archived", result.Conversations[0].SessionID)
}

func TestReader_SortAndPaginate(t *testing.T) {
	r, root := newTestReader(t)
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"sess-1", "sess-2", "sess-3"} {
		_, err := WriteSessionFile(root, "/proj", id, "m", []FixtureMessage{
			{Role: "user", Text: "x", Timestamp: base.Add(time.Duration(i) * time.Minute)},
		})
		require.NoError(t, err)
	}

	result, err := r.ListConversations(Query{SortBy: SortByCreated, Order: OrderAsc, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
	require.Len(t, result.Conversations, 2)
	assert.Equal(t, "sess-1", result.Conversations[0].SessionID)
	assert.Equal(t, "sess-2", result.Conversations[1].SessionID)
}

func TestReader_LiveStatusAttachesStreamingID(t *testing.T) {
	r, root := newTestReader(t)
	now := time.Now()
	_, err := WriteSessionFile(root, "/proj", "sess-live", "m", []FixtureMessage{{Role: "user", Text: "x", Timestamp: now}})
	require.NoError(t, err)

	r.tracker.Register("stream-1", "sess-live", status.Context{})

	meta, err := r.GetConversationMetadata("sess-live")
	require.NoError(t, err)
	assert.Equal(t, status.StatusOngoing, meta.Status)
	assert.Equal(t, "stream-1", meta.StreamingID)
}

func TestReader_ExportConversation_SummaryStripsContent(t *testing.T) {
	r, root := newTestReader(t)
	now := time.Now()
	_, err := WriteSessionFile(root, "/proj", "sess-export", "m", []FixtureMessage{
		{Role: "user", Text: "hello", Timestamp: now},
		{Role: "assistant", Text: "hi", Timestamp: now.Add(time.Second)},
	})
	require.NoError(t, err)

	full, err := r.ExportConversation("sess-export", ExportFull)
	require.NoError(t, err)
	assert.NotEmpty(t, full.Messages[0].Message)

	summary, err := r.ExportConversation("sess-export", ExportSummary)
	require.NoError(t, err)
	assert.Empty(t, summary.Messages[0].Message)
	assert.Equal(t, 2, summary.Stats.MessageCount)
	assert.Equal(t, 1, summary.Stats.UserTurns)
	assert.Equal(t, 1, summary.Stats.AssistantTurns)
}
