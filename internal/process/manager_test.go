// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cui-run/server/internal/events"
	"github.com/cui-run/server/internal/status"
	"github.com/cui-run/server/internal/streamfanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeCLI writes an executable shell script that stands in for
// the real CLI binary: it ignores its argv and prints a fixed NDJSON
// transcript to stdout, used so tests can exercise the spawn/drain/
// stop machinery without the real tool installed.
func writeFakeCLI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-claude.sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func newTestManager(t *testing.T, binary string) (*Manager, *streamfanout.Fanout, *status.Tracker) {
	t.Helper()
	fanout := streamfanout.New(0)
	tracker := status.New(nil)
	bus := events.NewMemoryBus(events.MemoryBusConfig{})
	t.Cleanup(func() { bus.Close() })

	m := New(Options{
		Binary:      binary,
		InitTimeout: 2 * time.Second,
		StopGrace:   200 * time.Millisecond,
	}, fanout, tracker, bus)
	return m, fanout, tracker
}

func TestManager_Start_RegistersSessionOnInit(t *testing.T) {
	script := `
echo '{"type":"system","subtype":"init","session_id":"sess-1","cwd":"/tmp","model":"claude-4"}'
echo '{"type":"result","subtype":"success"}'
`
	bin := writeFakeCLI(t, script)
	m, _, tracker := newTestManager(t, bin)

	result, err := m.Start(context.Background(), StartConfig{InitialPrompt: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.StreamingID)
	assert.Equal(t, "sess-1", result.SystemInit.SessionID)

	assert.Eventually(t, func() bool {
		return tracker.GetStatus("sess-1") == status.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_Start_TimesOutWithoutInit(t *testing.T) {
	bin := writeFakeCLI(t, "sleep 2")
	m, _, _ := newTestManager(t, bin)
	m.opts.InitTimeout = 50 * time.Millisecond

	_, err := m.Start(context.Background(), StartConfig{InitialPrompt: "hi"})
	require.Error(t, err)
}

func TestManager_Start_RejectsBadWorkingDirectory(t *testing.T) {
	bin := writeFakeCLI(t, "echo hi")
	m, _, _ := newTestManager(t, bin)

	_, err := m.Start(context.Background(), StartConfig{WorkingDirectory: "/definitely/not/a/real/dir"})
	require.Error(t, err)
}

func TestManager_BuildArgs_ResumeAppendsResumeFlag(t *testing.T) {
	m, _, _ := newTestManager(t, "claude")
	args := m.buildArgs(StartConfig{ResumeSessionID: "sess-1", InitialPrompt: "continue"})

	assert.Contains(t, args, "--resume")
	idx := indexOf(args, "--resume")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "sess-1", args[idx+1])
	assert.Equal(t, "continue", args[len(args)-1])
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func TestManager_Stop_ReturnsFalseForUnknownStream(t *testing.T) {
	m, _, _ := newTestManager(t, "claude")
	assert.False(t, m.Stop("no-such-stream"))
}

func TestManager_Shutdown_StopsAllChildren(t *testing.T) {
	script := `
echo '{"type":"system","subtype":"init","session_id":"sess-1","cwd":"/tmp"}'
sleep 5
`
	bin := writeFakeCLI(t, script)
	m, fanout, _ := newTestManager(t, bin)

	result, err := m.Start(context.Background(), StartConfig{InitialPrompt: "hi"})
	require.NoError(t, err)
	assert.True(t, m.Active(result.StreamingID))

	m.Shutdown(context.Background(), time.Second)

	assert.Eventually(t, func() bool {
		return len(m.children) == 0
	}, 2*time.Second, 10*time.Millisecond)
	_ = fanout
}
