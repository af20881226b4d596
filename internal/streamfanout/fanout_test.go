// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package streamfanout

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	records []string
	failAt  int // index at which Write starts failing, -1 = never
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failAt: -1}
}

func (r *recordingSink) Write(record json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt >= 0 && len(r.records) >= r.failAt {
		return assert.AnError
	}
	r.records = append(r.records, string(record))
	return nil
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	copy(out, r.records)
	return out
}

func msg(s string) json.RawMessage { return json.RawMessage(`{"type":"` + s + `"}`) }

func TestFanout_PublishBeforeSubscribe_ReplayedInOrder(t *testing.T) {
	f := New(0)
	f.Publish("stream-1", msg("a"))
	f.Publish("stream-1", msg("b"))

	sink := newRecordingSink()
	detach := f.Subscribe("stream-1", sink)
	defer detach()

	recs := sink.snapshot()
	require.Len(t, recs, 3) // connected + a + b
	assert.Contains(t, recs[0], "connected")
	assert.Contains(t, recs[1], `"a"`)
	assert.Contains(t, recs[2], `"b"`)
}

func TestFanout_LiveRecordsDeliveredAfterSubscribe(t *testing.T) {
	f := New(0)
	sink := newRecordingSink()
	detach := f.Subscribe("stream-1", sink)
	defer detach()

	f.Publish("stream-1", msg("live"))

	recs := sink.snapshot()
	require.Len(t, recs, 2) // connected + live
	assert.Contains(t, recs[1], "live")
}

func TestFanout_CloseSendsClosedAndDetaches(t *testing.T) {
	f := New(0)
	sink := newRecordingSink()
	f.Subscribe("stream-1", sink)

	f.Close("stream-1")
	recs := sink.snapshot()
	assert.Contains(t, recs[len(recs)-1], "closed")
	assert.False(t, f.Active("stream-1"))
}

func TestFanout_SubscribeAfterClose_GetsReplayThenClosed(t *testing.T) {
	f := New(0)
	f.Publish("stream-1", msg("a"))
	f.Close("stream-1")

	sink := newRecordingSink()
	f.Subscribe("stream-1", sink)

	recs := sink.snapshot()
	require.Len(t, recs, 3) // connected, a, closed
	assert.Contains(t, recs[2], "closed")
}

func TestFanout_FailingSubscriberIsDetachedNotFatal(t *testing.T) {
	f := New(0)
	sink := newRecordingSink()
	sink.failAt = 1 // fail after "connected"
	f.Subscribe("stream-1", sink)

	// Publish should not panic or error even though the sink fails.
	f.Publish("stream-1", msg("a"))
	f.Publish("stream-1", msg("b"))
}

func TestFanout_HistoryBounded(t *testing.T) {
	f := New(3)
	for i := 0; i < 10; i++ {
		f.Publish("stream-1", msg("m"))
	}
	sink := newRecordingSink()
	f.Subscribe("stream-1", sink)

	recs := sink.snapshot()
	assert.Len(t, recs, 4) // connected + last 3
}

func TestFanout_DisconnectAll(t *testing.T) {
	f := New(0)
	sinkA := newRecordingSink()
	sinkB := newRecordingSink()
	f.Subscribe("stream-a", sinkA)
	f.Subscribe("stream-b", sinkB)

	f.DisconnectAll()

	assert.False(t, f.Active("stream-a"))
	assert.False(t, f.Active("stream-b"))
	assert.Contains(t, sinkA.snapshot()[len(sinkA.snapshot())-1], "closed")
	assert.Contains(t, sinkB.snapshot()[len(sinkB.snapshot())-1], "closed")
}

func TestFanout_ConcurrentPublishDuringSubscribe_PreservesOrder(t *testing.T) {
	f := New(0)
	for i := 0; i < 50; i++ {
		f.Publish("stream-1", msg("h"))
	}

	var wg sync.WaitGroup
	sink := newRecordingSink()
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.Subscribe("stream-1", sink)
	}()
	go func() {
		defer wg.Done()
		f.Publish("stream-1", msg("live"))
	}()
	wg.Wait()

	recs := sink.snapshot()
	// Whichever happens first, the replay (connected + history) must
	// never be interleaved with the live record: either the live
	// record lands in history and is replayed in place, or it arrives
	// strictly after the full replay.
	liveIdx := -1
	for i, r := range recs {
		if r == `{"type":"live"}` {
			liveIdx = i
			break
		}
	}
	require.NotEqual(t, -1, liveIdx, "live record must be delivered")
	for i := liveIdx + 1; i < len(recs); i++ {
		assert.NotContains(t, recs[i], `"h"`)
	}
}

func TestFanout_MultipleSubscribersSeeSameOrder(t *testing.T) {
	f := New(0)
	s1 := newRecordingSink()
	s2 := newRecordingSink()
	f.Subscribe("stream-1", s1)
	f.Publish("stream-1", msg("a"))
	f.Subscribe("stream-1", s2)
	f.Publish("stream-1", msg("b"))

	recs1 := s1.snapshot()
	recs2 := s2.snapshot()
	require.Len(t, recs1, 3) // connected, a, b
	require.Len(t, recs2, 3) // connected, a (replay), b (live)
	assert.Contains(t, recs2[1], `"a"`)
	assert.Contains(t, recs2[2], `"b"`)
}
