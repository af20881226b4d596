// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package streamfanout broadcasts the records a CLI child writes to
// stdout to every browser subscriber watching its StreamingId, while
// keeping a bounded replay buffer so a subscriber that joins late (or
// reconnects) still sees everything from the start.
package streamfanout

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultHistoryLimit bounds how many records a stream retains for
// replay before the oldest are dropped.
const DefaultHistoryLimit = 2000

// Sink is the write-side of a subscriber. Implementations correspond
// to one HTTP response body (or websocket connection); a Write error
// causes the fan-out to detach the subscriber.
type Sink interface {
	Write(record json.RawMessage) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(record json.RawMessage) error

func (f SinkFunc) Write(record json.RawMessage) error { return f(record) }

// connectedRecord and closedRecord are synthesized, never produced by
// the CLI itself.
type connectedRecord struct {
	Type        string    `json:"type"`
	StreamingID string    `json:"streaming_id"`
	Timestamp   time.Time `json:"timestamp"`
}

type closedRecord struct {
	Type        string    `json:"type"`
	StreamingID string    `json:"streamingId"`
	Timestamp   time.Time `json:"timestamp"`
}

// Fanout owns every live stream, keyed by StreamingId.
type Fanout struct {
	mu      sync.Mutex
	streams map[string]*stream

	// HistoryLimit overrides DefaultHistoryLimit when non-zero; set at
	// construction, read without locking.
	historyLimit int
}

// New creates an empty Fanout. historyLimit <= 0 uses DefaultHistoryLimit.
func New(historyLimit int) *Fanout {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Fanout{
		streams:      make(map[string]*stream),
		historyLimit: historyLimit,
	}
}

type stream struct {
	mu          sync.Mutex
	streamingID string
	history     []json.RawMessage
	historyCap  int
	subscribers map[uint64]Sink
	nextSubID   uint64
	closed      bool
}

func newStream(streamingID string, historyCap int) *stream {
	return &stream{
		streamingID: streamingID,
		historyCap:  historyCap,
		subscribers: make(map[uint64]Sink),
	}
}

// getOrCreate returns the stream for streamingID, creating it if absent.
func (f *Fanout) getOrCreate(streamingID string) *stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.streams[streamingID]
	if !ok {
		s = newStream(streamingID, f.historyLimit)
		f.streams[streamingID] = s
	}
	return s
}

// Publish appends record to streamingID's history and writes it to
// every attached subscriber. A subscriber whose Write fails is
// detached; the publish itself never fails.
func (f *Fanout) Publish(streamingID string, record json.RawMessage) {
	s := f.getOrCreate(streamingID)
	s.publish(record)
}

// publish holds s.mu for the append and every subscriber write, so a
// subscribe in progress (also lock-held, see subscribe below) can never
// interleave a live record into the middle of a replay.
func (s *stream) publish(record json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.history = append(s.history, record)
	if len(s.history) > s.historyCap {
		s.history = s.history[len(s.history)-s.historyCap:]
	}
	for id, sink := range s.subscribers {
		if err := sink.Write(record); err != nil {
			delete(s.subscribers, id)
		}
	}
}

// Subscribe attaches sink to streamingID's stream. It immediately
// writes a synthetic "connected" record, then the full replay buffer in
// order, then continues delivering live records until the stream
// closes or the caller invokes the returned detach function. If the
// stream is already closed by the time of replay, sink receives a
// "closed" record right after replay and Subscribe returns a detach
// that is a no-op.
func (f *Fanout) Subscribe(streamingID string, sink Sink) (detach func()) {
	s := f.getOrCreate(streamingID)
	return s.subscribe(sink)
}

// subscribe registers sink and drains the replay buffer to it under
// s.mu, held for the entire operation. Since publish (above) also holds
// s.mu for its full append-and-deliver, no live record can reach sink
// out of order with the replay: either publish runs to completion
// before subscribe starts (so the new record is already in history and
// replayed in order), or subscribe finishes registering and replaying
// before publish can proceed (so the live record is delivered strictly
// after replay).
func (s *stream) subscribe(sink Sink) func() {
	connected, _ := json.Marshal(connectedRecord{
		Type:        "connected",
		StreamingID: s.streamingID,
		Timestamp:   time.Now(),
	})
	if err := sink.Write(connected); err != nil {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replay := s.history
	if s.closed {
		for _, rec := range replay {
			if err := sink.Write(rec); err != nil {
				return func() {}
			}
		}
		closed, _ := json.Marshal(closedRecord{
			Type:        "closed",
			StreamingID: s.streamingID,
			Timestamp:   time.Now(),
		})
		sink.Write(closed)
		return func() {}
	}

	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = sink

	for _, rec := range replay {
		if err := sink.Write(rec); err != nil {
			delete(s.subscribers, id)
			return func() {}
		}
	}

	return func() { s.detach(id) }
}

func (s *stream) detach(id uint64) {
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}

// Close marks streamingID's stream terminal, writes a synthetic
// "closed" record to every subscriber, detaches them all, and drops the
// stream from the fan-out's directory.
func (f *Fanout) Close(streamingID string) {
	f.mu.Lock()
	s, ok := f.streams[streamingID]
	if ok {
		delete(f.streams, streamingID)
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	s.close()
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	closed, _ := json.Marshal(closedRecord{
		Type:        "closed",
		StreamingID: s.streamingID,
		Timestamp:   time.Now(),
	})
	for _, sink := range s.subscribers {
		sink.Write(closed)
	}
	s.subscribers = make(map[uint64]Sink)
}

// DisconnectAll closes every live stream. Used on server shutdown.
func (f *Fanout) DisconnectAll() {
	f.mu.Lock()
	all := make([]*stream, 0, len(f.streams))
	for _, s := range f.streams {
		all = append(all, s)
	}
	f.streams = make(map[string]*stream)
	f.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

// Active reports whether streamingID currently has a live (unclosed)
// stream.
func (f *Fanout) Active(streamingID string) bool {
	f.mu.Lock()
	_, ok := f.streams[streamingID]
	f.mu.Unlock()
	return ok
}
