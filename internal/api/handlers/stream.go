// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/cui-run/server/internal/facade"
	"github.com/gorilla/mux"
)

// StreamHandler serves the NDJSON broadcast route. Each connection
// gets its own goroutine-free Sink: Write is called synchronously by
// whichever goroutine is publishing (the process manager's stdout
// drain loop), so the handler only needs to flush after each write.
type StreamHandler struct {
	facade *facade.Facade
}

// NewStreamHandler wires handlers to facade.
func NewStreamHandler(f *facade.Facade) *StreamHandler {
	return &StreamHandler{facade: f}
}

// httpSink adapts an http.ResponseWriter/Flusher pair to
// streamfanout.Sink. The fan-out calls Write from several goroutines
// (the subscribing handler during replay, then the publishers), one at
// a time under the stream's lock; the mutex keeps each record and its
// newline together regardless.
type httpSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *httpSink) Write(record json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(record); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n")); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Stream handles GET /api/stream/:streamingId.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	streamingID := mux.Vars(r)["streamingId"]

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	sink := &httpSink{w: w, flusher: flusher}

	detach, err := h.facade.Subscribe(streamingID, sink)
	if err != nil {
		return
	}
	defer detach()

	<-r.Context().Done()
}
