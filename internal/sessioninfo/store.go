// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sessioninfo

import (
	"log"
	"os"
	"sync"
	"time"
)

// Store is the Session-Info Store. All reads and writes go through a
// single-holder mutex so concurrent updates serialize and never
// corrupt the document.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// New creates a Store backed by the JSON file at path. The file and its
// directory are created lazily on first write; a missing file at open
// time is not an error.
func New(path string) *Store {
	return &Store{
		path: path,
		doc: document{
			Sessions: make(map[string]SessionInfo),
		},
	}
}

// Initialize loads the document from disk and migrates it forward to
// CurrentSchemaVersion if needed. Partial-migration is disallowed: if
// the migrated document cannot be written back, Initialize fails and no
// entries are usable, guaranteeing readers never see mixed versions.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc document
	if err := readJSONFile(s.path, &doc); err != nil {
		log.Printf("sessioninfo: failed to read store, starting empty: %v", err)
		doc = document{}
	}
	if doc.Sessions == nil {
		doc.Sessions = make(map[string]SessionInfo)
	}
	if doc.Metadata.CreatedAt.IsZero() {
		doc.Metadata.CreatedAt = time.Now()
	}

	s.doc = doc

	if migrate(&s.doc) {
		if err := s.persistLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the session's info, synthesizing and persisting a default
// entry if one doesn't exist yet so later reads see a stable CreatedAt.
// On I/O failure during that persist, the in-memory default is returned
// without error.
func (s *Store) Get(sessionID string) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.doc.Sessions[sessionID]; ok {
		return entry
	}

	entry := defaultEntry(time.Now())
	s.doc.Sessions[sessionID] = entry
	if err := s.persistLocked(); err != nil {
		log.Printf("sessioninfo: failed to persist default entry for %s: %v", sessionID, err)
	}
	return entry
}

// Update merges patch over the existing (or default) entry, refreshes
// UpdatedAt, and leaves CreatedAt untouched.
func (s *Store) Update(sessionID string, patch Patch) (SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.doc.Sessions[sessionID]
	if !ok {
		base = defaultEntry(time.Now())
	}

	updated := patch.apply(base)
	updated.UpdatedAt = time.Now()
	updated.Version = CurrentSchemaVersion
	s.doc.Sessions[sessionID] = updated

	if err := s.persistLocked(); err != nil {
		return SessionInfo{}, err
	}
	return updated, nil
}

// UpdateCustomName is equivalent to Update(sessionID, Patch{CustomName: &name}).
func (s *Store) UpdateCustomName(sessionID, name string) (SessionInfo, error) {
	return s.Update(sessionID, Patch{CustomName: &name})
}

// Delete removes an entry; a missing entry is a no-op.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Sessions[sessionID]; !ok {
		return nil
	}
	delete(s.doc.Sessions, sessionID)
	return s.persistLocked()
}

// ListAll returns a copy of every persisted session entry.
func (s *Store) ListAll() map[string]SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]SessionInfo, len(s.doc.Sessions))
	for id, entry := range s.doc.Sessions {
		out[id] = entry
	}
	return out
}

// ArchiveAll marks every entry archived and returns how many were
// changed (already-archived entries don't count).
func (s *Store) ArchiveAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := time.Now()
	for id, entry := range s.doc.Sessions {
		if entry.Archived {
			continue
		}
		entry.Archived = true
		entry.UpdatedAt = now
		s.doc.Sessions[id] = entry
		count++
	}
	if count > 0 {
		if err := s.persistLocked(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// Stats reports the session count, the on-disk file size, and the last
// update timestamp.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var size int64
	if fi, err := os.Stat(s.path); err == nil {
		size = fi.Size()
	}

	return Stats{
		SessionCount: len(s.doc.Sessions),
		DBSize:       size,
		LastUpdated:  s.doc.Metadata.LastUpdated,
	}
}

// persistLocked writes the document to disk. Callers must hold s.mu.
func (s *Store) persistLocked() error {
	s.doc.Metadata.SchemaVersion = CurrentSchemaVersion
	s.doc.Metadata.LastUpdated = time.Now()
	return writeJSONFileAtomic(s.path, &s.doc)
}
