// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cui-run/server/internal/sessioninfo"
	"github.com/cui-run/server/internal/status"
)

func unixNanoToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// NotFoundError is returned when a sessionId has no on-disk log.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// Reader reads the CLI's project log tree rooted at ProjectsRoot and
// answers listing/fetch queries, enriching with live status from the
// Status Tracker and user metadata from the Session-Info Store.
type Reader struct {
	ProjectsRoot string

	sessionInfo *sessioninfo.Store
	tracker     *status.Tracker

	mu          sync.Mutex
	fileCache   map[string]string // sessionId -> absolute .jsonl path, process-lifetime cache
}

// New creates a Reader. tracker may be nil if live-status enrichment
// isn't needed (e.g. in offline export tooling).
func New(projectsRoot string, store *sessioninfo.Store, tracker *status.Tracker) *Reader {
	return &Reader{
		ProjectsRoot: projectsRoot,
		sessionInfo:  store,
		tracker:      tracker,
		fileCache:    make(map[string]string),
	}
}

// sessionAccumulator tracks the running digest for one sessionId while
// scanning.
type sessionAccumulator struct {
	sessionID     string
	createdAt     timeOrZero
	updatedAt     timeOrZero
	messageCount  int
	totalDuration int64
	model         string
	projectPath   string
	assistantUUIDs []string // in encounter order, most recent last
	sourceFile    string
}

type timeOrZero struct {
	set bool
	t   int64 // unix nano
}

// ListConversations implements the index build described for the
// History Reader: enumerate, bucket by session, attach summaries and
// user metadata, filter, sort, and paginate.
func (r *Reader) ListConversations(q Query) (Result, error) {
	accs, summaries, err := r.scan()
	if err != nil {
		return Result{}, err
	}

	all := make([]ConversationSummary, 0, len(accs))
	for sessionID, acc := range accs {
		cs := r.buildSummary(sessionID, acc, summaries)
		all = append(all, cs)
	}

	all = applyFilters(all, q)
	sortConversations(all, q)

	total := len(all)
	offset := q.Offset
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	return Result{Conversations: all[offset:end], Total: total}, nil
}

// GetConversationMetadata returns the digest for a single session, the
// same shape ListConversations produces.
func (r *Reader) GetConversationMetadata(sessionID string) (ConversationMetadata, error) {
	accs, summaries, err := r.scan()
	if err != nil {
		return ConversationMetadata{}, err
	}
	acc, ok := accs[sessionID]
	if !ok {
		return ConversationMetadata{}, &NotFoundError{SessionID: sessionID}
	}
	return r.buildSummary(sessionID, acc, summaries), nil
}

// FetchConversation locates the .jsonl file containing sessionID,
// parses it, drops summary records, and returns the messages belonging
// to that session in file order.
func (r *Reader) FetchConversation(sessionID string) ([]PersistedMessage, error) {
	path, err := r.locateSessionFile(sessionID)
	if err != nil {
		return nil, err
	}

	lines, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var out []PersistedMessage
	for _, ln := range lines {
		if ln.isSummary() {
			continue
		}
		if ln.SessionID != sessionID {
			continue
		}
		out = append(out, ln.toPersistedMessage())
	}
	if out == nil {
		return nil, &NotFoundError{SessionID: sessionID}
	}
	return out, nil
}

// locateSessionFile scans project directories until it finds the file
// containing sessionID, caching the result for the process lifetime.
func (r *Reader) locateSessionFile(sessionID string) (string, error) {
	r.mu.Lock()
	if path, ok := r.fileCache[sessionID]; ok {
		r.mu.Unlock()
		return path, nil
	}
	r.mu.Unlock()

	projectDirs, err := r.listProjectDirs()
	if err != nil {
		return "", err
	}

	for _, dir := range projectDirs {
		files, err := jsonlFilesIn(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			lines, err := readLines(f)
			if err != nil {
				log.Printf("history: skipping unreadable file %s: %v", f, err)
				continue
			}
			for _, ln := range lines {
				if ln.SessionID == sessionID && !ln.isSummary() {
					r.mu.Lock()
					r.fileCache[sessionID] = f
					r.mu.Unlock()
					return f, nil
				}
			}
		}
	}
	return "", &NotFoundError{SessionID: sessionID}
}

// InvalidateCache drops a cached session->file mapping, used by the
// fsnotify watcher when a log file changes.
func (r *Reader) InvalidateCache(sessionID string) {
	r.mu.Lock()
	delete(r.fileCache, sessionID)
	r.mu.Unlock()
}

// InvalidateAll clears the entire session->file cache.
func (r *Reader) InvalidateAll() {
	r.mu.Lock()
	r.fileCache = make(map[string]string)
	r.mu.Unlock()
}

func (r *Reader) listProjectDirs() ([]string, error) {
	entries, err := os.ReadDir(r.ProjectsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects root %s: %w", r.ProjectsRoot, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(r.ProjectsRoot, e.Name()))
		}
	}
	return dirs, nil
}

func jsonlFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".jsonl") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func readLines(path string) ([]rawLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []rawLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var ln rawLine
		if err := json.Unmarshal(raw, &ln); err != nil {
			log.Printf("history: skipping malformed line %d in %s: %v", lineNo, path, err)
			continue
		}
		lines = append(lines, ln)
	}
	if err := scanner.Err(); err != nil {
		return lines, err
	}
	return lines, nil
}

// scan walks every project directory and every .jsonl file within,
// bucketing messages by sessionId and collecting summary records.
func (r *Reader) scan() (map[string]*sessionAccumulator, map[string]summaryEntry, error) {
	dirs, err := r.listProjectDirs()
	if err != nil {
		return nil, nil, err
	}

	accs := make(map[string]*sessionAccumulator)
	summaries := make(map[string]summaryEntry) // leafUuid -> latest summary

	for _, dir := range dirs {
		files, err := jsonlFilesIn(dir)
		if err != nil {
			log.Printf("history: skipping unreadable project dir %s: %v", dir, err)
			continue
		}
		for _, f := range files {
			lines, err := readLines(f)
			if err != nil {
				log.Printf("history: skipping unreadable file %s: %v", f, err)
				continue
			}
			r.accumulate(f, lines, accs, summaries)
		}
	}
	return accs, summaries, nil
}

type summaryEntry struct {
	summary   string
	timestamp int64
}

func (r *Reader) accumulate(sourceFile string, lines []rawLine, accs map[string]*sessionAccumulator, summaries map[string]summaryEntry) {
	for _, ln := range lines {
		if ln.isSummary() {
			existing, ok := summaries[ln.LeafUUID]
			ts := ln.Timestamp.UnixNano()
			if !ok || ts >= existing.timestamp {
				summaries[ln.LeafUUID] = summaryEntry{summary: ln.Summary, timestamp: ts}
			}
			continue
		}
		if ln.SessionID == "" {
			continue
		}

		acc, ok := accs[ln.SessionID]
		if !ok {
			acc = &sessionAccumulator{sessionID: ln.SessionID, sourceFile: sourceFile}
			accs[ln.SessionID] = acc
		}

		ts := ln.Timestamp.UnixNano()
		if !acc.createdAt.set || ts < acc.createdAt.t {
			acc.createdAt = timeOrZero{set: true, t: ts}
		}
		if !acc.updatedAt.set || ts >= acc.updatedAt.t {
			acc.updatedAt = timeOrZero{set: true, t: ts}
		}
		acc.messageCount++
		acc.totalDuration += ln.DurationMs
		if ln.Model != "" {
			acc.model = ln.Model
		}
		if ln.CWD != "" {
			acc.projectPath = ln.CWD
		}
		if ln.Type == "assistant" {
			acc.assistantUUIDs = append(acc.assistantUUIDs, ln.UUID)
		}
	}
}

func (r *Reader) buildSummary(sessionID string, acc *sessionAccumulator, summaries map[string]summaryEntry) ConversationSummary {
	cs := ConversationSummary{
		SessionID:     sessionID,
		ProjectPath:   acc.projectPath,
		MessageCount:  acc.messageCount,
		TotalDurationMs: acc.totalDuration,
		Model:         acc.model,
	}
	if acc.createdAt.set {
		cs.CreatedAt = unixNanoToTime(acc.createdAt.t)
	}
	if acc.updatedAt.set {
		cs.UpdatedAt = unixNanoToTime(acc.updatedAt.t)
	}
	// Walk backward from the most recent assistant message, since not
	// every assistant turn ends a leaf with a summary record.
	for i := len(acc.assistantUUIDs) - 1; i >= 0; i-- {
		if s, ok := summaries[acc.assistantUUIDs[i]]; ok {
			cs.Summary = s.summary
			break
		}
	}

	if r.sessionInfo != nil {
		info := r.sessionInfo.Get(sessionID)
		cs.Pinned = info.Pinned
		cs.Archived = info.Archived
		cs.ContinuationSessionID = info.ContinuationSessionID
		cs.CustomName = info.CustomName
		cs.PermissionMode = info.PermissionMode
	}

	cs.Status = status.StatusCompleted
	if r.tracker != nil {
		cs.Status = r.tracker.GetStatus(sessionID)
		if cs.Status == status.StatusOngoing {
			if streamID, ok := r.tracker.GetStreamingID(sessionID); ok {
				cs.StreamingID = streamID
			}
		}
	}

	return cs
}

func applyFilters(all []ConversationSummary, q Query) []ConversationSummary {
	out := all[:0:0]
	normalizedProject := strings.TrimSuffix(q.ProjectPath, "/")
	for _, cs := range all {
		if normalizedProject != "" && !strings.HasPrefix(cs.ProjectPath, normalizedProject) {
			continue
		}
		if q.Archived != nil && cs.Archived != *q.Archived {
			continue
		}
		if q.Pinned != nil && cs.Pinned != *q.Pinned {
			continue
		}
		if q.HasContinuation != nil {
			has := cs.ContinuationSessionID != ""
			if has != *q.HasContinuation {
				continue
			}
		}
		out = append(out, cs)
	}
	return out
}

func sortConversations(all []ConversationSummary, q Query) {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = SortByUpdated
	}
	order := q.Order
	if order == "" {
		order = OrderDesc
	}

	less := func(i, j int) bool {
		var a, b int64
		switch sortBy {
		case SortByCreated:
			a, b = all[i].CreatedAt.UnixNano(), all[j].CreatedAt.UnixNano()
		default:
			a, b = all[i].UpdatedAt.UnixNano(), all[j].UpdatedAt.UnixNano()
		}
		if order == OrderAsc {
			return a < b
		}
		return a > b
	}
	sort.SliceStable(all, less)
}
