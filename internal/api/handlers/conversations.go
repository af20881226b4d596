// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP surface in front of the
// facade: request decoding, response encoding, and nothing else.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/cui-run/server/internal/api/response"
	"github.com/cui-run/server/internal/facade"
	"github.com/cui-run/server/internal/history"
	"github.com/cui-run/server/internal/sessioninfo"
	"github.com/gorilla/mux"
)

// ConversationsHandler serves the start/resume/stop/list/fetch/update
// routes, all backed by a single *facade.Facade.
type ConversationsHandler struct {
	facade *facade.Facade
}

// NewConversationsHandler wires handlers to facade.
func NewConversationsHandler(f *facade.Facade) *ConversationsHandler {
	return &ConversationsHandler{facade: f}
}

// Start handles POST /api/conversations/start.
func (h *ConversationsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req facade.StartRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInvalidAction, Message: "invalid request body"})
		return
	}

	resp, err := h.facade.Start(r.Context(), req)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

// Resume handles POST /api/conversations/resume.
func (h *ConversationsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	var req facade.ResumeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInvalidAction, Message: "invalid request body"})
		return
	}

	resp, err := h.facade.Resume(r.Context(), req)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

// Stop handles POST /api/conversations/:streamingId/stop.
func (h *ConversationsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	streamingID := mux.Vars(r)["streamingId"]
	success := h.facade.Stop(streamingID)
	response.WriteJSON(w, http.StatusOK, map[string]bool{"success": success})
}

// List handles GET /api/conversations.
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := history.Query{
		ProjectPath: q.Get("projectPath"),
		SortBy:      history.SortField(q.Get("sortBy")),
		Order:       history.SortOrder(q.Get("order")),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Offset = n
		}
	}
	if v := q.Get("archived"); v != "" {
		b := v == "true"
		query.Archived = &b
	}
	if v := q.Get("pinned"); v != "" {
		b := v == "true"
		query.Pinned = &b
	}
	if v := q.Get("hasContinuation"); v != "" {
		b := v == "true"
		query.HasContinuation = &b
	}

	result, err := h.facade.List(query)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// Fetch handles GET /api/conversations/:sessionId.
func (h *ConversationsHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	resp, err := h.facade.Fetch(sessionID)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

// Update handles PUT /api/conversations/:sessionId/update.
func (h *ConversationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var patch sessioninfo.Patch
	if err := response.DecodeJSON(r, &patch); err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInvalidAction, Message: "invalid request body"})
		return
	}

	info, err := h.facade.UpdateSessionInfo(sessionID, patch)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, info)
}

// Export handles GET /api/conversations/:sessionId/export?level=full|summary.
func (h *ConversationsHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	level := history.ExportLevel(r.URL.Query().Get("level"))

	transcript, err := h.facade.Export(sessionID, level)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, transcript)
}
