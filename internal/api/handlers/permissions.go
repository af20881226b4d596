// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cui-run/server/internal/api/response"
	"github.com/cui-run/server/internal/facade"
	"github.com/cui-run/server/internal/permission"
	"github.com/gorilla/mux"
)

// PermissionsHandler serves the permission-mediation routes.
type PermissionsHandler struct {
	facade *facade.Facade
}

// NewPermissionsHandler wires handlers to facade.
func NewPermissionsHandler(f *facade.Facade) *PermissionsHandler {
	return &PermissionsHandler{facade: f}
}

type notifyRequest struct {
	ToolName    string          `json:"toolName"`
	ToolInput   json.RawMessage `json:"toolInput"`
	StreamingID string          `json:"streamingId"`
}

// Notify handles POST /api/permissions/notify — the CLI's hook script
// calls this to register a tool-use approval request.
func (h *PermissionsHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInvalidAction, Message: "invalid request body"})
		return
	}
	if req.StreamingID == "" {
		response.WriteError(w, &facade.Error{Code: facade.CodeStreamingIDNotFound, Message: "streamingId is required"})
		return
	}

	id := h.facade.Permission.Notify(req.StreamingID, req.ToolName, req.ToolInput)
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

// List handles GET /api/permissions?streamingId&status.
func (h *PermissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	streamingID := q.Get("streamingId")

	var requests []permission.Request
	if q.Get("status") == "pending" {
		requests = h.facade.Permission.GetPending(streamingID)
	} else {
		requests = h.facade.Permission.GetAll(streamingID)
	}
	response.WriteJSON(w, http.StatusOK, requests)
}

type decisionRequest struct {
	Approved      bool            `json:"approved"`
	ModifiedInput json.RawMessage `json:"modifiedInput,omitempty"`
	DenyReason    string          `json:"denyReason,omitempty"`
}

// Wait handles GET /api/permissions/:id/wait — a request-scoped
// replacement for the GetPending poll loop that blocks until id is
// decided or the mediator's pending timeout elapses.
func (h *PermissionsHandler) Wait(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.facade.WaitForPermissionDecision(r.Context(), id)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

// Decide handles POST /api/permissions/:id/decision.
func (h *PermissionsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req decisionRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInvalidAction, Message: "invalid request body"})
		return
	}

	result, err := h.facade.DecidePermission(id, permission.Decision{
		Approved:      req.Approved,
		ModifiedInput: req.ModifiedInput,
		DenyReason:    req.DenyReason,
	})
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}
