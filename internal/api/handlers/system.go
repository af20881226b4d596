// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/cui-run/server/internal/api/response"
	"github.com/cui-run/server/internal/facade"
	"github.com/cui-run/server/internal/preferences"
)

// SystemHandler serves system-status, working-directories and
// preferences routes.
type SystemHandler struct {
	facade *facade.Facade
}

// NewSystemHandler wires handlers to facade.
func NewSystemHandler(f *facade.Facade) *SystemHandler {
	return &SystemHandler{facade: f}
}

// Status handles GET /api/system/status.
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.facade.SystemStatus()
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, status)
}

// WorkingDirectories handles GET /api/working-directories.
func (h *SystemHandler) WorkingDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := h.facade.GetWorkingDirectories()
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string][]string{"workingDirectories": dirs})
}

// GetPreferences handles GET /api/preferences.
func (h *SystemHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.facade.Preferences.Get()
	if err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInternal, Message: err.Error()})
		return
	}
	response.WriteJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/preferences.
func (h *SystemHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch preferences.Preferences
	if err := response.DecodeJSON(r, &patch); err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInvalidAction, Message: "invalid request body"})
		return
	}

	updated, err := h.facade.Preferences.Update(patch)
	if err != nil {
		response.WriteError(w, &facade.Error{Code: facade.CodeInternal, Message: err.Error()})
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}
