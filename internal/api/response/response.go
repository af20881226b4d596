// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package response holds the JSON envelope shared by every handler.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cui-run/server/internal/facade"
)

// Envelope is the standard shape every JSON route returns.
type Envelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo mirrors facade.Error in wire form.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo carries response-level metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes data as a status-coded envelope.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Data: data, Meta: &MetaInfo{Timestamp: time.Now()}})
}

// WriteError renders err as a JSON error envelope, using facade.Error's
// code/status mapping when err is one, and INTERNAL/500 otherwise.
func WriteError(w http.ResponseWriter, err error) {
	code := facade.CodeInternal
	message := err.Error()
	status := http.StatusInternalServerError

	if fe, ok := err.(*facade.Error); ok {
		code = fe.Code
		status = fe.Code.HTTPStatus()
		if !fe.Code.IsClientError() {
			message = "internal server error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{
		Error: &ErrorInfo{Code: string(code), Message: message},
		Meta:  &MetaInfo{Timestamp: time.Now()},
	})
}

// DecodeJSON decodes the request body into v, rejecting any field not
// present on v so a typo'd or stale client gets an error instead of a
// silently-ignored field.
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
