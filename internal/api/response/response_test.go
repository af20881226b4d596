// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package response

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sessionId":"s1","message":"hi","bogus":true}`))

	var v struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	err := DecodeJSON(req, &v)
	require.Error(t, err)
}

func TestDecodeJSON_AcceptsKnownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sessionId":"s1","message":"hi"}`))

	var v struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "s1", v.SessionID)
	assert.Equal(t, "hi", v.Message)
}
