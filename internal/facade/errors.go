// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package facade is the only component the HTTP layer touches. It
// validates arguments, then delegates to one or two of the underlying
// components (session info, history, status, permission, process,
// stream fan-out), translating their outcomes into the facade's own
// error taxonomy.
package facade

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeMissingWorkingDirectory Code = "MISSING_WORKING_DIRECTORY"
	CodeMissingInitialPrompt    Code = "MISSING_INITIAL_PROMPT"
	CodeMissingSessionID        Code = "MISSING_SESSION_ID"
	CodeMissingMessage          Code = "MISSING_MESSAGE"
	CodeInvalidAction           Code = "INVALID_ACTION"
	CodeInvalidSessionID        Code = "INVALID_SESSION_ID"
	CodeConversationNotFound    Code = "CONVERSATION_NOT_FOUND"
	CodeSessionNotFound         Code = "SESSION_NOT_FOUND"
	CodeStreamingIDNotFound     Code = "STREAMING_ID_NOT_FOUND"
	CodeSpawnFailed             Code = "SPAWN_FAILED"
	CodeInitTimeout             Code = "INIT_TIMEOUT"
	CodeSystemStatusError       Code = "SYSTEM_STATUS_ERROR"
	CodeInternal                Code = "INTERNAL"
)

// Error is the facade's error type. 4xx codes carry a human-readable
// Message; 5xx codes are rendered generically by the HTTP layer
// regardless of Message content.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IsClientError reports whether code belongs in the 4xx family.
func (c Code) IsClientError() bool {
	switch c {
	case CodeMissingWorkingDirectory, CodeMissingInitialPrompt, CodeMissingSessionID,
		CodeMissingMessage, CodeInvalidAction, CodeInvalidSessionID,
		CodeConversationNotFound, CodeSessionNotFound, CodeStreamingIDNotFound:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a Code to its HTTP status family member.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingWorkingDirectory, CodeMissingInitialPrompt, CodeMissingSessionID,
		CodeMissingMessage, CodeInvalidAction, CodeInvalidSessionID:
		return 400
	case CodeConversationNotFound, CodeSessionNotFound, CodeStreamingIDNotFound:
		return 404
	default:
		return 500
	}
}
