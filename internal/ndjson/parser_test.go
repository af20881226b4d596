// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ndjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_SplitsOnNewline(t *testing.T) {
	var lines []string
	p := New(func(raw []byte) error {
		lines = append(lines, string(raw))
		return nil
	}, nil)

	require.NoError(t, p.Feed([]byte(`{"a":1}`+"\n"+`{"a":2}`+"\n")))
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, lines)
}

func TestParser_PartialLineAcrossFeeds(t *testing.T) {
	var lines []string
	p := New(func(raw []byte) error {
		lines = append(lines, string(raw))
		return nil
	}, nil)

	require.NoError(t, p.Feed([]byte(`{"a":"hel`)))
	require.NoError(t, p.Feed([]byte("lo\"}\n")))
	assert.Equal(t, []string{`{"a":"hello"}`}, lines)
}

func TestParser_FlushesTrailingFragmentOnClose(t *testing.T) {
	var lines []string
	p := New(func(raw []byte) error {
		lines = append(lines, string(raw))
		return nil
	}, nil)

	require.NoError(t, p.Feed([]byte(`{"a":3}`)))
	require.NoError(t, p.Close())
	assert.Equal(t, []string{`{"a":3}`}, lines)
}

func TestParser_EmptyTrailingFragmentIsNotFlushed(t *testing.T) {
	var lines []string
	p := New(func(raw []byte) error {
		lines = append(lines, string(raw))
		return nil
	}, nil)

	require.NoError(t, p.Feed([]byte("{\"a\":1}\n   \n\t")))
	require.NoError(t, p.Close())
	assert.Equal(t, []string{`{"a":1}`}, lines)
}

func TestParser_MalformedLineDoesNotAbortStream(t *testing.T) {
	var good []string
	var bad []*LineError
	p := New(func(raw []byte) error {
		if len(raw) > 0 && raw[0] != '{' {
			return assertInvalid
		}
		good = append(good, string(raw))
		return nil
	}, func(err *LineError) {
		bad = append(bad, err)
	})

	require.NoError(t, p.Feed([]byte("not json\n{\"ok\":true}\n")))
	assert.Equal(t, []string{`{"ok":true}`}, good)
	require.Len(t, bad, 1)
	assert.Equal(t, "not json", string(bad[0].Line))
}

var assertInvalid = &LineError{Err: errInvalid}

type invalidErr struct{}

func (invalidErr) Error() string { return "invalid" }

var errInvalid = invalidErr{}

func TestParser_FeedAfterCloseErrors(t *testing.T) {
	p := New(func(raw []byte) error { return nil }, nil)
	require.NoError(t, p.Close())
	err := p.Feed([]byte("x\n"))
	require.Error(t, err)
}

func TestDecodeInto(t *testing.T) {
	type rec struct {
		Type string `json:"type"`
	}
	v, err := DecodeInto[rec]([]byte(`{"type":"init"}`))
	require.NoError(t, err)
	assert.Equal(t, "init", v.Type)

	_, err = DecodeInto[rec]([]byte(`not json`))
	require.Error(t, err)
}
