// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package preferences

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetEmptyWhenMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "preferences.json"))
	prefs, err := s.Get()
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestStore_UpdateAndGet(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "preferences.json"))

	updated, err := s.Update(Preferences{"theme": "dark"})
	require.NoError(t, err)
	assert.Equal(t, "dark", updated["theme"])

	fetched, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "dark", fetched["theme"])
}

func TestStore_UpdateMergesOverExisting(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "preferences.json"))

	_, err := s.Update(Preferences{"theme": "dark", "fontSize": float64(14)})
	require.NoError(t, err)

	updated, err := s.Update(Preferences{"theme": "light"})
	require.NoError(t, err)
	assert.Equal(t, "light", updated["theme"])
	assert.Equal(t, float64(14), updated["fontSize"])
}
