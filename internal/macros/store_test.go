package macros

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	_, err = store.Save("probe", "G38.2 Z-10 F100\nG92 Z0")
	require.NoError(t, err)
	_, err = store.Save("home", "G0 X0 Y0 Z5")
	require.NoError(t, err)

	m, ok := store.Get("probe")
	require.True(t, ok)
	assert.Contains(t, m.Text, "G38.2")

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "home", list[0].Name) // sorted by name

	require.NoError(t, store.Delete("home"))
	_, ok = store.Get("home")
	assert.False(t, ok)

	assert.Error(t, store.Delete("home"))
}

func TestPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.json")

	store, err := NewStore(path)
	require.NoError(t, err)
	_, err = store.Save("facing", "G1 X100 F800")
	require.NoError(t, err)

	reloaded, err := NewStore(path)
	require.NoError(t, err)

	m, ok := reloaded.Get("facing")
	require.True(t, ok)
	assert.Equal(t, "G1 X100 F800", m.Text)
}

func TestSaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	_, err = store.Save("probe", "old")
	require.NoError(t, err)
	_, err = store.Save("probe", "new")
	require.NoError(t, err)

	m, _ := store.Get("probe")
	assert.Equal(t, "new", m.Text)
	assert.Len(t, store.List(), 1)
}
