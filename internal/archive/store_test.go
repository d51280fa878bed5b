package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcode-analyzer/backend/internal/gcode"
)

func analyzedFixture() *gcode.Result {
	return gcode.ParseLines([]string{
		"G0 X0 Y0 Z5",
		"G1 X10 Y0 F500",
		"G2 X20 Y0 I5 J0",
		"G1 X10 Y0 Z3",
		"G1 X1.2.3",
	})
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	res := analyzedFixture()
	require.NoError(t, store.SaveResult("file-1", res))
	assert.True(t, store.Has("file-1"))

	loaded, err := store.LoadResult("file-1")
	require.NoError(t, err)

	assert.Equal(t, res.TotalLines, loaded.TotalLines)
	assert.Equal(t, res.Commands, loaded.Commands)
	assert.Equal(t, res.Errors, loaded.Errors)
	assert.Equal(t, res.MinX, loaded.MinX)
	assert.Equal(t, res.MaxX, loaded.MaxX)
	assert.Equal(t, res.MinZ, loaded.MinZ)

	// Derived values survive the round trip.
	assert.InDelta(t, res.TotalDistance(), loaded.TotalDistance(), 1e-9)
	assert.Equal(t, res.EstimatedRunTime(), loaded.EstimatedRunTime())
}

func TestScanExistingOnStartup(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveResult("file-1", analyzedFixture()))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	assert.True(t, reopened.Has("file-1"))

	loaded, err := reopened.LoadResult("file-1")
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.TotalCommands())
}

func TestDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveResult("file-1", analyzedFixture()))
	require.NoError(t, store.Delete("file-1"))
	assert.False(t, store.Has("file-1"))

	_, err = store.LoadResult("file-1")
	assert.Error(t, err)

	// Deleting a missing archive is not an error.
	assert.NoError(t, store.Delete("file-1"))
}
