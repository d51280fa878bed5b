package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestIsProgramFile(t *testing.T) {
	assert.True(t, IsProgramFile("part.nc"))
	assert.True(t, IsProgramFile("PART.GCODE"))
	assert.True(t, IsProgramFile("fixture.ngc"))
	assert.True(t, IsProgramFile("job.tap"))
	assert.False(t, IsProgramFile("notes.txt"))
	assert.False(t, IsProgramFile("rules.yaml"))
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)

	content := "G0 X0 Y0\nG1 X10 Y0 F500\n"
	info, err := store.Save("part.nc", strings.NewReader(content))
	require.NoError(t, err)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "part.nc", info.Name)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "uploaded", info.Status)

	path, err := store.GetFilePath(info.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	got, err := store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	_, err = store.Get("nope")
	assert.Error(t, err)
}

func TestListOrdersByUploadTime(t *testing.T) {
	store := newTestStore(t)

	first, err := store.SaveBytes("a.nc", []byte("G0 X0"))
	require.NoError(t, err)
	second, err := store.SaveBytes("b.nc", []byte("G0 X1"))
	require.NoError(t, err)
	// Force a strict ordering regardless of clock resolution.
	second.UploadedAt = first.UploadedAt.Add(1)

	list, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	list, err = store.List(1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteAndRename(t *testing.T) {
	store := newTestStore(t)

	info, err := store.SaveBytes("part.nc", []byte("G0 X0"))
	require.NoError(t, err)

	renamed, err := store.Rename(info.ID, "renamed.nc")
	require.NoError(t, err)
	assert.Equal(t, "renamed.nc", renamed.Name)

	require.NoError(t, store.SetStatus(info.ID, "analyzed"))
	got, _ := store.Get(info.ID)
	assert.Equal(t, "analyzed", got.Status)

	path, _ := store.GetFilePath(info.ID)
	require.NoError(t, store.Delete(info.ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, store.Delete(info.ID))
}

func TestChunkedUpload(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveChunk("up1", 0, strings.NewReader("G0 X0\n")))
	require.NoError(t, store.SaveChunk("up1", 1, strings.NewReader("G1 X10 F500\n")))

	info, err := store.CompleteChunkedUpload("up1", "part.nc", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(len("G0 X0\nG1 X10 F500\n")), info.Size)

	path, err := store.GetFilePath(info.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "G0 X0\nG1 X10 F500\n", string(data))
}
