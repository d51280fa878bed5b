package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcode-analyzer/backend/internal/archive"
	"github.com/gcode-analyzer/backend/internal/gcode"
	"github.com/gcode-analyzer/backend/internal/models"
)

func writeProgram(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "part.nc")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func waitForStatus(t *testing.T, m *Manager, id string, want models.SessionStatus) *models.AnalysisSession {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if sess, ok := m.GetSession(id); ok && sess.Status == want {
			return sess
		}
		time.Sleep(10 * time.Millisecond)
	}
	sess, _ := m.GetSession(id)
	t.Fatalf("session never reached %s, currently %+v", want, sess)
	return nil
}

func TestAnalysisLifecycle(t *testing.T) {
	m := NewManager(nil, gcode.Rates{})
	path := writeProgram(t, "G0 X0 Y0 Z5\nG1 X10 Y0 F500\nG1 X10 Y0 F500\n")

	sess, err := m.StartAnalysis("file-1", path)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	done := waitForStatus(t, m, sess.ID, models.SessionStatusComplete)
	assert.Equal(t, 2, done.CommandCount)
	assert.Equal(t, 1, done.ErrorCount)
	assert.Equal(t, 3, done.TotalLines)
	assert.False(t, done.FromArchive)

	res, ok := m.GetResult(sess.ID)
	require.True(t, ok)
	assert.Equal(t, 10.0, res.MaxX)

	errs, ok := m.GetErrors(sess.ID)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Line)
}

func TestAnalysisMissingFile(t *testing.T) {
	m := NewManager(nil, gcode.Rates{})

	sess, err := m.StartAnalysis("file-1", filepath.Join(t.TempDir(), "missing.nc"))
	require.NoError(t, err)

	failed := waitForStatus(t, m, sess.ID, models.SessionStatusError)
	require.NotEmpty(t, failed.Errors)
}

func TestArchiveReuse(t *testing.T) {
	arch, err := archive.NewStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(arch, gcode.Rates{})

	path := writeProgram(t, "G0 X0 Y0\nG1 X10 Y0 F500\n")

	first, err := m.StartAnalysis("file-1", path)
	require.NoError(t, err)
	waitForStatus(t, m, first.ID, models.SessionStatusComplete)
	assert.True(t, arch.Has("file-1"))

	second, err := m.StartAnalysis("file-1", path)
	require.NoError(t, err)
	done := waitForStatus(t, m, second.ID, models.SessionStatusComplete)
	assert.True(t, done.FromArchive)
	assert.Equal(t, 2, done.CommandCount)

	require.NoError(t, m.DeleteParsedFile("file-1"))
	assert.False(t, arch.Has("file-1"))
}

func TestGetCommandsPagination(t *testing.T) {
	m := NewManager(nil, gcode.Rates{})
	path := writeProgram(t, "G0 X1\nG1 X2\nG1 X3\nG1 X4\nG1 X5\n")

	sess, err := m.StartAnalysis("file-1", path)
	require.NoError(t, err)
	waitForStatus(t, m, sess.ID, models.SessionStatusComplete)

	cmds, total, ok := m.GetCommands(sess.ID, 1, 2)
	require.True(t, ok)
	assert.Equal(t, 5, total)
	require.Len(t, cmds, 2)
	assert.Equal(t, 1, cmds[0].Line)

	cmds, _, _ = m.GetCommands(sess.ID, 3, 2)
	require.Len(t, cmds, 1)
	assert.Equal(t, 5, cmds[0].Line)

	cmds, _, _ = m.GetCommands(sess.ID, 9, 2)
	assert.Empty(t, cmds)

	assert.True(t, m.TouchSession(sess.ID))
	assert.False(t, m.TouchSession("unknown"))
}
