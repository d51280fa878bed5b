// Package session runs G-code analyses in the background and holds their
// results for the API layer.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcode-analyzer/backend/internal/archive"
	"github.com/gcode-analyzer/backend/internal/gcode"
	"github.com/gcode-analyzer/backend/internal/models"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion.
const MaxSessions = 10

// SessionMaxAge is how long to keep completed sessions before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively
// being used.
const SessionKeepAliveWindow = 5 * time.Minute

// shortID safely truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// State holds the session metadata and the completed analysis.
type State struct {
	Session      *models.AnalysisSession
	Result       *gcode.Result
	LastAccessed time.Time
}

// Manager handles active analysis sessions.
type Manager struct {
	sessions map[string]*State
	mu       sync.RWMutex
	archive  *archive.Store // nil disables persistence
	rates    gcode.Rates
}

// NewManager creates a session manager. arch may be nil to disable the
// analysis archive; rates parameterize the run-time estimate.
func NewManager(arch *archive.Store, rates gcode.Rates) *Manager {
	return &Manager{
		sessions: make(map[string]*State),
		archive:  arch,
		rates:    rates,
	}
}

// Rates returns the estimator rates the manager was configured with.
func (m *Manager) Rates() gcode.Rates {
	return m.rates
}

// StartAnalysis begins analyzing a stored program in the background.
func (m *Manager) StartAnalysis(fileID, filePath string) (*models.AnalysisSession, error) {
	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()

	session := models.NewAnalysisSession(sessionID, fileID)
	session.Status = models.SessionStatusAnalyzing

	m.mu.Lock()
	m.sessions[sessionID] = &State{
		Session:      session,
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	go m.runAnalysis(sessionID, fileID, filePath)

	return session, nil
}

func (m *Manager) runAnalysis(sessionID, fileID, filePath string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Analyze %s] PANIC recovered: %v\n", shortID(sessionID), r)
			m.updateSessionError(sessionID, fmt.Sprintf("analysis panicked: %v", r))
		}
	}()

	start := time.Now()

	if m.archive != nil && m.archive.Has(fileID) {
		res, err := m.archive.LoadResult(fileID)
		if err == nil {
			fmt.Printf("[Analyze %s] Loaded archived analysis for file %s\n",
				shortID(sessionID), shortID(fileID))
			m.finishSession(sessionID, res, start, true)
			return
		}
		fmt.Printf("[Analyze %s] Archive load failed, re-analyzing: %v\n", shortID(sessionID), err)
	}

	onProgress := func(processed, total int) {
		var progress float64
		if total > 0 {
			progress = 10.0 + float64(processed)*80.0/float64(total)
		} else {
			progress = 10.0
		}
		if progress > 89.9 {
			progress = 89.9
		}

		m.mu.Lock()
		if state, ok := m.sessions[sessionID]; ok {
			state.Session.Progress = progress
			state.Session.TotalLines = processed
		}
		m.mu.Unlock()
	}

	res, err := gcode.ParseFileWithProgress(filePath, onProgress)
	if err != nil {
		fmt.Printf("[Analyze %s] ERROR: %v\n", shortID(sessionID), err)
		m.updateSessionError(sessionID, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	fmt.Printf("[Analyze %s] Analysis complete: %d commands, %d errors\n",
		shortID(sessionID), res.TotalCommands(), len(res.Errors))

	if m.archive != nil {
		if err := m.archive.SaveResult(fileID, res); err != nil {
			// Non-fatal: the in-memory result still serves this session.
			fmt.Printf("[Analyze %s] Archive save failed: %v\n", shortID(sessionID), err)
		}
	}

	m.finishSession(sessionID, res, start, false)
}

func (m *Manager) finishSession(sessionID string, res *gcode.Result, start time.Time, fromArchive bool) {
	elapsed := time.Since(start).Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Result = res
	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.TotalLines = res.TotalLines
	state.Session.CommandCount = res.TotalCommands()
	state.Session.ErrorCount = len(res.Errors)
	state.Session.ProcessingTimeMs = elapsed
	state.Session.FromArchive = fromArchive
	state.Session.Errors = append([]models.GCodeError(nil), res.Errors...)
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Errors = append(state.Session.Errors, models.GCodeError{Message: reason})
}

// cleanupOldSessionsIfNeeded removes finished sessions when at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	toFree := len(m.sessions) - MaxSessions + 1
	for id, state := range m.sessions {
		if toFree == 0 {
			break
		}
		if state.Session.Status == models.SessionStatusComplete ||
			state.Session.Status == models.SessionStatusError {
			delete(m.sessions, id)
			toFree--
			fmt.Printf("[Manager] Cleaned up old session %s to free memory\n", shortID(id))
		}
	}
}

// CleanupOldSessions removes finished sessions older than maxAge, keeping
// sessions accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		if state.Session.Status != models.SessionStatusComplete &&
			state.Session.Status != models.SessionStatusError {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged session %s (last accessed %s ago)\n",
				shortID(id), time.Since(state.LastAccessed).Round(time.Second))
		}
	}
}

// GetSession returns session metadata by ID.
func (m *Manager) GetSession(id string) (*models.AnalysisSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session, true
}

// TouchSession updates the LastAccessed timestamp so an actively used
// session is not cleaned up.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// GetResult returns the completed analysis for a session.
func (m *Manager) GetResult(id string) (*gcode.Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Result == nil {
		return nil, false
	}
	return state.Result, true
}

// GetCommands returns paginated motion commands for a session.
func (m *Manager) GetCommands(id string, page, pageSize int) ([]models.Command, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Result == nil {
		return nil, 0, false
	}

	total := len(state.Result.Commands)
	start := (page - 1) * pageSize
	if start < 0 {
		start = 0
	}
	if start >= total {
		return []models.Command{}, total, true
	}

	end := start + pageSize
	if end > total {
		end = total
	}
	return state.Result.Commands[start:end], total, true
}

// GetErrors returns all diagnostics for a session in detection order.
func (m *Manager) GetErrors(id string) ([]models.GCodeError, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Result == nil {
		return nil, false
	}
	return state.Result.Errors, true
}

// DeleteParsedFile drops any archived analysis for a file, typically when
// the file itself is deleted.
func (m *Manager) DeleteParsedFile(fileID string) error {
	if m.archive == nil {
		return nil
	}
	return m.archive.Delete(fileID)
}
