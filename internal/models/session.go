package models

// SessionStatus represents the status of an analysis session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusAnalyzing SessionStatus = "analyzing"
	SessionStatusComplete  SessionStatus = "complete"
	SessionStatusError     SessionStatus = "error"
)

// AnalysisSession represents one file analysis run.
type AnalysisSession struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId"`
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	TotalLines       int           `json:"totalLines,omitempty"`
	CommandCount     int           `json:"commandCount,omitempty"`
	ErrorCount       int           `json:"errorCount,omitempty"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	FromArchive      bool          `json:"fromArchive,omitempty"`
	Errors           []GCodeError  `json:"errors,omitempty"`
}

// NewAnalysisSession creates a new AnalysisSession in pending status.
func NewAnalysisSession(id, fileID string) *AnalysisSession {
	return &AnalysisSession{
		ID:       id,
		FileID:   fileID,
		Status:   SessionStatusPending,
		Progress: 0,
		Errors:   make([]GCodeError, 0),
	}
}
