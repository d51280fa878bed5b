// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/gcode-analyzer/backend/internal/gcode"
	"github.com/gcode-analyzer/backend/internal/models"
)

// FileHandler handles program upload and file management operations
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadBinary(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleUploadJobStatus(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// AnalyzeHandler handles analysis session operations
type AnalyzeHandler interface {
	HandleStartAnalysis(c echo.Context) error
	HandleAnalysisStatus(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleGetCommands(c echo.Context) error
	HandleGetCommandsMsgpack(c echo.Context) error
	HandleGetErrors(c echo.Context) error
	HandleGetSummary(c echo.Context) error
}

// MacroHandler handles stored macro operations
type MacroHandler interface {
	HandleListMacros(c echo.Context) error
	HandleGetMacro(c echo.Context) error
	HandleSaveMacro(c echo.Context) error
	HandleDeleteMacro(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// AnalysisManager defines the interface for session management
// This allows mocking in tests
type AnalysisManager interface {
	StartAnalysis(fileID, filePath string) (*models.AnalysisSession, error)
	GetSession(id string) (*models.AnalysisSession, bool)
	TouchSession(id string) bool
	GetResult(id string) (*gcode.Result, bool)
	GetCommands(id string, page, pageSize int) ([]models.Command, int, bool)
	GetErrors(id string) ([]models.GCodeError, bool)
	DeleteParsedFile(fileID string) error
	Rates() gcode.Rates
}
