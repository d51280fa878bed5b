// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/gcode-analyzer/backend/internal/macros"
	"github.com/gcode-analyzer/backend/internal/storage"
	"github.com/gcode-analyzer/backend/internal/upload"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr AnalysisManager
	UploadMgr  *upload.Manager
	MacroStore *macros.Store
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Files     FileHandler
	Analyze   AnalyzeHandler
	Macros    MacroHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Files:     NewFileHandler(deps.Store, deps.SessionMgr, deps.UploadMgr),
		Analyze:   NewAnalyzeHandler(deps.Store, deps.SessionMgr),
		Macros:    NewMacroHandler(deps.MacroStore),
		WebSocket: NewWebSocketHandler(deps.Store, deps.SessionMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// Program file routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", handlers.Files.HandleUploadFile)
	fileGroup.POST("/upload/binary", handlers.Files.HandleUploadBinary)
	fileGroup.POST("/upload/chunk", handlers.Files.HandleUploadChunk)
	fileGroup.POST("/upload/complete", handlers.Files.HandleCompleteUpload)
	fileGroup.GET("/upload/jobs/:jobId", handlers.Files.HandleUploadJobStatus)
	fileGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Files.HandleDeleteFile)
	fileGroup.PUT("/:id", handlers.Files.HandleRenameFile)

	// Analysis session routes
	analyzeGroup := e.Group("/api/analyze")
	analyzeGroup.POST("", handlers.Analyze.HandleStartAnalysis)
	analyzeGroup.GET("/:sessionId/status", handlers.Analyze.HandleAnalysisStatus)
	analyzeGroup.POST("/:sessionId/keepalive", handlers.Analyze.HandleSessionKeepAlive)
	analyzeGroup.GET("/:sessionId/commands", handlers.Analyze.HandleGetCommands)
	analyzeGroup.GET("/:sessionId/commands/msgpack", handlers.Analyze.HandleGetCommandsMsgpack)
	analyzeGroup.GET("/:sessionId/errors", handlers.Analyze.HandleGetErrors)
	analyzeGroup.GET("/:sessionId/summary", handlers.Analyze.HandleGetSummary)

	// Macro routes
	macroGroup := e.Group("/api/macros")
	macroGroup.GET("", handlers.Macros.HandleListMacros)
	macroGroup.GET("/:name", handlers.Macros.HandleGetMacro)
	macroGroup.POST("", handlers.Macros.HandleSaveMacro)
	macroGroup.DELETE("/:name", handlers.Macros.HandleDeleteMacro)

	// WebSocket upload and progress streaming
	e.GET("/api/ws", handlers.WebSocket.HandleWebSocket)
}
