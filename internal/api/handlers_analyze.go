// handlers_analyze.go - Analysis session operation handlers
package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gcode-analyzer/backend/internal/gcode"
	"github.com/gcode-analyzer/backend/internal/models"
	"github.com/gcode-analyzer/backend/internal/storage"
)

// AnalyzeHandlerImpl implements the AnalyzeHandler interface
type AnalyzeHandlerImpl struct {
	store      storage.Store
	sessionMgr AnalysisManager
}

// NewAnalyzeHandler creates a new analysis handler instance
func NewAnalyzeHandler(store storage.Store, sessionMgr AnalysisManager) AnalyzeHandler {
	return &AnalyzeHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
	}
}

// HandleStartAnalysis starts a new analysis session for a file
func (h *AnalyzeHandlerImpl) HandleStartAnalysis(c echo.Context) error {
	var req startAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	info, err := h.store.Get(req.FileID)
	if err != nil {
		return NewNotFoundError("file", req.FileID)
	}

	path, err := h.store.GetFilePath(info.ID)
	if err != nil {
		return NewInternalError("failed to get file path", err)
	}

	sess, err := h.sessionMgr.StartAnalysis(info.ID, path)
	if err != nil {
		return NewInternalError("failed to start analysis", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleAnalysisStatus returns the current status of an analysis session
func (h *AnalyzeHandlerImpl) HandleAnalysisStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *AnalyzeHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleGetCommands returns paginated movement commands for a session
func (h *AnalyzeHandlerImpl) HandleGetCommands(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	page, pageSize := paginationParams(c)

	commands, total, ok := h.sessionMgr.GetCommands(id, page, pageSize)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, commandsResponse{
		Commands: commands,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// HandleGetCommandsMsgpack returns commands in MessagePack format.
// Large programs carry hundreds of thousands of commands; msgpack keeps
// the payload roughly a third of the JSON equivalent.
func (h *AnalyzeHandlerImpl) HandleGetCommandsMsgpack(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	page, pageSize := paginationParams(c)

	commands, total, ok := h.sessionMgr.GetCommands(id, page, pageSize)
	if !ok {
		return NewNotFoundError("session", id)
	}

	payload, err := msgpack.Marshal(commandsResponse{
		Commands: commands,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
	if err != nil {
		return NewInternalError("failed to encode commands", err)
	}

	return c.Blob(http.StatusOK, "application/x-msgpack", payload)
}

// HandleGetErrors returns the diagnostics collected for a session
func (h *AnalyzeHandlerImpl) HandleGetErrors(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	errs, ok := h.sessionMgr.GetErrors(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, errs)
}

// HandleGetSummary returns aggregate statistics for a completed analysis
func (h *AnalyzeHandlerImpl) HandleGetSummary(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	res, ok := h.sessionMgr.GetResult(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	return c.JSON(http.StatusOK, buildSummary(res, h.sessionMgr.Rates()))
}

// Request/Response types

type startAnalysisRequest struct {
	FileID string `json:"fileId"`
}

type commandsResponse struct {
	Commands []models.Command `json:"commands"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
}

type boundsResponse struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
	MinZ float64 `json:"minZ"`
	MaxZ float64 `json:"maxZ"`
}

type summaryResponse struct {
	TotalLines       int             `json:"totalLines"`
	TotalCommands    int             `json:"totalCommands"`
	RapidMoves       int             `json:"rapidMoves"`
	LinearMoves      int             `json:"linearMoves"`
	ArcMoves         int             `json:"arcMoves"`
	ErrorCount       int             `json:"errorCount"`
	Bounds           *boundsResponse `json:"bounds,omitempty"`
	Width            float64         `json:"width"`
	Height           float64         `json:"height"`
	Depth            float64         `json:"depth"`
	TotalDistance    float64         `json:"totalDistance"`
	CuttingDistance  float64         `json:"cuttingDistance"`
	RapidDistance    float64         `json:"rapidDistance"`
	EstimatedTimeSec float64         `json:"estimatedTimeSec"`
	EstimatedTime    string          `json:"estimatedTime"`
}

func buildSummary(res *gcode.Result, rates gcode.Rates) summaryResponse {
	summary := summaryResponse{
		TotalLines:    res.TotalLines,
		TotalCommands: res.TotalCommands(),
		RapidMoves:    res.CountByType(models.CommandTypeRapid),
		LinearMoves:   res.CountByType(models.CommandTypeLinear),
		ArcMoves:      res.CountByType(models.CommandTypeArcCW) + res.CountByType(models.CommandTypeArcCCW),
		ErrorCount:    len(res.Errors),
	}

	// Bounds are Inf sentinels when no motion command was accepted.
	if summary.TotalCommands > 0 && !math.IsInf(res.MinX, 1) {
		summary.Bounds = &boundsResponse{
			MinX: res.MinX, MaxX: res.MaxX,
			MinY: res.MinY, MaxY: res.MaxY,
			MinZ: res.MinZ, MaxZ: res.MaxZ,
		}
		summary.Width = res.Width()
		summary.Height = res.Height()
		summary.Depth = res.Depth()
	}

	summary.TotalDistance = res.TotalDistance()
	summary.CuttingDistance = res.CuttingDistance()
	summary.RapidDistance = res.RapidDistance()

	est := res.EstimateRunTime(rates)
	summary.EstimatedTimeSec = est.Seconds()
	summary.EstimatedTime = gcode.FormatDuration(est)

	return summary
}

func paginationParams(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 10000 {
		pageSize = 1000
	}
	return page, pageSize
}
