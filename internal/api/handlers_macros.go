// handlers_macros.go - Stored macro CRUD handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gcode-analyzer/backend/internal/macros"
)

// MacroHandlerImpl implements the MacroHandler interface
type MacroHandlerImpl struct {
	store *macros.Store
}

// NewMacroHandler creates a new macro handler instance
func NewMacroHandler(store *macros.Store) MacroHandler {
	return &MacroHandlerImpl{store: store}
}

// HandleListMacros returns all stored macros sorted by name
func (h *MacroHandlerImpl) HandleListMacros(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.List())
}

// HandleGetMacro returns a single macro by name
func (h *MacroHandlerImpl) HandleGetMacro(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return NewValidationError("name")
	}

	macro, ok := h.store.Get(name)
	if !ok {
		return NewNotFoundError("macro", name)
	}

	return c.JSON(http.StatusOK, macro)
}

// HandleSaveMacro creates or replaces a macro
func (h *MacroHandlerImpl) HandleSaveMacro(c echo.Context) error {
	var req saveMacroRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Name == "" {
		return NewValidationError("name")
	}
	if req.Text == "" {
		return NewValidationError("text")
	}

	macro, err := h.store.Save(req.Name, req.Text)
	if err != nil {
		return NewInternalError("failed to save macro", err)
	}

	return c.JSON(http.StatusOK, macro)
}

// HandleDeleteMacro removes a macro by name
func (h *MacroHandlerImpl) HandleDeleteMacro(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return NewValidationError("name")
	}

	if err := h.store.Delete(name); err != nil {
		return NewNotFoundError("macro", name)
	}

	return c.NoContent(http.StatusNoContent)
}

type saveMacroRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}
