// handlers_macros_test.go - Tests for macro handlers
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/gcode-analyzer/backend/internal/macros"
	"github.com/gcode-analyzer/backend/internal/models"
)

func newMacroHandler(t *testing.T) MacroHandler {
	t.Helper()
	store, err := macros.NewStore(filepath.Join(t.TempDir(), "macros.json"))
	if err != nil {
		t.Fatalf("creating macro store: %v", err)
	}
	return NewMacroHandler(store)
}

func saveMacro(t *testing.T, handler MacroHandler, name, text string) {
	t.Helper()
	e := echo.New()
	body, _ := json.Marshal(saveMacroRequest{Name: name, Text: text})
	req := httptest.NewRequest(http.MethodPost, "/api/macros", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleSaveMacro(c); err != nil {
		t.Fatalf("saving macro %s: %v", name, err)
	}
}

func TestMacroHandler_SaveAndList(t *testing.T) {
	handler := newMacroHandler(t)
	saveMacro(t, handler, "probe", "G0 Z5\nG1 Z-1 F50\n")
	saveMacro(t, handler, "home", "G0 X0 Y0\n")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/macros", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleListMacros(c); err != nil {
		t.Fatalf("listing macros: %v", err)
	}

	var list []models.Macro
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 macros, got %d", len(list))
	}
	// List is sorted by name
	if list[0].Name != "home" || list[1].Name != "probe" {
		t.Errorf("unexpected order: %s, %s", list[0].Name, list[1].Name)
	}
}

func TestMacroHandler_GetMacro(t *testing.T) {
	handler := newMacroHandler(t)
	saveMacro(t, handler, "probe", "G0 Z5\n")

	e := echo.New()

	t.Run("existing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("name")
		c.SetParamValues("probe")

		if err := handler.HandleGetMacro(c); err != nil {
			t.Fatalf("get macro: %v", err)
		}
		var macro models.Macro
		if err := json.Unmarshal(rec.Body.Bytes(), &macro); err != nil {
			t.Fatalf("decoding macro: %v", err)
		}
		if macro.Text != "G0 Z5\n" {
			t.Errorf("unexpected text: %q", macro.Text)
		}
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("name")
		c.SetParamValues("nope")

		err := handler.HandleGetMacro(c)
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", apiErr.Status)
		}
	})
}

func TestMacroHandler_DeleteMacro(t *testing.T) {
	handler := newMacroHandler(t)
	saveMacro(t, handler, "probe", "G0 Z5\n")

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("probe")

	if err := handler.HandleDeleteMacro(c); err != nil {
		t.Fatalf("delete macro: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("probe")
	if err := handler.HandleGetMacro(c); err == nil {
		t.Error("expected error getting deleted macro")
	}
}

func TestMacroHandler_SaveMacro_Validation(t *testing.T) {
	handler := newMacroHandler(t)

	e := echo.New()
	body, _ := json.Marshal(saveMacroRequest{Name: "", Text: "G0 X0"})
	req := httptest.NewRequest(http.MethodPost, "/api/macros", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleSaveMacro(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", apiErr.Code)
	}
}
