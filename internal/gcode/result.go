package gcode

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gcode-analyzer/backend/internal/models"
)

// Result is the aggregate output of one parse invocation. It is populated
// exclusively during that single pass and read-only to consumers afterward.
//
// The bounding box starts at the +Inf/-Inf sentinels; when no motion command
// was ever accepted the bounds and derived dimensions are meaningless, so
// callers check TotalCommands() first.
type Result struct {
	Commands   []models.Command    `json:"commands"`
	Errors     []models.GCodeError `json:"errors"`
	TotalLines int                 `json:"totalLines"`

	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
	MinZ float64 `json:"minZ"`
	MaxZ float64 `json:"maxZ"`
}

// NewResult creates an empty Result with "no data" bound sentinels.
func NewResult() *Result {
	return &Result{
		Commands: make([]models.Command, 0),
		Errors:   make([]models.GCodeError, 0),
		MinX:     math.Inf(1),
		MaxX:     math.Inf(-1),
		MinY:     math.Inf(1),
		MaxY:     math.Inf(-1),
		MinZ:     math.Inf(1),
		MaxZ:     math.Inf(-1),
	}
}

func (r *Result) appendCommand(cmd models.Command) {
	r.Commands = append(r.Commands, cmd)
}

func (r *Result) recordError(line int, message string) {
	r.Errors = append(r.Errors, models.GCodeError{Line: line, Message: message})
}

func (r *Result) recordDuplicate(line, firstLine int, message string) {
	r.Errors = append(r.Errors, models.GCodeError{
		Line:        line,
		Message:     message,
		RelatedLine: firstLine,
	})
}

func (r *Result) updateBounds(p point) {
	r.MinX = math.Min(r.MinX, p.X)
	r.MaxX = math.Max(r.MaxX, p.X)
	r.MinY = math.Min(r.MinY, p.Y)
	r.MaxY = math.Max(r.MaxY, p.Y)
	r.MinZ = math.Min(r.MinZ, p.Z)
	r.MaxZ = math.Max(r.MaxZ, p.Z)
}

// TotalCommands is the number of accepted motion commands.
func (r *Result) TotalCommands() int {
	return len(r.Commands)
}

// Width is MaxX - MinX. Meaningless when TotalCommands() == 0.
func (r *Result) Width() float64 { return r.MaxX - r.MinX }

// Height is MaxY - MinY. Meaningless when TotalCommands() == 0.
func (r *Result) Height() float64 { return r.MaxY - r.MinY }

// Depth is MaxZ - MinZ. Meaningless when TotalCommands() == 0.
func (r *Result) Depth() float64 { return r.MaxZ - r.MinZ }

// CountByType counts accepted commands of the given type.
func (r *Result) CountByType(t models.CommandType) int {
	n := 0
	for _, cmd := range r.Commands {
		if cmd.Type == t {
			n++
		}
	}
	return n
}

// FormatDuration renders an estimate for display.
func FormatDuration(d time.Duration) string {
	if d >= time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if d >= time.Minute {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Summary renders a multi-section human-readable report.
func (r *Result) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "G-code Analysis Summary\n")
	fmt.Fprintf(&b, "=======================\n")
	fmt.Fprintf(&b, "Lines:           %d\n", r.TotalLines)
	fmt.Fprintf(&b, "Motion commands: %d\n", r.TotalCommands())
	fmt.Fprintf(&b, "  Rapid (G0):    %d\n", r.CountByType(models.CommandTypeRapid))
	fmt.Fprintf(&b, "  Linear (G1):   %d\n", r.CountByType(models.CommandTypeLinear))
	fmt.Fprintf(&b, "  Arc CW (G2):   %d\n", r.CountByType(models.CommandTypeArcCW))
	fmt.Fprintf(&b, "  Arc CCW (G3):  %d\n", r.CountByType(models.CommandTypeArcCCW))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Distance:\n")
	fmt.Fprintf(&b, "  Total:   %.3f\n", r.TotalDistance())
	fmt.Fprintf(&b, "  Cutting: %.3f\n", r.CuttingDistance())
	fmt.Fprintf(&b, "  Rapid:   %.3f\n", r.RapidDistance())
	b.WriteString("\n")

	if r.TotalCommands() > 0 {
		fmt.Fprintf(&b, "Bounding box:\n")
		fmt.Fprintf(&b, "  X: %.3f to %.3f (width %.3f)\n", r.MinX, r.MaxX, r.Width())
		fmt.Fprintf(&b, "  Y: %.3f to %.3f (height %.3f)\n", r.MinY, r.MaxY, r.Height())
		fmt.Fprintf(&b, "  Z: %.3f to %.3f (depth %.3f)\n", r.MinZ, r.MaxZ, r.Depth())
	} else {
		fmt.Fprintf(&b, "Bounding box: no motion commands\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Estimated run time: %s\n", FormatDuration(r.EstimatedRunTime()))
	fmt.Fprintf(&b, "Errors: %d\n", len(r.Errors))

	return b.String()
}
