package gcode

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gcode-analyzer/backend/internal/models"
)

func TestClassifierCaseAndLeadingZeros(t *testing.T) {
	for _, line := range []string{"g0 x1", "G0 X1", "G00 X1", "g00 x1"} {
		res := ParseLines([]string{line})
		if res.TotalCommands() != 1 {
			t.Fatalf("%q: expected 1 command, got %d", line, res.TotalCommands())
		}
		if res.Commands[0].Type != models.CommandTypeRapid {
			t.Errorf("%q: expected rapid, got %s", line, res.Commands[0].Type)
		}
	}

	a := ParseLines([]string{"G1 X-5.5"})
	b := ParseLines([]string{"g01 x-5.500"})
	if a.Commands[0].Type != b.Commands[0].Type {
		t.Errorf("G1 and g01 classified differently")
	}
	if *a.Commands[0].X != *b.Commands[0].X {
		t.Errorf("X-5.5 and x-5.500 parsed differently: %v vs %v",
			*a.Commands[0].X, *b.Commands[0].X)
	}
}

func TestNonMotionCodesIgnored(t *testing.T) {
	res := ParseLines([]string{"G21", "G90", "M3 S1000", "T1", "G4 P100"})
	if res.TotalCommands() != 0 {
		t.Errorf("expected 0 commands, got %d", res.TotalCommands())
	}
	// The only diagnostic should be the no-movement error.
	if len(res.Errors) != 1 || res.Errors[0].Line != 0 {
		t.Fatalf("expected single no-movement error at line 0, got %+v", res.Errors)
	}
}

func TestModalContinuationIgnored(t *testing.T) {
	res := ParseLines([]string{"G1 X1 Y1", "X2 Y2"})
	if res.TotalCommands() != 1 {
		t.Errorf("parameter-only line should not produce a command, got %d", res.TotalCommands())
	}
	if len(res.Errors) != 0 {
		t.Errorf("parameter-only line should not produce errors, got %+v", res.Errors)
	}
}

func TestCommentsAndBlankLines(t *testing.T) {
	res := ParseLines([]string{
		"; full line comment",
		"(setup block)",
		"",
		"G0 X1 Y2 ; move over",
		"G1 X3 (cut) ",
	})
	if res.TotalCommands() != 2 {
		t.Fatalf("expected 2 commands, got %d", res.TotalCommands())
	}
	if res.Commands[0].Line != 4 || res.Commands[1].Line != 5 {
		t.Errorf("line numbers wrong: %d, %d", res.Commands[0].Line, res.Commands[1].Line)
	}
	if res.TotalLines != 5 {
		t.Errorf("expected 5 total lines, got %d", res.TotalLines)
	}
}

func TestInvalidParameterValue(t *testing.T) {
	res := ParseLines([]string{"G1 X1.2.3 Y5"})
	if res.TotalCommands() != 1 {
		t.Fatalf("command should survive a malformed parameter, got %d commands", res.TotalCommands())
	}
	cmd := res.Commands[0]
	if cmd.X != nil {
		t.Errorf("malformed X should not be assigned, got %v", *cmd.X)
	}
	if cmd.Y == nil || *cmd.Y != 5 {
		t.Errorf("Y should still parse, got %v", cmd.Y)
	}
	found := false
	for _, e := range res.Errors {
		if e.Line == 1 && e.Message == "Invalid parameter value: X1.2.3" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing invalid-parameter error, got %+v", res.Errors)
	}
}

func TestArcMissingOffsets(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0", "G2 X10 Y0 F300"})
	if res.TotalCommands() != 2 {
		t.Fatalf("arc without offsets should still be recorded, got %d commands", res.TotalCommands())
	}
	found := false
	for _, e := range res.Errors {
		if e.Line == 2 && e.Message == "Arc command G2 missing I, J, or K offset parameters." {
			found = true
		}
	}
	if !found {
		t.Errorf("missing arc-offset error, got %+v", res.Errors)
	}
	arc := res.Commands[1]
	if arc.EndX != 10 || arc.EndY != 0 {
		t.Errorf("arc endpoint wrong: %v %v", arc.EndX, arc.EndY)
	}
	// Degenerate arc contributes its linear length.
	if d := res.TotalDistance(); math.Abs(d-10) > 1e-9 {
		t.Errorf("expected fallback linear distance 10, got %v", d)
	}
}

func TestPositionContinuity(t *testing.T) {
	res := ParseLines([]string{
		"G0 X1 Y2 Z3",
		"G1 X5",
		"G1 Y7",
		"G1 Z9",
	})
	if res.TotalCommands() != 4 {
		t.Fatalf("expected 4 commands, got %d", res.TotalCommands())
	}
	want := []point{{1, 2, 3}, {5, 2, 3}, {5, 7, 3}, {5, 7, 9}}
	for i, cmd := range res.Commands {
		got := point{cmd.EndX, cmd.EndY, cmd.EndZ}
		if got != want[i] {
			t.Errorf("command %d endpoint = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestRoundTripScenario(t *testing.T) {
	res := ParseLines([]string{"G21", "G90", "G0 X0 Y0 Z5", "G1 X10 Y0 F500", "G1 X10 Y0 F500"})

	if res.TotalCommands() != 2 {
		t.Fatalf("expected 2 commands, got %d", res.TotalCommands())
	}
	if res.MinX != 0 || res.MaxX != 10 || res.MinY != 0 || res.MaxY != 0 || res.MinZ != 5 || res.MaxZ != 5 {
		t.Errorf("bounds wrong: X[%v,%v] Y[%v,%v] Z[%v,%v]",
			res.MinX, res.MaxX, res.MinY, res.MaxY, res.MinZ, res.MaxZ)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", res.Errors)
	}
	e := res.Errors[0]
	if e.Line != 5 {
		t.Errorf("error line = %d, want 5", e.Line)
	}
	if e.Message != "Redundant move: tool is already at position X10.000 Y0.000 Z5.000" {
		t.Errorf("unexpected message: %q", e.Message)
	}
	if e.RelatedLine != 0 {
		t.Errorf("redundant move should have no related line, got %d", e.RelatedLine)
	}
}

func TestDuplicateToolpathSymmetry(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0", "G1 X10 Y0", "G1 X0 Y0"})

	if res.TotalCommands() != 3 {
		t.Fatalf("duplicate move should still be recorded, got %d commands", res.TotalCommands())
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 duplicate error, got %+v", res.Errors)
	}
	e := res.Errors[0]
	if e.Line != 3 || e.RelatedLine != 2 {
		t.Errorf("duplicate error at line %d related %d, want 3/2", e.Line, e.RelatedLine)
	}
	if !strings.HasPrefix(e.Message, "Duplicate toolpath: segment from ") ||
		!strings.HasSuffix(e.Message, "duplicates line 2") {
		t.Errorf("unexpected message: %q", e.Message)
	}
}

func TestToleranceBoundary(t *testing.T) {
	// 0.00005 per axis is within tolerance: redundant move.
	res := ParseLines([]string{
		"G0 X0 Y0 Z0",
		"G1 X1 Y1 Z1",
		"G1 X1.00005 Y1.00005 Z1.00005",
	})
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0].Message, "Redundant move") {
		t.Errorf("0.00005 offset should be redundant, got %+v", res.Errors)
	}

	// 0.0002 on a single axis is distinct.
	res = ParseLines([]string{
		"G0 X0 Y0 Z0",
		"G1 X1 Y1 Z1",
		"G1 X1.0002",
	})
	if len(res.Errors) != 0 {
		t.Errorf("0.0002 offset should be a distinct move, got %+v", res.Errors)
	}
}

func TestEmptyFileScenario(t *testing.T) {
	res := ParseLines([]string{"; nothing here", "(just comments)", "   "})
	if res.TotalCommands() != 0 {
		t.Fatalf("expected no commands, got %d", res.TotalCommands())
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly 1 error, got %+v", res.Errors)
	}
	if res.Errors[0].Line != 0 || res.Errors[0].Message != "No movement commands found in file." {
		t.Errorf("unexpected error: %+v", res.Errors[0])
	}
}

func TestParseIdempotence(t *testing.T) {
	lines := []string{
		"G0 X0 Y0 Z5",
		"G1 X10 Y0 F500",
		"G2 X20 Y0 I5 J0",
		"G1 X10 Y0",
		"G1 X10 Y0",
		"badline X1.2.3",
	}
	a := ParseLines(lines)
	b := ParseLines(lines)
	if !reflect.DeepEqual(a.Commands, b.Commands) {
		t.Errorf("commands differ between identical parses")
	}
	if !reflect.DeepEqual(a.Errors, b.Errors) {
		t.Errorf("errors differ between identical parses")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.nc")
	content := "G0 X0 Y0\r\nG1 X10 Y0 F500\rG1 X10 Y10\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if res.TotalCommands() != 3 {
		t.Errorf("expected 3 commands across mixed line endings, got %d", res.TotalCommands())
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.nc")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestParseFileWithProgress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long.gcode")
	var sb strings.Builder
	for i := 0; i < 3*progressInterval; i++ {
		sb.WriteString("G1 X")
		sb.WriteString(strings.Repeat("1", 1+i%3))
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}

	calls := 0
	last := 0
	res, err := ParseFileWithProgress(path, func(processed, total int) {
		calls++
		if processed < last {
			t.Errorf("progress went backwards: %d after %d", processed, last)
		}
		last = processed
	})
	if err != nil {
		t.Fatalf("ParseFileWithProgress: %v", err)
	}
	if calls < 3 {
		t.Errorf("expected periodic progress callbacks, got %d", calls)
	}
	if res.TotalCommands() == 0 {
		t.Errorf("expected commands from generated file")
	}
}
