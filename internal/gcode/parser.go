// Package gcode parses CNC toolpath programs and computes geometric bounds,
// run-time estimates, and structural diagnostics (malformed parameters,
// redundant moves, duplicate toolpaths).
//
// The parser is a single forward pass over the source lines. It holds no
// state between invocations; concurrent parses of different inputs are safe
// because each call owns its Result and its segment map.
package gcode

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gcode-analyzer/backend/internal/models"
)

// ProgressCallback is called periodically during parsing to report progress.
type ProgressCallback func(linesProcessed, totalLines int)

// progressInterval is how many lines are processed between progress reports.
const progressInterval = 5000

var (
	// commandRegex matches a leading G/M/T command code on an uppercased,
	// comment-stripped line. Leading zeros in the number are insignificant
	// ("G00" == "G0").
	commandRegex = regexp.MustCompile(`^([GMT])(\d+)`)

	// paramRegex matches parameter letter/value pairs anywhere on the line.
	// The value class is deliberately loose ([\d.]) so that malformed
	// numbers like "X1.2.3" are caught by ParseFloat and reported rather
	// than silently skipped.
	paramRegex = regexp.MustCompile(`([XYZIJKFSE])([-+]?[\d.]+)`)
)

// ParseFile reads a G-code program and analyzes it. The only fatal condition
// is the file not being readable; everything found inside the program is
// recorded as diagnostics on the Result.
func ParseFile(path string) (*Result, error) {
	return ParseFileWithProgress(path, nil)
}

// ParseFileWithProgress is ParseFile with progress callbacks for large files.
func ParseFileWithProgress(path string, onProgress ProgressCallback) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading G-code file: %w", err)
	}
	return parse(splitLines(string(data)), onProgress), nil
}

// ParseLines analyzes an in-memory program, one instruction block per line.
func ParseLines(lines []string) *Result {
	return parse(lines, nil)
}

func parse(lines []string, onProgress ProgressCallback) *Result {
	res := NewResult()
	res.TotalLines = len(lines)

	var pos point // machine starts at origin, absolute positioning assumed
	seen := newSegmentSet()
	motionCount := 0

	for i, raw := range lines {
		lineNo := i + 1

		if onProgress != nil && lineNo%progressInterval == 0 {
			onProgress(lineNo, len(lines))
		}

		cleaned := stripComments(raw)
		if cleaned == "" {
			continue
		}

		cmd := tokenize(cleaned, lineNo, res)
		if cmd == nil || !cmd.Type.IsMotion() {
			continue
		}

		prev := pos
		applyAxes(&pos, cmd)
		cmd.EndX, cmd.EndY, cmd.EndZ = pos.X, pos.Y, pos.Z

		motionCount++
		if motionCount > 1 {
			if prev.almostEqual(pos) {
				res.recordError(lineNo, fmt.Sprintf(
					"Redundant move: tool is already at position X%.3f Y%.3f Z%.3f",
					pos.X, pos.Y, pos.Z))
				// Zero-length moves are not registered as segments
				// and do not join the command list.
				continue
			}
			seg := segment{a: prev, b: pos}
			if first, ok := seen.firstSeen(seg); ok {
				res.recordDuplicate(lineNo, first, fmt.Sprintf(
					"Duplicate toolpath: segment from (%.3f, %.3f, %.3f) to (%.3f, %.3f, %.3f) duplicates line %d",
					prev.X, prev.Y, prev.Z, pos.X, pos.Y, pos.Z, first))
			} else {
				seen.insert(seg, lineNo)
			}
		}

		res.appendCommand(*cmd)
		res.updateBounds(pos)
	}

	if motionCount == 0 {
		res.recordError(0, "No movement commands found in file.")
	}

	if onProgress != nil {
		onProgress(len(lines), len(lines))
	}
	return res
}

// tokenize extracts the command code and parameters from one cleaned line.
// It returns nil when the line contributes nothing: no leading command token
// (a bare-parameter modal continuation included), or a G/M/T code outside
// the four tracked motion types. Parameter problems are recorded on res and
// never fail the command.
func tokenize(cleaned string, lineNo int, res *Result) *models.Command {
	upper := strings.ToUpper(cleaned)

	m := commandRegex.FindStringSubmatch(upper)
	if m == nil {
		return nil
	}

	num, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	token := m[1] + strconv.Itoa(num)

	ctype := classify(m[1], num)
	if ctype == models.CommandTypeUnknown {
		return nil
	}

	cmd := &models.Command{
		Type: ctype,
		Line: lineNo,
		Raw:  cleaned,
	}

	for _, pm := range paramRegex.FindAllStringSubmatch(upper, -1) {
		letter, valStr := pm[1], pm[2]
		v, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			res.recordError(lineNo, fmt.Sprintf("Invalid parameter value: %s%s", letter, valStr))
			continue
		}
		assignParam(cmd, letter, v)
	}

	if (ctype == models.CommandTypeArcCW || ctype == models.CommandTypeArcCCW) &&
		cmd.I == nil && cmd.J == nil && cmd.K == nil {
		res.recordError(lineNo, fmt.Sprintf(
			"Arc command %s missing I, J, or K offset parameters.", token))
	}

	return cmd
}

// classify maps a normalized command code to a motion type. Every other
// G/M/T code is recognized syntactically but deliberately not tracked: no
// modal state beyond position and feed rate is modeled.
func classify(letter string, num int) models.CommandType {
	if letter != "G" {
		return models.CommandTypeUnknown
	}
	switch num {
	case 0:
		return models.CommandTypeRapid
	case 1:
		return models.CommandTypeLinear
	case 2:
		return models.CommandTypeArcCW
	case 3:
		return models.CommandTypeArcCCW
	}
	return models.CommandTypeUnknown
}

func assignParam(cmd *models.Command, letter string, v float64) {
	val := v
	switch letter {
	case "X":
		cmd.X = &val
	case "Y":
		cmd.Y = &val
	case "Z":
		cmd.Z = &val
	case "I":
		cmd.I = &val
	case "J":
		cmd.J = &val
	case "K":
		cmd.K = &val
	case "F":
		cmd.F = &val
	case "S":
		cmd.S = &val
	case "E":
		cmd.E = &val
	}
}

// applyAxes overwrites only the axes present on the command; absent axes
// keep their prior absolute value.
func applyAxes(pos *point, cmd *models.Command) {
	if cmd.X != nil {
		pos.X = *cmd.X
	}
	if cmd.Y != nil {
		pos.Y = *cmd.Y
	}
	if cmd.Z != nil {
		pos.Z = *cmd.Z
	}
}

// stripComments trims a raw line and cuts everything from the first ';' or
// '(' to end of line. Nested or closed parens are not tracked.
func stripComments(line string) string {
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	if idx := strings.IndexByte(line, '('); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// splitLines accepts any line-ending convention. A trailing newline does not
// count as an extra source line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
