// Package models contains domain types for the G-code Analyzer.
package models

// CommandType classifies a motion command.
type CommandType string

const (
	CommandTypeUnknown CommandType = "unknown"
	CommandTypeRapid   CommandType = "rapid"   // G0
	CommandTypeLinear  CommandType = "linear"  // G1
	CommandTypeArcCW   CommandType = "arc_cw"  // G2
	CommandTypeArcCCW  CommandType = "arc_ccw" // G3
)

// IsMotion reports whether the type participates in position tracking,
// bounds, distance, and time calculations.
func (t CommandType) IsMotion() bool {
	switch t {
	case CommandTypeRapid, CommandTypeLinear, CommandTypeArcCW, CommandTypeArcCCW:
		return true
	}
	return false
}

// IsCutting reports whether the type is a controlled-speed cutting move.
func (t CommandType) IsCutting() bool {
	switch t {
	case CommandTypeLinear, CommandTypeArcCW, CommandTypeArcCCW:
		return true
	}
	return false
}

// Command is one parsed motion instruction. Parameter pointers are nil when
// the axis letter was absent from the source line; "unspecified" is distinct
// from "explicitly zero".
type Command struct {
	Type CommandType `json:"type"`
	Line int         `json:"line"` // 1-based source line number
	Raw  string      `json:"raw"`

	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	Z *float64 `json:"z,omitempty"`
	I *float64 `json:"i,omitempty"`
	J *float64 `json:"j,omitempty"`
	K *float64 `json:"k,omitempty"`
	F *float64 `json:"f,omitempty"`
	S *float64 `json:"s,omitempty"`
	E *float64 `json:"e,omitempty"`

	// Absolute machine position after this command executes. Set once by
	// the position tracker; axes missing from the line inherit the prior
	// position.
	EndX float64 `json:"endX"`
	EndY float64 `json:"endY"`
	EndZ float64 `json:"endZ"`
}
