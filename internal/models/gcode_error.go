package models

// GCodeError is a diagnostic tied to a source line. Errors are data: the
// analysis never halts on one, it accumulates them in detection order.
type GCodeError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
	// RelatedLine points at the first occurrence for duplicate-toolpath
	// errors; zero otherwise.
	RelatedLine int `json:"relatedLine,omitempty"`
}
