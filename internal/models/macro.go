package models

import "time"

// Macro is a named G-code snippet saved by the editor.
type Macro struct {
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
}
