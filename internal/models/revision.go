package models

import "time"

// Revision is a snapshot of the shared document, taken when a streamed exchange that changed the
// document completes. The prompt that produced the snapshot is kept as its label.
type Revision struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Document  string    `json:"document,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
