package models

import "time"

// Message represents an individual entry in the conversation. It contains the core components of a
// chat message including its unique identifier, the participant's role, the accumulated text, and
// the precise time when the message was created.
//
// Text is append-only while Streaming is true, and the message is immutable once Streaming has
// transitioned to false.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Timestamp time.Time

	// Streaming reports whether the message is still receiving fragments from the model.
	Streaming bool
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the user.
	RoleUser Role = "user"
	// RoleModel represents a message produced by the model, including the error notice appended
	// when a streamed exchange fails.
	RoleModel Role = "model"
)
