package models

import "time"

// Role identifies who authored a display message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// AttachmentKind classifies an uploaded file. It drives both the
// client-side validation policy and how previews are labelled.
type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindDocument AttachmentKind = "document"
)

// Valid reports whether k is a known attachment kind.
func (k AttachmentKind) Valid() bool {
	return k == KindImage || k == KindDocument
}

// MessageType returns the outbound messageType value for the kind.
func (k AttachmentKind) MessageType() string {
	if k == KindDocument {
		return MessageTypeDocument
	}
	return MessageTypeImage
}

// Attachment is a remote file referenced by a message.
type Attachment struct {
	URL  string
	Kind AttachmentKind
}

// DisplayMessage is one transcript entry. Immutable once created; the
// transcript is append-only within a session and wholesale-replaced
// when history is hydrated.
type DisplayMessage struct {
	Role       Role
	Text       string
	SentAt     time.Time
	Attachment *Attachment
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(text string, att *Attachment) DisplayMessage {
	return DisplayMessage{Role: RoleUser, Text: text, SentAt: time.Now(), Attachment: att}
}

// NewSystemMessage creates a system message stamped with the current
// time. The server never supplies a timestamp for system events.
func NewSystemMessage(text string) DisplayMessage {
	return DisplayMessage{Role: RoleSystem, Text: text, SentAt: time.Now()}
}

// GroupSummary is one entry of the conversation-group listing.
type GroupSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
