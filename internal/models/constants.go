// Package models contains data types and wire constants for the
// Homework Assistant service.
package models

// DefaultRealtimeHost is the production host used when no websocket URL
// is configured.
const DefaultRealtimeHost = "https://api.brilliancelearn.com"

// Namespace is the logical channel all realtime traffic is scoped to.
const Namespace = "/homework-assistant"

// Outbound event names
const (
	EventRequest        = "homework_assistant:request"
	EventHistoryRequest = "homework_assistant:history:request"
)

// Inbound event names
const (
	EventMessage         = "message"
	EventSystemMessage   = "system:message"
	EventResponse        = "homework_assistant:response"
	EventTyping          = "homework_assistant:typing"
	EventHistoryResponse = "homework_assistant:history:response"
)

// REST endpoint paths, relative to the configured API base URL
const (
	PathUploadImage    = "/homework-ai-assistant/upload-image"
	PathUploadDocument = "/homework-ai-assistant/upload-document"
	PathGroups         = "/homework-ai-assistant/conversation-groups"
)

// MessageType values carried in outbound requests
const (
	MessageTypeText     = "TEXT"
	MessageTypeImage    = "IMAGE"
	MessageTypeDocument = "DOCUMENT"
)
