package ws

import (
	"supportdesk/internal/models"
	"supportdesk/internal/store"
)

// Operation codes for WebSocket messages
type OpCode int

const (
	// DISPATCH - Events with type field
	OpDispatch OpCode = 0

	// Sent on connection
	OpHello OpCode = 1
)

// Event types (Server -> Client via DISPATCH)
const (
	EventMessageBatch     = "MESSAGE_BATCH"
	EventMessageAdd       = "MESSAGE_ADD"
	EventMessageStatus    = "MESSAGE_STATUS"
	EventAttachmentUpdate = "ATTACHMENT_UPDATE"
)

type WSMessage struct {
	Op   OpCode `json:"op"`
	Type string `json:"t,omitempty"` // Event type (only for DISPATCH)
	Data any    `json:"d,omitempty"`
	Seq  *int64 `json:"s,omitempty"`
}

type HelloPayload struct {
	ServerName string `json:"server_name,omitempty"`
}

// MessageBatchPayload is sent after a history batch lands in the store.
type MessageBatchPayload struct {
	DialogID   int64    `json:"dialog_id"`
	MessageIDs []string `json:"message_ids"`
}

type MessageAddPayload struct {
	DialogID int64          `json:"dialog_id"`
	Message  models.Message `json:"message"`
	Local    bool           `json:"local"`
}

type MessageStatusPayload struct {
	DialogID  int64         `json:"dialog_id"`
	MessageID string        `json:"message_id"`
	Status    models.Status `json:"status"`
}

type AttachmentUpdatePayload struct {
	DialogID     int64             `json:"dialog_id"`
	MessageID    string            `json:"message_id"`
	AttachmentID string            `json:"attachment_id"`
	Attachment   models.Attachment `json:"attachment"`
}

// eventName maps store event kinds to wire event types.
func eventName(kind store.EventKind) string {
	switch kind {
	case store.EventBatch:
		return EventMessageBatch
	case store.EventAdd:
		return EventMessageAdd
	case store.EventStatus:
		return EventMessageStatus
	case store.EventAttachmentUpdate:
		return EventAttachmentUpdate
	}
	return ""
}
