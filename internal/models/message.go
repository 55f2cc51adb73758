package models

import (
	"encoding/json"
	"time"
)

// Author identifies who produced a message.
type Author string

const (
	AuthorClient   Author = "client"
	AuthorBot      Author = "bot"
	AuthorOperator Author = "operator"
	AuthorSystem   Author = "system"
)

// IsAgent reports whether the author is a responder (bot or operator) as
// opposed to the client or the system.
func (a Author) IsAgent() bool {
	return a == AuthorBot || a == AuthorOperator
}

// Status is the delivery state of a message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// Message is one unit of conversation content. Text is stored as plain
// text and escaped only at render time. Seq, when present, is the server's
// monotonic sequence number and takes priority over CreatedAt for ordering.
type Message struct {
	ID          string       `json:"id"`
	DialogID    int64        `json:"dialog_id"`
	Author      Author       `json:"author"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Status      Status       `json:"status,omitempty"`
	Seq         *int64       `json:"seq,omitempty"`

	// Extra carries fields the ingest boundary does not recognize so
	// forward-compatible payloads round-trip unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

var messageJSONKeys = []string{
	"id", "dialog_id", "author", "text", "attachments",
	"created_at", "status", "seq",
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range messageJSONKeys {
		delete(raw, key)
	}

	*m = Message(known)
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	data, err := json.Marshal(plain(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range m.Extra {
		if _, known := merged[key]; !known {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}
