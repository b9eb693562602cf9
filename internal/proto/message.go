// Package proto defines the websocket wire format for course chat.
package proto

import "time"

const (
	// InboundTypeMessage is the only inbound frame type: a chat send.
	InboundTypeMessage = "message"

	OutboundTypeMessage = "message"
	OutboundTypeHistory = "history"
	OutboundTypeError   = "error"
)

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type     string        `json:"type"`
	Message  *ChatMessage  `json:"message,omitempty"`
	Messages []ChatMessage `json:"messages,omitempty"`
	Error    *Error        `json:"error,omitempty"`
}

// ChatMessage is the canonical persisted form of a room message as seen on
// the wire. Senders are identified only by their course pseudonym.
type ChatMessage struct {
	ID                  int64     `json:"id"`
	CourseID            int64     `json:"courseId"`
	SenderAnonymousName string    `json:"senderAnonymousName"`
	Content             string    `json:"content"`
	SentAt              time.Time `json:"sentAt"`
}

// Error describes a protocol-level error frame. Sent best-effort for
// malformed input; the connection stays open.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
