package chat

import "github.com/courseconnect/courseconnect-server/internal/store"

// EventKind is a notification delivered to live connections.
type EventKind int

const (
	// EventMessage carries one persisted chat message.
	EventMessage EventKind = iota
	// EventHistory delivers message history to a client upon joining a room.
	EventHistory
)

// Event is what flows through a connection's outbound queue. Messages are
// always in their canonical persisted form, ids and timestamps included.
type Event struct {
	Kind     EventKind
	Message  *store.ChatMessage
	Messages []*store.ChatMessage // for EventHistory
}
