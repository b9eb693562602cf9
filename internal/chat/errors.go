package chat

import "errors"

var (
	// ErrConnectionClosed is returned when delivering to a connection that
	// has already shut down.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned when a connection's outbound queue is
	// full. The registry treats the peer as implicitly disconnected.
	ErrSlowConsumer = errors.New("slow consumer")
	// ErrEmptyMessage is returned for whitespace-only content. The sender's
	// session stays up; the frame is simply not persisted or broadcast.
	ErrEmptyMessage = errors.New("empty message")
)
