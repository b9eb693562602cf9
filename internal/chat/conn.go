package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Connection is the registry's opaque handle for one live chat socket.
// Identity fields are immutable for the connection's lifetime; only the
// liveness state changes. The transport layer drains Events and writes them
// to the wire.
type Connection struct {
	id            string
	userID        int64
	courseID      int64
	anonymousName string
	connectedAt   time.Time

	events chan *Event

	closeOnce sync.Once
	closed    chan struct{}
	reason    string
}

// NewConnection creates a connection handle with the given outbound buffer.
func NewConnection(userID, courseID int64, anonymousName string, buffer int) *Connection {
	return &Connection{
		id:            uuid.NewString(),
		userID:        userID,
		courseID:      courseID,
		anonymousName: anonymousName,
		connectedAt:   time.Now(),
		events:        make(chan *Event, buffer),
		closed:        make(chan struct{}),
	}
}

// ID returns the connection's unique id.
func (c *Connection) ID() string { return c.id }

// UserID returns the authenticated user behind the socket.
func (c *Connection) UserID() int64 { return c.userID }

// CourseID returns the course room this connection belongs to.
func (c *Connection) CourseID() int64 { return c.courseID }

// AnonymousName returns the pseudonym assigned for this course.
func (c *Connection) AnonymousName() string { return c.anonymousName }

// ConnectedAt returns when the socket was accepted.
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// Events is the outbound queue the transport write loop drains.
func (c *Connection) Events() <-chan *Event { return c.events }

// Deliver enqueues an event without blocking. A full queue means the peer
// cannot keep up and is reported as ErrSlowConsumer so the registry can
// evict it; delivery to other peers is unaffected.
func (c *Connection) Deliver(ev *Event) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Shutdown marks the connection closed. Idempotent; the first reason wins.
func (c *Connection) Shutdown(reason string) {
	c.closeOnce.Do(func() {
		c.reason = reason
		close(c.closed)
	})
}

// Done is closed once the connection has been shut down.
func (c *Connection) Done() <-chan struct{} { return c.closed }

// CloseReason returns why the connection was shut down, if it was.
func (c *Connection) CloseReason() string { return c.reason }
