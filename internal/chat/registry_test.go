package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/store"
)

func newTestRegistry() *Registry {
	logger := zerolog.Nop()
	return NewRegistry(&logger)
}

func drainOne(t *testing.T, c *Connection) *Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestJoinLeave(t *testing.T) {
	r := newTestRegistry()

	c1 := NewConnection(1, 10, "SwiftOtter", 8)
	c2 := NewConnection(2, 10, "KeenLynx", 8)

	if replaced := r.Join(c1); replaced != nil {
		t.Fatal("first join must not replace anything")
	}
	if replaced := r.Join(c2); replaced != nil {
		t.Fatal("distinct users must coexist")
	}
	if got := r.RoomSize(10); got != 2 {
		t.Fatalf("expected room size 2, got %d", got)
	}

	r.Leave(c1)
	if got := r.RoomSize(10); got != 1 {
		t.Fatalf("expected room size 1, got %d", got)
	}
	// Leave is idempotent.
	r.Leave(c1)
	if got := r.RoomSize(10); got != 1 {
		t.Fatalf("expected room size 1 after double leave, got %d", got)
	}

	r.Leave(c2)
	if got := r.RoomSize(10); got != 0 {
		t.Fatalf("expected empty room, got %d", got)
	}
}

func TestJoinReplacesSameUser(t *testing.T) {
	r := newTestRegistry()

	old := NewConnection(1, 10, "SwiftOtter", 8)
	r.Join(old)

	replacement := NewConnection(1, 10, "SwiftOtter", 8)
	replaced := r.Join(replacement)
	if replaced != old {
		t.Fatal("expected the stale connection back")
	}
	if got := r.RoomSize(10); got != 1 {
		t.Fatalf("expected a single connection for the user, got %d", got)
	}

	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatal("stale connection was not shut down")
	}
	if err := old.Deliver(&Event{Kind: EventMessage}); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed on stale connection, got %v", err)
	}

	// Same user in a different course is a separate identity.
	elsewhere := NewConnection(1, 11, "JollyYak", 8)
	if replaced := r.Join(elsewhere); replaced != nil {
		t.Fatal("join in another course must not replace")
	}
}

func TestBroadcastReachesRoomOnly(t *testing.T) {
	r := newTestRegistry()

	c1 := NewConnection(1, 10, "SwiftOtter", 8)
	c2 := NewConnection(2, 10, "KeenLynx", 8)
	outsider := NewConnection(3, 11, "JollyYak", 8)
	r.Join(c1)
	r.Join(c2)
	r.Join(outsider)

	msg := &store.ChatMessage{ID: 1, CourseID: 10, Content: "hello"}
	r.Broadcast(10, &Event{Kind: EventMessage, Message: msg}, nil)

	for _, c := range []*Connection{c1, c2} {
		ev := drainOne(t, c)
		if ev.Kind != EventMessage || ev.Message.ID != 1 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
	select {
	case ev := <-outsider.Events():
		t.Fatalf("outsider received event: %+v", ev)
	default:
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := newTestRegistry()

	sender := NewConnection(1, 10, "SwiftOtter", 8)
	peer := NewConnection(2, 10, "KeenLynx", 8)
	r.Join(sender)
	r.Join(peer)

	r.Broadcast(10, &Event{Kind: EventMessage, Message: &store.ChatMessage{ID: 7}}, sender)

	drainOne(t, peer)
	select {
	case ev := <-sender.Events():
		t.Fatalf("excluded sender received event: %+v", ev)
	default:
	}
}

func TestBroadcastEvictsSlowConsumer(t *testing.T) {
	r := newTestRegistry()

	// Buffer of one: the second undrained event overflows.
	slow := NewConnection(1, 10, "SwiftOtter", 1)
	healthy := NewConnection(2, 10, "KeenLynx", 8)
	r.Join(slow)
	r.Join(healthy)

	r.Broadcast(10, &Event{Kind: EventMessage, Message: &store.ChatMessage{ID: 1}}, nil)
	r.Broadcast(10, &Event{Kind: EventMessage, Message: &store.ChatMessage{ID: 2}}, nil)

	// The healthy peer saw both deliveries.
	if ev := drainOne(t, healthy); ev.Message.ID != 1 {
		t.Fatalf("expected message 1, got %d", ev.Message.ID)
	}
	if ev := drainOne(t, healthy); ev.Message.ID != 2 {
		t.Fatalf("expected message 2, got %d", ev.Message.ID)
	}

	// The slow one was evicted and shut down; the room keeps going.
	if got := r.RoomSize(10); got != 1 {
		t.Fatalf("expected slow consumer evicted, room size %d", got)
	}
	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow connection was not shut down")
	}

	r.Broadcast(10, &Event{Kind: EventMessage, Message: &store.ChatMessage{ID: 3}}, nil)
	if ev := drainOne(t, healthy); ev.Message.ID != 3 {
		t.Fatalf("expected message 3, got %d", ev.Message.ID)
	}
}

func TestConnectionShutdownIdempotent(t *testing.T) {
	c := NewConnection(1, 10, "SwiftOtter", 8)

	c.Shutdown("first")
	c.Shutdown("second")

	if got := c.CloseReason(); got != "first" {
		t.Fatalf("expected first reason to win, got %q", got)
	}
	if err := c.Deliver(&Event{Kind: EventMessage}); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}
