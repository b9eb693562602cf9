// Package chat owns the in-memory course rooms and the fan-out of persisted
// messages to live connections.
package chat

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the single source of truth for who is listening to a course
// right now. All mutation goes through Join/Leave/Broadcast; the room maps
// are never handed out.
type Registry struct {
	mu    sync.Mutex
	rooms map[int64]map[*Connection]struct{}
	log   *zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[int64]map[*Connection]struct{}),
		log:   logger,
	}
}

// Join adds the connection to its course room, creating the room lazily.
// If the same user already holds a connection in the room, that connection
// is replaced and returned so the caller can close it; a reconnect never
// duplicates membership.
func (r *Registry) Join(c *Connection) (replaced *Connection) {
	r.mu.Lock()
	room, ok := r.rooms[c.CourseID()]
	if !ok {
		room = make(map[*Connection]struct{})
		r.rooms[c.CourseID()] = room
	}
	for existing := range room {
		if existing.UserID() == c.UserID() {
			delete(room, existing)
			replaced = existing
			break
		}
	}
	room[c] = struct{}{}
	r.mu.Unlock()

	if replaced != nil {
		replaced.Shutdown("replaced by reconnect")
		r.log.Debug().
			Int64("user_id", c.UserID()).
			Int64("course_id", c.CourseID()).
			Msg("connection replaced by reconnect")
	}
	r.log.Debug().
		Str("conn_id", c.ID()).
		Int64("course_id", c.CourseID()).
		Msg("connection joined room")
	return replaced
}

// Leave removes the connection from its room. Idempotent; empty rooms are
// evicted since membership is derived from enrollment on every join, not
// cached here.
func (r *Registry) Leave(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[c.CourseID()]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, c.CourseID())
	}
}

// Broadcast delivers the event to every live connection in the course room
// except exclude (nil means everyone). The member list is snapshotted under
// the lock and delivery happens outside it, so a slow peer never stalls
// joins or leaves. A peer whose delivery fails is removed and shut down;
// the rest still receive the event.
func (r *Registry) Broadcast(courseID int64, ev *Event, exclude *Connection) {
	r.mu.Lock()
	room := r.rooms[courseID]
	members := make([]*Connection, 0, len(room))
	for c := range room {
		if c == exclude {
			continue
		}
		members = append(members, c)
	}
	r.mu.Unlock()

	var failed []*Connection
	for _, c := range members {
		if err := c.Deliver(ev); err != nil {
			r.log.Warn().
				Err(err).
				Str("conn_id", c.ID()).
				Int64("course_id", courseID).
				Msg("broadcast delivery failed, evicting peer")
			failed = append(failed, c)
		}
	}

	for _, c := range failed {
		r.Leave(c)
		c.Shutdown("undeliverable")
	}
}

// RoomSize reports how many connections the course room holds.
func (r *Registry) RoomSize(courseID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[courseID])
}
