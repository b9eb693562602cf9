package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/store"
)

// Service ties persistence to fan-out. Persist-then-broadcast is the fixed
// order: observers never see a message that has no durable record.
type Service struct {
	registry *Registry
	messages store.ChatMessageStore
	log      *zerolog.Logger

	// Per-room send locks keep broadcast order identical to persistence
	// order when senders interleave. Store I/O runs under these, never
	// under the registry's membership lock.
	mu      sync.Mutex
	roomsMu map[int64]*sync.Mutex
}

// NewService creates the chat service.
func NewService(registry *Registry, messages store.ChatMessageStore, logger *zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		messages: messages,
		log:      logger,
		roomsMu:  make(map[int64]*sync.Mutex),
	}
}

// Registry exposes the room registry for connection lifecycle management.
func (s *Service) Registry() *Registry { return s.registry }

func (s *Service) roomLock(courseID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.roomsMu[courseID]
	if !ok {
		lock = &sync.Mutex{}
		s.roomsMu[courseID] = lock
	}
	return lock
}

// Post validates, persists and broadcasts one inbound chat message from conn.
// The broadcast includes the sender, so their UI reflects the canonical
// persisted form. Whitespace-only content yields ErrEmptyMessage and nothing
// is persisted or broadcast.
func (s *Service) Post(ctx context.Context, conn *Connection, content string) (*store.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	lock := s.roomLock(conn.CourseID())
	lock.Lock()
	defer lock.Unlock()

	msg := &store.ChatMessage{
		CourseID:      conn.CourseID(),
		SenderUserID:  conn.UserID(),
		AnonymousName: conn.AnonymousName(),
		Content:       content,
	}
	if err := s.messages.SaveChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist chat message: %w", err)
	}

	s.registry.Broadcast(conn.CourseID(), &Event{Kind: EventMessage, Message: msg}, nil)

	s.log.Debug().
		Int64("msg_id", msg.ID).
		Int64("course_id", msg.CourseID).
		Str("anonymous_name", msg.AnonymousName).
		Msg("chat message posted")
	return msg, nil
}

// History returns the most recent persisted messages of a course for replay
// on join, oldest first. A limit of zero disables replay.
func (s *Service) History(ctx context.Context, courseID int64, limit int) ([]*store.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	messages, err := s.messages.ListRecentChatMessages(ctx, courseID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	return messages, nil
}
