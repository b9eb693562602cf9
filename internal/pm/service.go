// Package pm implements durable private messaging between two users with
// read-receipt, edit and delete semantics. Threads are an audit-style record
// between study partners: deletes are tombstones and read receipts never
// retract, so neither party's view of the conversation state shifts under
// them mid-session.
package pm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/store"
)

var (
	// ErrInvalidRecipient is returned when sending to oneself or to a user
	// that does not exist.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrEmptyContent is returned when content is blank after trimming.
	ErrEmptyContent = errors.New("empty content")
	// ErrNotFound is returned when the message does not exist or is deleted.
	ErrNotFound = errors.New("message not found")
	// ErrForbidden is returned when the caller does not own the operation.
	ErrForbidden = errors.New("forbidden")
)

// Service enforces ownership rules over the private message store. It adds
// no locking of its own; single-row mutation is serialized by the store.
type Service struct {
	messages store.PrivateMessageStore
	users    store.UserStore
	log      *zerolog.Logger
}

// NewService creates the private messaging service.
func NewService(messages store.PrivateMessageStore, users store.UserStore, logger *zerolog.Logger) *Service {
	return &Service{
		messages: messages,
		users:    users,
		log:      logger,
	}
}

// Send appends a message from callerID to recipientID and returns it with
// the server-assigned id and timestamp.
func (s *Service) Send(ctx context.Context, callerID, recipientID int64, content string) (*store.PrivateMessage, error) {
	if recipientID == callerID {
		return nil, ErrInvalidRecipient
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if _, err := s.users.GetUserByID(ctx, recipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRecipient
		}
		return nil, fmt.Errorf("lookup recipient: %w", err)
	}

	msg := &store.PrivateMessage{
		SenderID:    callerID,
		RecipientID: recipientID,
		Content:     content,
	}
	if err := s.messages.CreatePrivateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist private message: %w", err)
	}

	s.log.Debug().
		Int64("msg_id", msg.ID).
		Int64("sender_id", callerID).
		Int64("recipient_id", recipientID).
		Msg("private message sent")
	return msg, nil
}

// Edit replaces the message content and stamps editedAt. Only the original
// sender may edit; read state is untouched.
func (s *Service) Edit(ctx context.Context, callerID, messageID int64, newContent string) (*store.PrivateMessage, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, ErrEmptyContent
	}

	msg, err := s.getLive(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, ErrForbidden
	}

	editedAt := time.Now().UTC()
	if err := s.messages.UpdatePrivateMessageContent(ctx, messageID, newContent, editedAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update private message: %w", err)
	}

	msg.Content = newContent
	msg.EditedAt = &editedAt
	return msg, nil
}

// Delete tombstones the message. Only the original sender may delete; a
// second delete of the same message fails with ErrNotFound.
func (s *Service) Delete(ctx context.Context, callerID, messageID int64) error {
	msg, err := s.getLive(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return ErrForbidden
	}

	if err := s.messages.SoftDeletePrivateMessage(ctx, messageID, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete private message: %w", err)
	}

	s.log.Debug().Int64("msg_id", messageID).Int64("sender_id", callerID).Msg("private message deleted")
	return nil
}

// MarkRead flips the message's read flag. Only the recipient may do so.
// Already-read messages are a no-op, not an error; the flag never flips back.
func (s *Service) MarkRead(ctx context.Context, callerID, messageID int64) error {
	msg, err := s.getLive(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.RecipientID != callerID {
		return ErrForbidden
	}
	if msg.IsRead {
		return nil
	}

	if err := s.messages.MarkPrivateMessageRead(ctx, messageID); err != nil {
		return fmt.Errorf("mark private message read: %w", err)
	}
	return nil
}

// ListThread returns all non-deleted messages between the caller and the
// other user in ascending sentAt order, for resumed-session history loads.
func (s *Service) ListThread(ctx context.Context, callerID, otherUserID int64) ([]*store.PrivateMessage, error) {
	messages, err := s.messages.ListThread(ctx, callerID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return messages, nil
}

// getLive fetches a message, mapping absent and tombstoned rows to ErrNotFound.
func (s *Service) getLive(ctx context.Context, messageID int64) (*store.PrivateMessage, error) {
	msg, err := s.messages.GetPrivateMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get private message: %w", err)
	}
	if msg.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return msg, nil
}
