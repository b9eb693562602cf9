package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Course represents a course users can enroll in.
type Course struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// ChatMessage is a persisted course chat message. The anonymous name is a
// snapshot taken at send time, not a join against the alias table.
type ChatMessage struct {
	ID            int64
	CourseID      int64
	SenderUserID  int64
	AnonymousName string
	Content       string
	SentAt        time.Time
}

// ChatAlias is the per-(user, course) pseudonym shown in course chat.
type ChatAlias struct {
	UserID      int64
	CourseID    int64
	DisplayName string
	CreatedAt   time.Time
}

// PrivateMessage is a direct message between two users. Deletion is a
// tombstone: the row stays so thread ordering and read receipts survive.
type PrivateMessage struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Content     string
	SentAt      time.Time
	EditedAt    *time.Time
	IsRead      bool
	DeletedAt   *time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash, displayName string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdateDisplayName changes a user's real display name.
	UpdateDisplayName(ctx context.Context, userID int64, displayName string) (*User, error)
}

// CourseStore handles course and enrollment persistence.
type CourseStore interface {
	// CreateCourse creates a new course.
	CreateCourse(ctx context.Context, name string) (*Course, error)

	// GetCourseByID retrieves a course by ID.
	GetCourseByID(ctx context.Context, id int64) (*Course, error)

	// GetCourseByName retrieves a course by name.
	GetCourseByName(ctx context.Context, name string) (*Course, error)

	// ListCourses lists all courses.
	ListCourses(ctx context.Context) ([]*Course, error)

	// ListCoursesByUser lists the courses a user is enrolled in.
	ListCoursesByUser(ctx context.Context, userID int64) ([]*Course, error)

	// CountEnrolled returns how many users are enrolled in the course.
	CountEnrolled(ctx context.Context, courseID int64) (int, error)

	// Enroll adds a user to a course. Enrolling twice is a no-op.
	Enroll(ctx context.Context, userID, courseID int64) error

	// Unenroll removes a user from a course.
	Unenroll(ctx context.Context, userID, courseID int64) error

	// IsEnrolled checks whether a user is enrolled in the course.
	IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error)
}

// ChatMessageStore handles the append-only course chat log.
type ChatMessageStore interface {
	// SaveChatMessage persists a chat message, assigning ID and SentAt.
	SaveChatMessage(ctx context.Context, msg *ChatMessage) error

	// ListRecentChatMessages returns the latest messages of a course in
	// ascending SentAt order, at most limit rows.
	ListRecentChatMessages(ctx context.Context, courseID int64, limit int) ([]*ChatMessage, error)
}

// AliasStore handles anonymous identity persistence.
type AliasStore interface {
	// GetAlias returns the pseudonym assigned to the user in the course,
	// or ErrNotFound if none was minted yet.
	GetAlias(ctx context.Context, userID, courseID int64) (string, error)

	// CreateAlias persists a freshly minted pseudonym. Returns ErrConflict
	// when the user already has one or the name is taken in the course.
	CreateAlias(ctx context.Context, userID, courseID int64, displayName string) error
}

// PrivateMessageStore handles direct message persistence. Row mutation is
// serialized by the store; callers add ownership checks only.
type PrivateMessageStore interface {
	// CreatePrivateMessage persists a message, assigning ID and SentAt.
	CreatePrivateMessage(ctx context.Context, msg *PrivateMessage) error

	// GetPrivateMessage retrieves a message by ID, including tombstoned rows.
	GetPrivateMessage(ctx context.Context, id int64) (*PrivateMessage, error)

	// UpdatePrivateMessageContent replaces the content and sets edited_at.
	UpdatePrivateMessageContent(ctx context.Context, id int64, content string, editedAt time.Time) error

	// MarkPrivateMessageRead flips is_read to true. Never flips it back.
	MarkPrivateMessageRead(ctx context.Context, id int64) error

	// SoftDeletePrivateMessage sets the tombstone timestamp.
	SoftDeletePrivateMessage(ctx context.Context, id int64, deletedAt time.Time) error

	// ListThread returns all non-deleted messages between the two users in
	// ascending SentAt order.
	ListThread(ctx context.Context, userID, otherUserID int64) ([]*PrivateMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	CourseStore
	ChatMessageStore
	AliasStore
	PrivateMessageStore

	// Close closes the underlying database connection.
	Close() error
}
