package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/courseconnect/courseconnect-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the
// schema. Use ":memory:" for tests.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; this also serializes
	// row mutation, which the private messaging service relies on.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash, displayName string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, display_name)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, displayName)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username taken: %w", store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, display_name, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// UpdateDisplayName changes a user's real display name.
func (s *SQLiteStore) UpdateDisplayName(ctx context.Context, userID int64, displayName string) (*store.User, error) {
	query := `
		UPDATE users SET display_name = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, displayName, userID)
	if err != nil {
		return nil, fmt.Errorf("update display name: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}

	return s.GetUserByID(ctx, userID)
}

// ==== CourseStore implementation ====

// CreateCourse creates a new course.
func (s *SQLiteStore) CreateCourse(ctx context.Context, name string) (*store.Course, error) {
	query := `
		INSERT INTO courses (name)
		VALUES (?)
	`
	result, err := s.db.ExecContext(ctx, query, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("course name taken: %w", store.ErrConflict)
		}
		return nil, fmt.Errorf("insert course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetCourseByID(ctx, id)
}

// GetCourseByID retrieves a course by ID.
func (s *SQLiteStore) GetCourseByID(ctx context.Context, id int64) (*store.Course, error) {
	query := `
		SELECT id, name, created_at
		FROM courses
		WHERE id = ?
	`
	var course store.Course
	err := s.db.QueryRowContext(ctx, query, id).Scan(&course.ID, &course.Name, &course.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("course %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query course: %w", err)
	}

	return &course, nil
}

// GetCourseByName retrieves a course by name.
func (s *SQLiteStore) GetCourseByName(ctx context.Context, name string) (*store.Course, error) {
	query := `
		SELECT id, name, created_at
		FROM courses
		WHERE name = ?
	`
	var course store.Course
	err := s.db.QueryRowContext(ctx, query, name).Scan(&course.ID, &course.Name, &course.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("course %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query course: %w", err)
	}

	return &course, nil
}

// ListCourses lists all courses.
func (s *SQLiteStore) ListCourses(ctx context.Context) ([]*store.Course, error) {
	query := `
		SELECT id, name, created_at
		FROM courses
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// ListCoursesByUser lists the courses a user is enrolled in.
func (s *SQLiteStore) ListCoursesByUser(ctx context.Context, userID int64) ([]*store.Course, error) {
	query := `
		SELECT c.id, c.name, c.created_at
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.user_id = ?
		ORDER BY c.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query user courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

func scanCourses(rows *sql.Rows) ([]*store.Course, error) {
	var courses []*store.Course
	for rows.Next() {
		var course store.Course
		if err := rows.Scan(&course.ID, &course.Name, &course.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, &course)
	}
	return courses, rows.Err()
}

// CountEnrolled returns how many users are enrolled in the course.
func (s *SQLiteStore) CountEnrolled(ctx context.Context, courseID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM enrollments
		WHERE course_id = ?
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// Enroll adds a user to a course. Enrolling twice is a no-op.
func (s *SQLiteStore) Enroll(ctx context.Context, userID, courseID int64) error {
	query := `
		INSERT OR IGNORE INTO enrollments (user_id, course_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Unenroll removes a user from a course.
func (s *SQLiteStore) Unenroll(ctx context.Context, userID, courseID int64) error {
	query := `
		DELETE FROM enrollments
		WHERE user_id = ? AND course_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// IsEnrolled checks whether a user is enrolled in the course.
func (s *SQLiteStore) IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error) {
	query := `
		SELECT 1 FROM enrollments
		WHERE user_id = ? AND course_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query enrollment: %w", err)
	}
	return true, nil
}

// ==== ChatMessageStore implementation ====

// SaveChatMessage persists a chat message, assigning ID and SentAt.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, msg *store.ChatMessage) error {
	msg.SentAt = time.Now().UTC()

	query := `
		INSERT INTO chat_messages (course_id, sender_user_id, anonymous_name, content, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.CourseID, msg.SenderUserID, msg.AnonymousName, msg.Content, msg.SentAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id

	return nil
}

// ListRecentChatMessages returns the latest messages of a course in ascending
// SentAt order, at most limit rows.
func (s *SQLiteStore) ListRecentChatMessages(ctx context.Context, courseID int64, limit int) ([]*store.ChatMessage, error) {
	query := `
		SELECT id, course_id, sender_user_id, anonymous_name, content, sent_at
		FROM (
			SELECT id, course_id, sender_user_id, anonymous_name, content, sent_at
			FROM chat_messages
			WHERE course_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, courseID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.ChatMessage
	for rows.Next() {
		var msg store.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.CourseID, &msg.SenderUserID,
			&msg.AnonymousName, &msg.Content, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// ==== AliasStore implementation ====

// GetAlias returns the pseudonym assigned to the user in the course.
func (s *SQLiteStore) GetAlias(ctx context.Context, userID, courseID int64) (string, error) {
	query := `
		SELECT display_name FROM chat_aliases
		WHERE user_id = ? AND course_id = ?
	`
	var name string
	err := s.db.QueryRowContext(ctx, query, userID, courseID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("alias for user %d in course %d: %w", userID, courseID, store.ErrNotFound)
		}
		return "", fmt.Errorf("query alias: %w", err)
	}
	return name, nil
}

// CreateAlias persists a freshly minted pseudonym.
func (s *SQLiteStore) CreateAlias(ctx context.Context, userID, courseID int64, displayName string) error {
	query := `
		INSERT INTO chat_aliases (user_id, course_id, display_name)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, courseID, displayName); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("alias taken: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

// ==== PrivateMessageStore implementation ====

// CreatePrivateMessage persists a message, assigning ID and SentAt.
func (s *SQLiteStore) CreatePrivateMessage(ctx context.Context, msg *store.PrivateMessage) error {
	msg.SentAt = time.Now().UTC()

	query := `
		INSERT INTO private_messages (sender_id, recipient_id, content, sent_at, is_read)
		VALUES (?, ?, ?, ?, 0)
	`
	result, err := s.db.ExecContext(ctx, query, msg.SenderID, msg.RecipientID, msg.Content, msg.SentAt)
	if err != nil {
		return fmt.Errorf("insert private message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	msg.IsRead = false

	return nil
}

// GetPrivateMessage retrieves a message by ID, including tombstoned rows.
func (s *SQLiteStore) GetPrivateMessage(ctx context.Context, id int64) (*store.PrivateMessage, error) {
	query := `
		SELECT id, sender_id, recipient_id, content, sent_at, edited_at, is_read, deleted_at
		FROM private_messages
		WHERE id = ?
	`
	var msg store.PrivateMessage
	var editedAt, deletedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&msg.SentAt,
		&editedAt,
		&msg.IsRead,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("private message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query private message: %w", err)
	}

	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}
	if deletedAt.Valid {
		msg.DeletedAt = &deletedAt.Time
	}

	return &msg, nil
}

// UpdatePrivateMessageContent replaces the content and sets edited_at. Rows
// that are already tombstoned are not touched.
func (s *SQLiteStore) UpdatePrivateMessageContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	query := `
		UPDATE private_messages
		SET content = ?, edited_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, content, editedAt, id)
	if err != nil {
		return fmt.Errorf("update private message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("private message %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// MarkPrivateMessageRead flips is_read to true. The filter keeps the
// transition one-directional and makes duplicate calls no-ops.
func (s *SQLiteStore) MarkPrivateMessageRead(ctx context.Context, id int64) error {
	query := `
		UPDATE private_messages
		SET is_read = 1
		WHERE id = ? AND is_read = 0 AND deleted_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark private message read: %w", err)
	}
	return nil
}

// SoftDeletePrivateMessage sets the tombstone timestamp.
func (s *SQLiteStore) SoftDeletePrivateMessage(ctx context.Context, id int64, deletedAt time.Time) error {
	query := `
		UPDATE private_messages
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, deletedAt, id)
	if err != nil {
		return fmt.Errorf("delete private message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("private message %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListThread returns all non-deleted messages between the two users in
// ascending SentAt order.
func (s *SQLiteStore) ListThread(ctx context.Context, userID, otherUserID int64) ([]*store.PrivateMessage, error) {
	query := `
		SELECT id, sender_id, recipient_id, content, sent_at, edited_at, is_read, deleted_at
		FROM private_messages
		WHERE deleted_at IS NULL
		  AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
		ORDER BY sent_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, otherUserID, otherUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("query thread: %w", err)
	}
	defer rows.Close()

	var messages []*store.PrivateMessage
	for rows.Next() {
		var msg store.PrivateMessage
		var editedAt, deletedAt sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Content,
			&msg.SentAt, &editedAt, &msg.IsRead, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan private message: %w", err)
		}
		if editedAt.Valid {
			msg.EditedAt = &editedAt.Time
		}
		if deletedAt.Valid {
			msg.DeletedAt = &deletedAt.Time
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
