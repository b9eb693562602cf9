package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courseconnect/courseconnect-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserAndCourseCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "hash", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" || user.DisplayName != "Alice" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := s.CreateUser(ctx, "alice", "hash2", "Alice2"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on duplicate username, got %v", err)
	}

	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for missing user, got %v", err)
	}

	course, err := s.CreateCourse(ctx, "Databases 101")
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	if _, err := s.CreateCourse(ctx, "Databases 101"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on duplicate course name, got %v", err)
	}

	enrolled, err := s.IsEnrolled(ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("is enrolled: %v", err)
	}
	if enrolled {
		t.Fatal("user should not be enrolled yet")
	}

	if err := s.Enroll(ctx, user.ID, course.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	// Enrolling twice is a no-op.
	if err := s.Enroll(ctx, user.ID, course.ID); err != nil {
		t.Fatalf("re-enroll: %v", err)
	}

	enrolled, err = s.IsEnrolled(ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("is enrolled: %v", err)
	}
	if !enrolled {
		t.Fatal("user should be enrolled")
	}

	count, err := s.CountEnrolled(ctx, course.ID)
	if err != nil {
		t.Fatalf("count enrolled: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 enrollment, got %d", count)
	}

	courses, err := s.ListCoursesByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list user courses: %v", err)
	}
	if len(courses) != 1 || courses[0].ID != course.ID {
		t.Fatalf("unexpected user courses: %+v", courses)
	}

	if err := s.Unenroll(ctx, user.ID, course.ID); err != nil {
		t.Fatalf("unenroll: %v", err)
	}
	enrolled, _ = s.IsEnrolled(ctx, user.ID, course.ID)
	if enrolled {
		t.Fatal("user should be unenrolled")
	}
}

func TestChatMessageOrderingAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, _ := s.CreateUser(ctx, "bob", "hash", "Bob")
	course, _ := s.CreateCourse(ctx, "Algorithms")

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		msg := &store.ChatMessage{
			CourseID:      course.ID,
			SenderUserID:  user.ID,
			AnonymousName: "SwiftOtter",
			Content:       text,
		}
		if err := s.SaveChatMessage(ctx, msg); err != nil {
			t.Fatalf("save chat message: %v", err)
		}
		if msg.ID == 0 || msg.SentAt.IsZero() {
			t.Fatalf("id and sent_at must be assigned, got %+v", msg)
		}
	}

	// Limit keeps the newest rows, returned oldest first.
	messages, err := s.ListRecentChatMessages(ctx, course.ID, 3)
	if err != nil {
		t.Fatalf("list chat messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	want := []string{"two", "three", "four"}
	for i, msg := range messages {
		if msg.Content != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], msg.Content)
		}
	}
}

func TestAliasConstraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u1, _ := s.CreateUser(ctx, "carol", "hash", "Carol")
	u2, _ := s.CreateUser(ctx, "dave", "hash", "Dave")
	c1, _ := s.CreateCourse(ctx, "Networks")
	c2, _ := s.CreateCourse(ctx, "Compilers")

	if _, err := s.GetAlias(ctx, u1.ID, c1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found before mint, got %v", err)
	}

	if err := s.CreateAlias(ctx, u1.ID, c1.ID, "KeenLynx"); err != nil {
		t.Fatalf("create alias: %v", err)
	}

	// Same user, same course: already assigned.
	if err := s.CreateAlias(ctx, u1.ID, c1.ID, "JollyYak"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for second alias of same pair, got %v", err)
	}

	// Same course, same name, other user: name taken.
	if err := s.CreateAlias(ctx, u2.ID, c1.ID, "KeenLynx"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for taken name, got %v", err)
	}

	// Same name in a different course is fine.
	if err := s.CreateAlias(ctx, u2.ID, c2.ID, "KeenLynx"); err != nil {
		t.Fatalf("alias in other course: %v", err)
	}

	name, err := s.GetAlias(ctx, u1.ID, c1.ID)
	if err != nil {
		t.Fatalf("get alias: %v", err)
	}
	if name != "KeenLynx" {
		t.Fatalf("expected KeenLynx, got %q", name)
	}
}

func TestPrivateMessageLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sender, _ := s.CreateUser(ctx, "erin", "hash", "Erin")
	recipient, _ := s.CreateUser(ctx, "frank", "hash", "Frank")

	msg := &store.PrivateMessage{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Content:     "study at 5?",
	}
	if err := s.CreatePrivateMessage(ctx, msg); err != nil {
		t.Fatalf("create private message: %v", err)
	}
	if msg.ID == 0 || msg.SentAt.IsZero() || msg.IsRead {
		t.Fatalf("unexpected persisted message: %+v", msg)
	}

	// Duplicate markRead stays a no-op and never flips back.
	for i := 0; i < 3; i++ {
		if err := s.MarkPrivateMessageRead(ctx, msg.ID); err != nil {
			t.Fatalf("mark read: %v", err)
		}
	}
	got, err := s.GetPrivateMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get private message: %v", err)
	}
	if !got.IsRead {
		t.Fatal("expected is_read true")
	}

	editedAt := time.Now().UTC()
	if err := s.UpdatePrivateMessageContent(ctx, msg.ID, "study at 6?", editedAt); err != nil {
		t.Fatalf("update content: %v", err)
	}
	got, _ = s.GetPrivateMessage(ctx, msg.ID)
	if got.Content != "study at 6?" || got.EditedAt == nil {
		t.Fatalf("edit not applied: %+v", got)
	}
	if !got.IsRead {
		t.Fatal("edit must not touch read state")
	}

	thread, err := s.ListThread(ctx, recipient.ID, sender.ID)
	if err != nil {
		t.Fatalf("list thread: %v", err)
	}
	if len(thread) != 1 {
		t.Fatalf("expected 1 message in thread, got %d", len(thread))
	}

	if err := s.SoftDeletePrivateMessage(ctx, msg.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	// Second delete of the same row reports not found.
	if err := s.SoftDeletePrivateMessage(ctx, msg.ID, time.Now().UTC()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on double delete, got %v", err)
	}

	// Tombstoned rows stay readable by id but drop out of threads.
	got, err = s.GetPrivateMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get tombstoned message: %v", err)
	}
	if got.DeletedAt == nil {
		t.Fatal("expected deleted_at set")
	}
	thread, _ = s.ListThread(ctx, sender.ID, recipient.ID)
	if len(thread) != 0 {
		t.Fatalf("expected empty thread after delete, got %d", len(thread))
	}

	// Edits on tombstoned rows also report not found.
	if err := s.UpdatePrivateMessageContent(ctx, msg.ID, "x", time.Now().UTC()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found editing tombstoned row, got %v", err)
	}
}

func TestListThreadOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateUser(ctx, "gail", "hash", "Gail")
	b, _ := s.CreateUser(ctx, "hank", "hash", "Hank")

	pairs := []struct {
		from, to int64
		content  string
	}{
		{a.ID, b.ID, "first"},
		{b.ID, a.ID, "second"},
		{a.ID, b.ID, "third"},
	}
	for _, p := range pairs {
		msg := &store.PrivateMessage{SenderID: p.from, RecipientID: p.to, Content: p.content}
		if err := s.CreatePrivateMessage(ctx, msg); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	for _, caller := range []int64{a.ID, b.ID} {
		other := a.ID
		if caller == a.ID {
			other = b.ID
		}
		thread, err := s.ListThread(ctx, caller, other)
		if err != nil {
			t.Fatalf("list thread: %v", err)
		}
		if len(thread) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(thread))
		}
		want := []string{"first", "second", "third"}
		for i, msg := range thread {
			if msg.Content != want[i] {
				t.Errorf("position %d: expected %q, got %q", i, want[i], msg.Content)
			}
		}
	}
}
