package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/alias"
	"github.com/courseconnect/courseconnect-server/internal/auth"
	"github.com/courseconnect/courseconnect-server/internal/chat"
	"github.com/courseconnect/courseconnect-server/internal/config"
	"github.com/courseconnect/courseconnect-server/internal/pm"
	"github.com/courseconnect/courseconnect-server/internal/store"
	"github.com/courseconnect/courseconnect-server/internal/store/sqlite"
)

// testEnv wires a full server over an in-memory store, exposed through a
// real listener so websocket dials work.
type testEnv struct {
	ts      *httptest.Server
	store   *sqlite.SQLiteStore
	authSvc *auth.Service
	chatSvc *chat.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "test-secret-key"
	cfg.ChatHistoryLimit = 10
	cfg.ChatSendBuffer = 8

	logger := zerolog.Nop()
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authSvc := auth.NewService(st, jwtConfig)
	chatSvc := chat.NewService(chat.NewRegistry(&logger), st, &logger)
	allocator := alias.NewAllocator(st, alias.DefaultPool(1), &logger)
	pmSvc := pm.NewService(st, st, &logger)

	srv := NewServer(&cfg, authSvc, st, chatSvc, allocator, pmSvc, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, authSvc: authSvc, chatSvc: chatSvc}
}

// createUser seeds a user directly and returns its id with a valid token.
func (e *testEnv) createUser(t *testing.T, username string) (int64, string) {
	t.Helper()

	token, user, err := e.authSvc.Register(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user.ID, token
}

func (e *testEnv) createCourse(t *testing.T, name string) int64 {
	t.Helper()

	course, err := e.store.CreateCourse(context.Background(), name)
	if err != nil {
		t.Fatalf("create course %s: %v", name, err)
	}
	return course.ID
}

func (e *testEnv) enroll(t *testing.T, userID, courseID int64) {
	t.Helper()

	if err := e.store.Enroll(context.Background(), userID, courseID); err != nil {
		t.Fatalf("enroll user %d in course %d: %v", userID, courseID, err)
	}
}

func (e *testEnv) seedChatMessage(t *testing.T, courseID, senderID int64, name, content string) *store.ChatMessage {
	t.Helper()

	msg := &store.ChatMessage{
		CourseID:      courseID,
		SenderUserID:  senderID,
		AnonymousName: name,
		Content:       content,
	}
	if err := e.store.SaveChatMessage(context.Background(), msg); err != nil {
		t.Fatalf("seed chat message: %v", err)
	}
	return msg
}

// doJSON performs a request against the test server and returns the
// response with its body fully read.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (*stdhttp.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, data
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return out
}

// wsURL builds the socket endpoint for a course with the token in the query.
func (e *testEnv) wsURL(courseID int64, token string) string {
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http")
	url += "/ws/courses/" + strconv.FormatInt(courseID, 10)
	if token != "" {
		url += "?token=" + token
	}
	return url
}

// waitRoomSize polls until the course room holds exactly n connections.
func (e *testEnv) waitRoomSize(t *testing.T, courseID int64, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.chatSvc.Registry().RoomSize(courseID) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %d never reached size %d, at %d", courseID, n, e.chatSvc.Registry().RoomSize(courseID))
}
