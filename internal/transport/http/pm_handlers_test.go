package http

import (
	stdhttp "net/http"
	"strconv"
	"testing"
)

func messagePath(id int64) string {
	return "/api/messages/" + strconv.FormatInt(id, 10)
}

func threadPath(otherID int64) string {
	return "/api/messages/thread/" + strconv.FormatInt(otherID, 10)
}

func TestPMSendAndThread(t *testing.T) {
	e := newTestEnv(t)
	aliceID, aliceToken := e.createUser(t, "alice")
	bobID, bobToken := e.createUser(t, "bob")

	resp, body := e.doJSON(t, stdhttp.MethodPost, "/api/messages", aliceToken, SendMessageRequest{
		RecipientID: bobID,
		Content:     "lunch after the lecture?",
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	msg := decodeJSON[PrivateMessageResponse](t, body)
	if msg.ID == 0 || msg.SenderID != aliceID || msg.RecipientID != bobID {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.IsRead || msg.SentAt == "" || msg.EditedAt != "" {
		t.Fatalf("unexpected initial state: %+v", msg)
	}

	// Both participants read the same thread.
	for _, tc := range []struct {
		token string
		other int64
	}{
		{aliceToken, bobID},
		{bobToken, aliceID},
	} {
		resp, body := e.doJSON(t, stdhttp.MethodGet, threadPath(tc.other), tc.token, nil)
		if resp.StatusCode != stdhttp.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}
		thread := decodeJSON[[]PrivateMessageResponse](t, body)
		if len(thread) != 1 || thread[0].ID != msg.ID {
			t.Fatalf("unexpected thread: %+v", thread)
		}
	}
}

func TestPMSendValidation(t *testing.T) {
	e := newTestEnv(t)
	aliceID, aliceToken := e.createUser(t, "alice")
	bobID, _ := e.createUser(t, "bob")

	tests := []struct {
		name       string
		token      string
		req        any
		wantStatus int
	}{
		{"no token", "", SendMessageRequest{RecipientID: bobID, Content: "hi"}, stdhttp.StatusUnauthorized},
		{"bad token", "garbage", SendMessageRequest{RecipientID: bobID, Content: "hi"}, stdhttp.StatusUnauthorized},
		{"missing body", aliceToken, nil, stdhttp.StatusBadRequest},
		{"to self", aliceToken, SendMessageRequest{RecipientID: aliceID, Content: "hi"}, stdhttp.StatusBadRequest},
		{"unknown recipient", aliceToken, SendMessageRequest{RecipientID: 9999, Content: "hi"}, stdhttp.StatusBadRequest},
		{"blank content", aliceToken, SendMessageRequest{RecipientID: bobID, Content: "   "}, stdhttp.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.doJSON(t, stdhttp.MethodPost, "/api/messages", tt.token, tt.req)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.StatusCode, body)
			}
		})
	}
}

func TestPMMarkRead(t *testing.T) {
	e := newTestEnv(t)
	_, aliceToken := e.createUser(t, "alice")
	bobID, bobToken := e.createUser(t, "bob")

	_, body := e.doJSON(t, stdhttp.MethodPost, "/api/messages", aliceToken, SendMessageRequest{
		RecipientID: bobID,
		Content:     "seen this?",
	})
	msg := decodeJSON[PrivateMessageResponse](t, body)

	// The sender cannot acknowledge their own message.
	resp, _ := e.doJSON(t, stdhttp.MethodPost, messagePath(msg.ID)+"/read", aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for sender, got %d", resp.StatusCode)
	}

	// The recipient can, as often as they like.
	for i := 0; i < 3; i++ {
		resp, body := e.doJSON(t, stdhttp.MethodPost, messagePath(msg.ID)+"/read", bobToken, nil)
		if resp.StatusCode != stdhttp.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}
	}

	_, body = e.doJSON(t, stdhttp.MethodGet, threadPath(bobID), aliceToken, nil)
	thread := decodeJSON[[]PrivateMessageResponse](t, body)
	if len(thread) != 1 || !thread[0].IsRead {
		t.Fatalf("expected read message in thread, got %+v", thread)
	}
}

func TestPMEdit(t *testing.T) {
	e := newTestEnv(t)
	_, aliceToken := e.createUser(t, "alice")
	bobID, bobToken := e.createUser(t, "bob")

	_, body := e.doJSON(t, stdhttp.MethodPost, "/api/messages", aliceToken, SendMessageRequest{
		RecipientID: bobID,
		Content:     "meet at 5",
	})
	msg := decodeJSON[PrivateMessageResponse](t, body)

	resp, _ := e.doJSON(t, stdhttp.MethodPut, messagePath(msg.ID), bobToken, EditMessageRequest{Content: "meet at never"})
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for non-sender edit, got %d", resp.StatusCode)
	}

	resp, body = e.doJSON(t, stdhttp.MethodPut, messagePath(msg.ID), aliceToken, EditMessageRequest{Content: "meet at 6"})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	edited := decodeJSON[PrivateMessageResponse](t, body)
	if edited.Content != "meet at 6" || edited.EditedAt == "" {
		t.Fatalf("edit not reflected: %+v", edited)
	}

	resp, _ = e.doJSON(t, stdhttp.MethodPut, "/api/messages/9999", aliceToken, EditMessageRequest{Content: "x"})
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 for unknown message, got %d", resp.StatusCode)
	}
	resp, _ = e.doJSON(t, stdhttp.MethodPut, "/api/messages/abc", aliceToken, EditMessageRequest{Content: "x"})
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}
}

func TestPMDelete(t *testing.T) {
	e := newTestEnv(t)
	aliceID, aliceToken := e.createUser(t, "alice")
	bobID, bobToken := e.createUser(t, "bob")

	_, body := e.doJSON(t, stdhttp.MethodPost, "/api/messages", aliceToken, SendMessageRequest{
		RecipientID: bobID,
		Content:     "wrong chat, sorry",
	})
	msg := decodeJSON[PrivateMessageResponse](t, body)

	resp, _ := e.doJSON(t, stdhttp.MethodDelete, messagePath(msg.ID), bobToken, nil)
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("expected 403 for non-sender delete, got %d", resp.StatusCode)
	}

	resp, _ = e.doJSON(t, stdhttp.MethodDelete, messagePath(msg.ID), aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// The tombstone makes any follow-up a 404 and hides it from threads.
	resp, _ = e.doJSON(t, stdhttp.MethodDelete, messagePath(msg.ID), aliceToken, nil)
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 on double delete, got %d", resp.StatusCode)
	}
	resp, _ = e.doJSON(t, stdhttp.MethodPut, messagePath(msg.ID), aliceToken, EditMessageRequest{Content: "x"})
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 editing deleted message, got %d", resp.StatusCode)
	}

	_, body = e.doJSON(t, stdhttp.MethodGet, threadPath(aliceID), bobToken, nil)
	thread := decodeJSON[[]PrivateMessageResponse](t, body)
	if len(thread) != 0 {
		t.Fatalf("expected empty thread, got %+v", thread)
	}
}
