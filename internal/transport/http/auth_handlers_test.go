package http

import (
	stdhttp "net/http"
	"testing"
)

func TestRegisterEndpoint(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(t, stdhttp.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "alice",
		Password: "password123",
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	auth := decodeJSON[AuthResponse](t, body)
	if auth.Token == "" {
		t.Fatal("expected a token")
	}

	// The token works against a protected route right away.
	resp, _ = e.doJSON(t, stdhttp.MethodGet, "/api/courses/my", auth.Token, nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200 with fresh token, got %d", resp.StatusCode)
	}

	resp, _ = e.doJSON(t, stdhttp.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: "alice",
		Password: "password456",
	})
	if resp.StatusCode != stdhttp.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
}

func TestRegisterEndpointValidation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short username", RegisterRequest{Username: "ab", Password: "password123"}},
		{"short password", RegisterRequest{Username: "alice", Password: "12345"}},
		{"empty", RegisterRequest{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := e.doJSON(t, stdhttp.MethodPost, "/api/auth/register", "", tt.req)
			if resp.StatusCode != stdhttp.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "alice")

	resp, body := e.doJSON(t, stdhttp.MethodPost, "/api/auth/login", "", LoginRequest{
		Username: "alice",
		Password: "password123",
	})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if auth := decodeJSON[AuthResponse](t, body); auth.Token == "" {
		t.Fatal("expected a token")
	}

	resp, _ = e.doJSON(t, stdhttp.MethodPost, "/api/auth/login", "", LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{stdhttp.MethodGet, "/api/courses"},
		{stdhttp.MethodGet, "/api/courses/my"},
		{stdhttp.MethodPost, "/api/messages"},
		{stdhttp.MethodGet, "/api/messages/thread/1"},
	}
	for _, p := range paths {
		resp, _ := e.doJSON(t, p.method, p.path, "", nil)
		if resp.StatusCode != stdhttp.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, resp.StatusCode)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.doJSON(t, stdhttp.MethodGet, "/health", "", nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(body) != "ok" {
		t.Fatalf("expected ok, got %q", body)
	}
}
