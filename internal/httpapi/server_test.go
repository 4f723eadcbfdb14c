package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bowerhall/notebook/internal/chat"
	"github.com/bowerhall/notebook/internal/conversation"
	"github.com/bowerhall/notebook/internal/observability"
)

const testSecret = "test-secret"

type fakeChatter struct {
	userID   string
	sourceID string
	message  string
	err      error
	history  []conversation.Message
}

func (f *fakeChatter) Reply(ctx context.Context, userID, sourceID, message string) (*chat.Reply, error) {
	f.userID, f.sourceID, f.message = userID, sourceID, message
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Reply{
		Response: "answer",
		Messages: []conversation.Message{
			{Role: conversation.RoleUser, Content: message},
			{Role: conversation.RoleAssistant, Content: "answer"},
		},
	}, nil
}

func (f *fakeChatter) History(ctx context.Context, userID, sourceID string) ([]conversation.Message, error) {
	f.userID, f.sourceID = userID, sourceID
	return f.history, f.err
}

type fakeFacts struct {
	facts []string
}

func (f *fakeFacts) Facts(ctx context.Context, userID string) ([]string, error) {
	return f.facts, nil
}

func newTestServer(t *testing.T, chatter *fakeChatter) *httptest.Server {
	t.Helper()
	s := New(Config{JWTSecret: testSecret}, chatter, &fakeFacts{facts: []string{"User likes tea"}}, observability.NewMetrics("notebook"))
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func token(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, method, url, body, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	json.Unmarshal(raw, &out)
	return resp, out
}

func TestHealthcheck(t *testing.T) {
	srv := newTestServer(t, &fakeChatter{})

	resp, err := http.Get(srv.URL + "/api/v1/healthcheck")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "Server is running" {
		t.Errorf("unexpected health response %d %q", resp.StatusCode, body)
	}
}

func TestCreateMessage(t *testing.T) {
	chatter := &fakeChatter{}
	srv := newTestServer(t, chatter)

	resp, out := do(t, "POST", srv.URL+"/api/v1/chat/src1", `{"message":"hello"}`, token(t, testSecret, jwt.MapClaims{"id": "u1"}))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["success"] != true || out["message"] != "Received response successfully" || out["response"] != "answer" {
		t.Errorf("unexpected body %v", out)
	}
	if messages, _ := out["messages"].([]any); len(messages) != 2 {
		t.Errorf("expected 2 messages, got %v", out["messages"])
	}
	if chatter.userID != "u1" || chatter.sourceID != "src1" || chatter.message != "hello" {
		t.Errorf("unexpected call %+v", chatter)
	}
}

func TestCreateMessageCookieToken(t *testing.T) {
	srv := newTestServer(t, &fakeChatter{})

	req, _ := http.NewRequest("POST", srv.URL+"/api/v1/chat/src1", strings.NewReader(`{"message":"hello"}`))
	req.AddCookie(&http.Cookie{Name: "token", Value: token(t, testSecret, jwt.MapClaims{"id": "u1"})})

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCreateMessageErrors(t *testing.T) {
	valid := token(t, testSecret, jwt.MapClaims{"id": "u1"})

	tests := []struct {
		name    string
		body    string
		bearer  string
		err     error
		status  int
		message string
	}{
		{"no token", `{"message":"hi"}`, "", nil, http.StatusBadRequest, "No Token Found"},
		{"bad signature", `{"message":"hi"}`, token(t, "other", jwt.MapClaims{"id": "u1"}), nil, http.StatusBadRequest, "Error while authentic token"},
		{"missing id claim", `{"message":"hi"}`, token(t, testSecret, jwt.MapClaims{"sub": "u1"}), nil, http.StatusBadRequest, "Error while authentic token"},
		{"missing message", `{}`, valid, nil, http.StatusBadRequest, "No sourceId or message"},
		{"malformed body", `{"message":`, valid, nil, http.StatusBadRequest, "No sourceId or message"},
		{"invalid request", `{"message":"  "}`, valid, chat.ErrInvalidRequest, http.StatusBadRequest, "No sourceId or message"},
		{"turn failure", `{"message":"hi"}`, valid, errors.New("search failed"), http.StatusInternalServerError, "Internal error while chatting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeChatter{err: tt.err})

			resp, out := do(t, "POST", srv.URL+"/api/v1/chat/src1", tt.body, tt.bearer)

			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if out["success"] != false || out["message"] != tt.message {
				t.Errorf("expected message %q, got %v", tt.message, out)
			}
		})
	}
}

func TestGetChats(t *testing.T) {
	chatter := &fakeChatter{history: []conversation.Message{{Role: conversation.RoleUser, Content: "hello"}}}
	srv := newTestServer(t, chatter)

	resp, out := do(t, "GET", srv.URL+"/api/v1/chat/src1", "", token(t, testSecret, jwt.MapClaims{"id": "u1"}))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["message"] != "Messages fetched" {
		t.Errorf("unexpected message %v", out["message"])
	}
	messages, _ := out["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %v", out["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "hello" {
		t.Errorf("unexpected message %v", first)
	}
}

func TestGetFacts(t *testing.T) {
	srv := newTestServer(t, &fakeChatter{})

	resp, out := do(t, "GET", srv.URL+"/api/v1/memory/facts", "", token(t, testSecret, jwt.MapClaims{"id": "u1"}))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	facts, _ := out["facts"].([]any)
	if len(facts) != 1 || facts[0] != "User likes tea" {
		t.Errorf("unexpected facts %v", out["facts"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeChatter{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
