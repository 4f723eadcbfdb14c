package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewKnownProviders(t *testing.T) {
	for _, provider := range []string{"claude", "openai", "ollama", "groq"} {
		m, err := New(Config{Provider: provider, APIKey: "k"})
		if err != nil {
			t.Errorf("provider %s: unexpected error %v", provider, err)
		}
		if m == nil {
			t.Errorf("provider %s: expected client", provider)
		}
	}
}

func TestOpenAICompatibleChat(t *testing.T) {
	var got openaiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"  yes \n"}}]}`))
	}))
	defer srv.Close()

	m := newOpenAICompatible("key", srv.URL, "test-model")

	reply, err := Complete(context.Background(), m, "is this long term?")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if reply != "yes" {
		t.Errorf("expected trimmed reply yes, got %q", reply)
	}

	if got.Model != "test-model" {
		t.Errorf("expected model test-model, got %s", got.Model)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("expected a single user message, got %+v", got.Messages)
	}
}

func TestOpenAICompatibleSystemPrompt(t *testing.T) {
	var got openaiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"answer"}}]}`))
	}))
	defer srv.Close()

	m := newOpenAICompatible("key", srv.URL, "m")
	_, err := m.Chat(context.Background(), "system block", []Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	if len(got.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "system block" {
		t.Errorf("expected system message first, got %+v", got.Messages[0])
	}
}

func TestOpenAICompatibleRetriesThenFails(t *testing.T) {
	old := baseDelay
	baseDelay = time.Millisecond
	defer func() { baseDelay = old }()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"busy"}}`))
	}))
	defer srv.Close()

	m := newOpenAICompatible("key", srv.URL, "m")
	if _, err := m.Chat(context.Background(), "", []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error after retries")
	}

	if calls.Load() != maxRetries {
		t.Errorf("expected %d attempts, got %d", maxRetries, calls.Load())
	}
}

func TestOpenAICompatibleClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad"}}`))
	}))
	defer srv.Close()

	m := newOpenAICompatible("key", srv.URL, "m")
	if _, err := m.Chat(context.Background(), "", nil); err == nil {
		t.Error("expected error on 400")
	}
}
