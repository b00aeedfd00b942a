package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pauljones0/shift-code-watcher/internal/config"
)

func newTestMailjet(url string) *MailjetSender {
	m := NewMailjetSender(config.MailjetConfig{
		APIKey:    "key",
		APISecret: "secret",
		FromEmail: "bot@example.com",
		FromName:  "Borderlands Monitor",
	})
	m.endpoint = url
	return m
}

func TestMailjetSender_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			t.Errorf("Unexpected basic auth %q/%q", user, pass)
		}

		var payload mailjetPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if len(payload.Messages) != 1 {
			t.Fatalf("Expected 1 message, got %d", len(payload.Messages))
		}
		m := payload.Messages[0]
		if m.From.Email != "bot@example.com" || m.From.Name != "Borderlands Monitor" {
			t.Errorf("Unexpected From %+v", m.From)
		}
		if len(m.To) != 1 || m.To[0].Email != "vault@example.com" {
			t.Errorf("Unexpected To %+v", m.To)
		}
		if m.Subject != "Subject" || m.TextPart != "text" || m.HTMLPart != "<p>html</p>" {
			t.Errorf("Unexpected content %+v", m)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer server.Close()

	err := newTestMailjet(server.URL).Send(context.Background(), Message{
		To:       "vault@example.com",
		Subject:  "Subject",
		TextBody: "text",
		HTMLBody: "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}

func TestMailjetSender_NoRetryOn4xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ErrorMessage":"API key authentication failure"}`))
	}))
	defer server.Close()

	err := newTestMailjet(server.URL).Send(context.Background(), Message{To: "vault@example.com"})
	if err == nil {
		t.Fatal("Send() should have returned error for 401 response")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("Expected 1 attempt (no retry for 401), got %d", atomic.LoadInt32(&attempts))
	}
}

func TestMailjetSender_RejectedMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Messages":[{"Status":"error","Errors":[{"ErrorMessage":"Invalid recipient"}]}]}`))
	}))
	defer server.Close()

	err := newTestMailjet(server.URL).Send(context.Background(), Message{To: "nobody"})
	if err == nil {
		t.Fatal("Send() should fail when Mailjet reports a message error")
	}
}

func TestMailjetSender_RetriesOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer server.Close()

	m := newTestMailjet(server.URL)
	m.maxRetries = 1

	if err := m.Send(context.Background(), Message{To: "vault@example.com"}); err != nil {
		t.Fatalf("Send() should have succeeded after retry, got error: %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("Expected 2 attempts, got %d", atomic.LoadInt32(&attempts))
	}
}
