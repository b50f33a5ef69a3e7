package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oratify/backend/config"
)

func TestAnswer(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: "About 40% growth."}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(config.AssistConfig{BaseURL: server.URL, APIKey: "secret", Model: "test-model"})
	answer, err := client.Answer(context.Background(), "Quarterly Review", "how much did we grow?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "About 40% growth." {
		t.Fatalf("answer = %q", answer)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 {
		t.Fatalf("unexpected request %+v", gotReq)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "how much did we grow?") {
		t.Fatalf("user message %q missing question", gotReq.Messages[1].Content)
	}
}

func TestAnswerUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(config.AssistConfig{BaseURL: server.URL, APIKey: "secret", Model: "test-model"})
	if _, err := client.Answer(context.Background(), "Quarterly Review", "anyone?"); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestAnswerEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(config.AssistConfig{BaseURL: server.URL, APIKey: "secret", Model: "test-model"})
	if _, err := client.Answer(context.Background(), "Quarterly Review", "anyone?"); err == nil {
		t.Fatal("expected an error for empty choices")
	}
}
