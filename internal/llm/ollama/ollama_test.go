package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.endpoint != defaultEndpoint {
		t.Errorf("expected default endpoint, got %s", p.endpoint)
	}
	if p.model != defaultModel {
		t.Errorf("expected default model, got %s", p.model)
	}
}

func TestNew_TrimsEndpoint(t *testing.T) {
	p, _ := New("http://custom:8080/", "llama3")
	if p.endpoint != "http://custom:8080" {
		t.Errorf("expected trimmed endpoint, got %s", p.endpoint)
	}
}

func TestChat(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"Looks robust."},"done":true,"done_reason":"stop","prompt_eval_count":40,"eval_count":4}`))
	}))
	defer server.Close()

	p, _ := New(server.URL, "llama3")
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "review"}},
		MaxTokens:    256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Looks robust." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 4 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if got.Stream {
		t.Error("expected non-streaming request")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("expected system message first, got %+v", got.Messages)
	}
	if got.Options.NumPredict != 256 {
		t.Errorf("expected num_predict 256, got %d", got.Options.NumPredict)
	}
}

func TestChat_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	p, _ := New(server.URL, "missing")
	_, err := p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}})
	if !errors.Is(err, core.ErrLLMFailed) {
		t.Errorf("expected LLM failed error, got %v", err)
	}
}
