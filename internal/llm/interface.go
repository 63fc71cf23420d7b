// Package llm abstracts the chat-completion providers used for backtest
// reviews.
package llm

import (
	"context"
	"strings"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultMaxTokens = 1024
)

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Ask sends a single user prompt and returns the trimmed reply text.
func Ask(ctx context.Context, p Provider, system, prompt string, maxTokens int) (string, *Usage, error) {
	resp, err := p.Chat(ctx, ChatRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:    maxTokens,
		Temperature:  0.3,
	})
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(resp.Content), &resp.Usage, nil
}

// MaxTokensOrDefault returns n, or DefaultMaxTokens when n is not positive.
func MaxTokensOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
