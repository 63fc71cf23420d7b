package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/backtrack/internal/notifier"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return NewWithBaseURL(botToken, chatID, defaultBaseURL)
}

// NewWithBaseURL creates a notifier against a custom Bot API host.
func NewWithBaseURL(botToken, chatID, baseURL string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, event notifier.GoalEvent) error {
	return t.sendMessage(ctx, t.formatEvent(event))
}

func (t *Telegram) SendBatch(ctx context.Context, events []notifier.GoalEvent) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎯 *%d goal updates*\n\n", len(events)))

	for i, ev := range events {
		sb.WriteString(t.formatEvent(ev))
		if i < len(events)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(ctx, sb.String())
}

func (t *Telegram) formatEvent(ev notifier.GoalEvent) string {
	var sb strings.Builder

	emoji := "⏳"
	switch ev.ToStatus {
	case "achieved":
		emoji = "✅"
	case "failed":
		emoji = "❌"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* - %s\n", emoji, ev.Title, ev.ToStatus))
	sb.WriteString(fmt.Sprintf("📊 %s: %s / %s\n", ev.GoalType, ev.CurrentValue, ev.TargetValue))
	if !ev.EndDate.IsZero() {
		sb.WriteString(fmt.Sprintf("📅 Deadline: %s\n", ev.EndDate.Format("2006-01-02")))
	}
	sb.WriteString(fmt.Sprintf("⏰ Time: %s", ev.OccurredAt.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
