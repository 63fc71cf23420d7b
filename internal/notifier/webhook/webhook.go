// Package webhook posts goal transitions as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/backtrack/internal/notifier"
)

const (
	kindGoalStatus = "goal_status"
	kindSweep      = "goal_sweep"
)

// message is the body posted to the endpoint. A single transition carries
// Event; a sweep carries Events.
type message struct {
	Kind   string               `json:"kind"`
	Text   string               `json:"text"`
	Event  *notifier.GoalEvent  `json:"event,omitempty"`
	Count  int                  `json:"count,omitempty"`
	Events []notifier.GoalEvent `json:"events,omitempty"`
}

type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Init reads "url" (required) and "headers" from cfg.Params.
func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = strings.TrimSpace(url)
	}
	if headers, ok := cfg.Params["headers"].(map[string]string); ok {
		w.headers = headers
	}
	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}
	if w.client == nil {
		w.client = &http.Client{Timeout: 15 * time.Second}
	}
	return nil
}

func (w *Webhook) Send(ctx context.Context, event notifier.GoalEvent) error {
	return w.post(ctx, message{
		Kind:  kindGoalStatus,
		Text:  describe(event),
		Event: &event,
	})
}

func (w *Webhook) SendBatch(ctx context.Context, events []notifier.GoalEvent) error {
	if len(events) == 0 {
		return nil
	}
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = describe(ev)
	}
	return w.post(ctx, message{
		Kind:   kindSweep,
		Text:   strings.Join(lines, "\n"),
		Count:  len(events),
		Events: events,
	})
}

// describe renders one transition for chat-style receivers that only read text.
func describe(ev notifier.GoalEvent) string {
	return fmt.Sprintf("Goal %q %s: %s of %s (%s)",
		ev.Title, ev.ToStatus, ev.CurrentValue, ev.TargetValue, ev.GoalType)
}

func (w *Webhook) post(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook: endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
