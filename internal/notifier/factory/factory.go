// Package factory builds the notifier registry from configuration.
package factory

import (
	"fmt"
	"sort"

	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/notifier"
	"github.com/newthinker/backtrack/internal/notifier/telegram"
	"github.com/newthinker/backtrack/internal/notifier/webhook"
)

// New creates a notifier by name.
func New(name string, cfg config.NotifierConfig) (notifier.Notifier, error) {
	var n notifier.Notifier
	params := map[string]any{}
	switch name {
	case "telegram":
		n = &telegram.Telegram{}
		params["bot_token"] = cfg.BotToken
		params["chat_id"] = cfg.ChatID
	case "webhook":
		n = &webhook.Webhook{}
		params["url"] = cfg.URL
		params["headers"] = cfg.Headers
	default:
		return nil, fmt.Errorf("unknown notifier: %s", name)
	}
	if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
		return nil, err
	}
	return n, nil
}

// Registry registers every enabled notifier.
func Registry(cfgs map[string]config.NotifierConfig) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := cfgs[name]
		if !cfg.Enabled {
			continue
		}
		n, err := New(name, cfg)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
