package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// GoalEvent describes a goal leaving the in_progress state.
type GoalEvent struct {
	GoalID       string    `json:"goal_id"`
	Title        string    `json:"title"`
	GoalType     string    `json:"goal_type"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
	CurrentValue string    `json:"current_value"`
	TargetValue  string    `json:"target_value"`
	EndDate      time.Time `json:"end_date"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier defines the interface for goal notifications
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send sends a single goal event
	Send(ctx context.Context, event GoalEvent) error

	// SendBatch sends the events produced by one refresh sweep
	SendBatch(ctx context.Context, events []GoalEvent) error
}
