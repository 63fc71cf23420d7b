package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/backtrack/internal/core"
)

// Registry holds the configured notifiers, keyed by name. A nil Registry
// has no notifiers.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[string]Notifier)}
}

// Register adds n. Names are unique.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return core.WrapError(core.ErrConflict, fmt.Errorf("notifier %s already registered", name))
	}
	r.notifiers[name] = n
	return nil
}

func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("notifier %s", name))
	}
	return n, nil
}

// Names lists registered notifiers in name order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends one goal transition to every notifier. Failures are
// returned per notifier name; one failing notifier does not stop the rest.
func (r *Registry) NotifyAll(ctx context.Context, event GoalEvent) map[string]error {
	return r.each(func(n Notifier) error { return n.Send(ctx, event) })
}

// NotifyAllBatch sends the transitions of one sweep as a single message per
// notifier. An empty batch sends nothing.
func (r *Registry) NotifyAllBatch(ctx context.Context, events []GoalEvent) map[string]error {
	if len(events) == 0 {
		return map[string]error{}
	}
	return r.each(func(n Notifier) error { return n.SendBatch(ctx, events) })
}

func (r *Registry) each(send func(Notifier) error) map[string]error {
	errs := make(map[string]error)
	if r == nil {
		return errs
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, n := range r.notifiers {
		if err := send(n); err != nil {
			errs[name] = err
		}
	}
	return errs
}
