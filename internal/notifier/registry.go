package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/signaldesk/internal/core"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// Names returns the registered notifier names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered notifiers
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends a signal to all registered notifiers. The result holds one
// entry per notifier, nil on success.
func (r *Registry) NotifyAll(ctx context.Context, signal core.Signal) map[string]error {
	return r.each(func(n Notifier) error { return n.Send(ctx, signal) })
}

// NotifyAllBatch sends multiple signals to all registered notifiers. A nil
// registry or an empty batch sends nothing.
func (r *Registry) NotifyAllBatch(ctx context.Context, signals []core.Signal) map[string]error {
	if len(signals) == 0 {
		return map[string]error{}
	}
	return r.each(func(n Notifier) error { return n.SendBatch(ctx, signals) })
}

func (r *Registry) each(send func(Notifier) error) map[string]error {
	results := make(map[string]error)
	if r == nil {
		return results
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, n := range r.notifiers {
		if err := send(n); err != nil {
			results[name] = core.WrapError(core.ErrNotifierFailed, err)
		} else {
			results[name] = nil
		}
	}
	return results
}
