// Package notify implements the polymorphic Notifier capability set
// and a dispatcher that fans a product's change events out to every
// configured notifier.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmylchreest/pagewatch/internal/models"
)

// Notifier is the capability set every notification backend implements,
// kept disjoint from tracker.Tracker per §9.
type Notifier interface {
	Name() string
	Kind() models.NotifierKind
	Description() string
	Initialize(configJSON json.RawMessage) error
	Notify(ctx context.Context, event models.NotificationEvent) models.NotifyResult
	TestConnection(ctx context.Context, configJSON json.RawMessage) error
	ConfigSchema() json.RawMessage
	ValidateConfig(configJSON json.RawMessage) error
	Shutdown() error
}

// Registry holds notifiers keyed by kind, admission-checked against
// duplicate registration.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[models.NotifierKind]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[models.NotifierKind]Notifier)}
}

// Register admits a notifier, rejecting a kind that is already claimed.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.notifiers[n.Kind()]; exists {
		return fmt.Errorf("notify: notifier kind %q already registered", n.Kind())
	}
	r.notifiers[n.Kind()] = n
	return nil
}

// Get looks up a notifier by kind.
func (r *Registry) Get(kind models.NotifierKind) (Notifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifiers[kind]
	return n, ok
}

// All returns every registered notifier, in no particular order.
func (r *Registry) All() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		out = append(out, n)
	}
	return out
}
