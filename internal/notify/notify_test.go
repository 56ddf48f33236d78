package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jmylchreest/pagewatch/internal/models"
)

type stubNotifier struct {
	kind models.NotifierKind
}

func (s stubNotifier) Name() string                                      { return string(s.kind) }
func (s stubNotifier) Kind() models.NotifierKind                         { return s.kind }
func (s stubNotifier) Description() string                               { return "" }
func (s stubNotifier) Initialize(configJSON json.RawMessage) error       { return nil }
func (s stubNotifier) Notify(ctx context.Context, event models.NotificationEvent) models.NotifyResult {
	return models.NotifyResult{Success: true}
}
func (s stubNotifier) TestConnection(ctx context.Context, configJSON json.RawMessage) error {
	return nil
}
func (s stubNotifier) ConfigSchema() json.RawMessage         { return nil }
func (s stubNotifier) ValidateConfig(configJSON json.RawMessage) error { return nil }
func (s stubNotifier) Shutdown() error                       { return nil }

func TestRegistry_DuplicateKindRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubNotifier{kind: models.NotifierKindWebhook}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(stubNotifier{kind: models.NotifierKindWebhook}); err == nil {
		t.Error("Register() with a duplicate kind should fail")
	}
}

func TestRegistry_GetAndAll(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(stubNotifier{kind: models.NotifierKindWebhook})
	_ = r.Register(stubNotifier{kind: models.NotifierKindTelegram})

	if _, ok := r.Get(models.NotifierKindWebhook); !ok {
		t.Error("expected webhook notifier to be registered")
	}
	if len(r.All()) != 2 {
		t.Errorf("All() = %d notifiers, want 2", len(r.All()))
	}
}
