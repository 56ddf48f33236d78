package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmylchreest/pagewatch/internal/repository"
)

const bindingsSettingKey = "notifier_bindings"

// SettingBindings resolves ProductNotifiers from a single system_setting
// row shared by every product. There is no per-product subscription table
// in the data model; a deployment that needs per-product notifier
// selection can add one without changing the Dispatcher contract.
type SettingBindings struct {
	settings repository.SystemSettingRepository
}

func NewSettingBindings(settings repository.SystemSettingRepository) *SettingBindings {
	return &SettingBindings{settings: settings}
}

// ForProduct ignores productID: every product is notified through the same
// globally-configured bindings.
func (s *SettingBindings) ForProduct(ctx context.Context, productID string) ([]NotifierBinding, error) {
	setting, err := s.settings.Get(ctx, bindingsSettingKey)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notify: load bindings: %w", err)
	}

	var bindings []NotifierBinding
	if err := json.Unmarshal(setting.Value, &bindings); err != nil {
		return nil, fmt.Errorf("notify: decode bindings: %w", err)
	}
	return bindings, nil
}

// SetBindings stores the global notifier binding set.
func (s *SettingBindings) SetBindings(ctx context.Context, bindings []NotifierBinding) error {
	value, err := json.Marshal(bindings)
	if err != nil {
		return fmt.Errorf("notify: encode bindings: %w", err)
	}
	return s.settings.Set(ctx, bindingsSettingKey, value)
}
