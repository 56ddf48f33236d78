package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/pagewatch/internal/checker"
	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/repository"
	"github.com/jmylchreest/pagewatch/internal/tracker"
)

// ProductNotifiers resolves which notifier kinds and configs a product
// has enabled. A minimal deployment might hard-code one kind for every
// product; a fuller one would read per-product subscriptions out of the
// repository.
type ProductNotifiers interface {
	ForProduct(ctx context.Context, productID string) ([]NotifierBinding, error)
}

// NotifierBinding pairs a notifier kind with its per-product config.
type NotifierBinding struct {
	Kind   models.NotifierKind
	Config []byte
}

// Dispatcher turns a product run's change events into NotificationEvents
// and fans them out to every notifier bound to that product, logging each
// attempt. Notifier failures never propagate back to the checker.
type Dispatcher struct {
	registry  *Registry
	bindings  ProductNotifiers
	logs      repository.NotificationLogRepository
	sources   repository.SourceRepository
	trackers  *tracker.Registry
	logger    *slog.Logger
}

func NewDispatcher(registry *Registry, bindings ProductNotifiers, logs repository.NotificationLogRepository, sources repository.SourceRepository, trackers *tracker.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, bindings: bindings, logs: logs, sources: sources, trackers: trackers, logger: logger.With("component", "notify")}
}

// Dispatch sends every event to every notifier bound to product, never
// blocking or failing the caller on a notifier error.
func (d *Dispatcher) Dispatch(ctx context.Context, product *models.Product, events []checker.ChangeEvent) {
	bindings, err := d.bindings.ForProduct(ctx, product.ID)
	if err != nil {
		d.logger.Error("failed to resolve notifier bindings", "product_id", product.ID, "error", err)
		return
	}
	if len(bindings) == 0 {
		return
	}

	t, ok := d.trackers.Get(string(product.Kind))
	if !ok {
		d.logger.Error("no tracker registered for product kind", "product_id", product.ID, "kind", product.Kind)
		return
	}

	for _, ev := range events {
		event := d.buildEvent(ctx, product, ev, t)
		for _, binding := range bindings {
			d.deliver(ctx, binding, event)
		}
	}
}

func (d *Dispatcher) buildEvent(ctx context.Context, product *models.Product, ev checker.ChangeEvent, t tracker.Tracker) models.NotificationEvent {
	storeName := ""
	if s, err := d.sources.Get(ctx, ev.SourceID); err == nil {
		storeName = s.StoreName
	}
	return models.NotificationEvent{
		ProductID:    product.ID,
		ProductName:  product.Name,
		SourceID:     ev.SourceID,
		StoreName:    storeName,
		Kind:         product.Kind,
		ChangeType:   string(ev.Compare.Direction),
		OldValue:     ev.OldValue,
		NewValue:     ev.NewValue,
		OldFormatted: t.Format(ev.OldValue),
		NewFormatted: t.Format(ev.NewValue),
		Threshold:    product.Threshold,
		Comparison:   ev.Comparison,
	}
}

func (d *Dispatcher) deliver(ctx context.Context, binding NotifierBinding, event models.NotificationEvent) {
	n, ok := d.registry.Get(binding.Kind)
	if !ok {
		d.logger.Error("no notifier registered for kind", "kind", binding.Kind)
		return
	}
	if err := n.Initialize(binding.Config); err != nil {
		d.logger.Error("notifier initialize failed", "kind", binding.Kind, "error", err)
		return
	}

	result := n.Notify(ctx, event)

	log := &models.NotificationLog{
		ID:           ulid.Make().String(),
		ProductID:    event.ProductID,
		NotifierKind: binding.Kind,
		Timestamp:    time.Now().UTC(),
	}
	if result.Success {
		log.Status = models.NotificationSent
	} else {
		log.Status = models.NotificationFailed
		log.Error = result.Error
		d.logger.Warn("notifier delivery failed", "kind", binding.Kind, "product_id", event.ProductID, "error", result.Error)
	}
	if d.logs != nil {
		if err := d.logs.Create(ctx, log); err != nil {
			d.logger.Error("failed to persist notification log", "error", err)
		}
	}
}
