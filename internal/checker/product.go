package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/pagewatch/internal/comparison"
	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/repository"
	"github.com/jmylchreest/pagewatch/internal/tracker"
)

// ProductCheckResult aggregates the outcome of one product run (§4.5).
type ProductCheckResult struct {
	ProductID           string
	SourcesChecked      int
	SourcesSucceeded    int
	ChangesDetected     int
	NotificationsSent   int
	SourceResults       []SourceCheckResult
	Comparison          *models.PriceComparison
	TotalTimeMs         int64
}

// ChangeEvent is emitted once per source whose notification gate passed.
type ChangeEvent struct {
	ProductID  string
	SourceID   string
	OldValue   []byte
	NewValue   []byte
	Compare    tracker.CompareResult
	Comparison *models.PriceComparison
}

// ProductChecker fans out to a product's eligible sources and decides
// which changes become notification events (§4.5).
type ProductChecker struct {
	source      *SourceChecker
	registry    *tracker.Registry
	sources     repository.SourceRepository
	products    repository.ProductRepository
	comparisons repository.PriceComparisonRepository
}

func NewProductChecker(source *SourceChecker, registry *tracker.Registry, sources repository.SourceRepository, products repository.ProductRepository, comparisons repository.PriceComparisonRepository) *ProductChecker {
	return &ProductChecker{source: source, registry: registry, sources: sources, products: products, comparisons: comparisons}
}

// Check runs a full product check: every eligible source, in turn,
// through the source checker, then the comparison engine when
// applicable. Returns change events the caller should hand to the
// notification dispatcher.
func (pc *ProductChecker) Check(ctx context.Context, p *models.Product) (ProductCheckResult, []ChangeEvent, error) {
	start := time.Now()

	t, ok := pc.registry.Get(string(p.Kind))
	if !ok {
		return ProductCheckResult{}, nil, fmt.Errorf("checker: no tracker registered for kind %q", p.Kind)
	}

	srcs, err := pc.sources.GetByProduct(ctx, p.ID)
	if err != nil {
		return ProductCheckResult{}, nil, fmt.Errorf("checker: load sources: %w", err)
	}

	var result ProductCheckResult
	result.ProductID = p.ID
	var events []ChangeEvent
	var comparisonSources []models.ComparisonSource

	for _, s := range srcs {
		if !s.Eligible() {
			continue
		}
		result.SourcesChecked++

		sr := pc.source.Check(ctx, s, p.Kind, t, p.NotifyPolicy, p.Threshold)
		result.SourceResults = append(result.SourceResults, sr)
		if !sr.Success {
			continue
		}
		result.SourcesSucceeded++
		if sr.ValueChanged {
			result.ChangesDetected++
		}
		if sr.ShouldNotify {
			result.NotificationsSent++
			events = append(events, ChangeEvent{
				ProductID: p.ID,
				SourceID:  s.ID,
				OldValue:  sr.OldValue,
				NewValue:  sr.NewValue,
				Compare:   sr.Compare,
			})
		}

		comparisonSources = append(comparisonSources, models.ComparisonSource{
			SourceID:  s.ID,
			StoreName: s.StoreName,
			Value:     s.CurrentValue,
			Formatted: t.Format(s.CurrentValue),
			URL:       s.URL,
		})
	}

	if p.Kind == models.TrackerKindPrice && result.SourcesSucceeded >= 2 {
		cmp, err := comparison.Compare(p.ID, comparisonSources)
		if err == nil {
			result.Comparison = cmp
			if err := pc.comparisons.Create(ctx, cmp); err != nil {
				return result, events, fmt.Errorf("checker: persist comparison: %w", err)
			}
			p.BestSourceID = &cmp.BestSourceID
			p.BestValue = cmp.BestValue
			for i := range events {
				events[i].Comparison = cmp
			}
		}
	}

	now := time.Now().UTC()
	p.LastChecked = &now
	p.UpdatedAt = now
	if err := pc.products.Update(ctx, p); err != nil {
		return result, events, fmt.Errorf("checker: update product: %w", err)
	}

	result.TotalTimeMs = time.Since(start).Milliseconds()
	return result, events, nil
}
