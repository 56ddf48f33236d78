package checker

import (
	"context"
	"testing"
	"time"

	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/repository"
	"github.com/jmylchreest/pagewatch/internal/tracker"
)

type fakeProducts struct {
	updated []*models.Product
}

func (f *fakeProducts) Create(ctx context.Context, p *models.Product) error { return nil }
func (f *fakeProducts) Get(ctx context.Context, id string) (*models.Product, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeProducts) List(ctx context.Context, page, perPage int, filter repository.ProductFilter) ([]*models.Product, error) {
	return nil, nil
}
func (f *fakeProducts) Update(ctx context.Context, p *models.Product) error {
	f.updated = append(f.updated, p)
	return nil
}
func (f *fakeProducts) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeProducts) ListActiveUnpaused(ctx context.Context) ([]*models.Product, error) {
	return nil, nil
}

type fakeComparisons struct {
	created []*models.PriceComparison
}

func (f *fakeComparisons) Create(ctx context.Context, c *models.PriceComparison) error {
	f.created = append(f.created, c)
	return nil
}
func (f *fakeComparisons) GetLatestByProduct(ctx context.Context, productID string) (*models.PriceComparison, error) {
	if len(f.created) == 0 {
		return nil, repository.ErrNotFound
	}
	return f.created[len(f.created)-1], nil
}

// sourceOnlySources satisfies repository.SourceRepository by serving a
// fixed set of sources for GetByProduct and recording Update calls.
type sourceOnlySources struct {
	bySource map[string]*models.Source
	updated  []*models.Source
}

func (f *sourceOnlySources) Create(ctx context.Context, s *models.Source) error { return nil }
func (f *sourceOnlySources) Get(ctx context.Context, id string) (*models.Source, error) {
	if s, ok := f.bySource[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}
func (f *sourceOnlySources) GetByProduct(ctx context.Context, productID string) ([]*models.Source, error) {
	var out []*models.Source
	for _, s := range f.bySource {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *sourceOnlySources) Update(ctx context.Context, s *models.Source) error {
	f.updated = append(f.updated, s)
	return nil
}
func (f *sourceOnlySources) Delete(ctx context.Context, id string) error { return nil }

func newRegistryWithPrice() *tracker.Registry {
	r := tracker.NewRegistry()
	_ = r.Register(tracker.NewPriceTracker("USD"))
	return r
}

// At the fan-out level, a quarantined (ineligible) source is skipped
// entirely — it appears in neither sources_checked nor sources_succeeded.
func TestProductChecker_SkipsIneligibleSources(t *testing.T) {
	hist := &fakeHistory{}
	okSources := &sourceOnlySources{bySource: map[string]*models.Source{
		"healthy": {ID: "healthy", ProductID: "p1", URL: "https://a", Selector: ".price", SelectorType: models.SelectorCSS, IsActive: true},
		"dead":    {ID: "dead", ProductID: "p1", URL: "https://b", Selector: ".price", SelectorType: models.SelectorCSS, IsActive: true, ErrorCount: models.QuarantineThreshold},
	}}
	f := stubFetcher{result: priceResult("$10.00")}
	sc := NewSourceChecker(f, hist, okSources, time.Second)

	products := &fakeProducts{}
	comparisons := &fakeComparisons{}
	pc := NewProductChecker(sc, newRegistryWithPrice(), okSources, products, comparisons)

	p := &models.Product{ID: "p1", Kind: models.TrackerKindPrice, NotifyPolicy: models.NotifyPolicyAnyChange}
	result, _, err := pc.Check(context.Background(), p)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.SourcesChecked != 1 {
		t.Errorf("SourcesChecked = %d, want 1 (quarantined source must be skipped)", result.SourcesChecked)
	}
	if result.SourcesSucceeded != 1 {
		t.Errorf("SourcesSucceeded = %d, want 1", result.SourcesSucceeded)
	}
}

// A source's first successful observation has nothing to diff against, so
// a product's first run across all-new sources reports zero changes.
func TestProductChecker_FirstRunReportsZeroChanges(t *testing.T) {
	hist := &fakeHistory{}
	srcs := &sourceOnlySources{bySource: map[string]*models.Source{
		"a": {ID: "a", ProductID: "p1", URL: "https://a", Selector: ".price", SelectorType: models.SelectorCSS, IsActive: true},
		"b": {ID: "b", ProductID: "p1", URL: "https://b", Selector: ".price", SelectorType: models.SelectorCSS, IsActive: true},
	}}
	f := stubFetcher{result: priceResult("$10.00")}
	sc := NewSourceChecker(f, hist, srcs, time.Second)

	products := &fakeProducts{}
	comparisons := &fakeComparisons{}
	pc := NewProductChecker(sc, newRegistryWithPrice(), srcs, products, comparisons)

	p := &models.Product{ID: "p1", Kind: models.TrackerKindPrice, NotifyPolicy: models.NotifyPolicyAnyChange}
	result, events, err := pc.Check(context.Background(), p)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.ChangesDetected != 0 {
		t.Errorf("ChangesDetected = %d, want 0 on a product's first run", result.ChangesDetected)
	}
	if len(events) != 0 {
		t.Errorf("events = %d, want 0 on a product's first run", len(events))
	}
}

// With >=2 succeeding price sources, a comparison is computed and persisted.
func TestProductChecker_ComparisonOnMultiSourcePrice(t *testing.T) {
	hist := &fakeHistory{}
	srcs := &sourceOnlySources{bySource: map[string]*models.Source{
		"a": {ID: "a", ProductID: "p1", URL: "https://a", Selector: ".price", SelectorType: models.SelectorCSS, IsActive: true},
		"b": {ID: "b", ProductID: "p1", URL: "https://b", Selector: ".price", SelectorType: models.SelectorCSS, IsActive: true},
	}}
	f := stubFetcher{result: priceResult("$10.00")}
	sc := NewSourceChecker(f, hist, srcs, time.Second)

	products := &fakeProducts{}
	comparisons := &fakeComparisons{}
	pc := NewProductChecker(sc, newRegistryWithPrice(), srcs, products, comparisons)

	p := &models.Product{ID: "p1", Kind: models.TrackerKindPrice, NotifyPolicy: models.NotifyPolicyAnyChange}
	result, _, err := pc.Check(context.Background(), p)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Comparison == nil {
		t.Fatal("expected a comparison to be computed with 2 succeeded sources")
	}
	if len(comparisons.created) != 1 {
		t.Errorf("comparisons.created = %d, want 1", len(comparisons.created))
	}
	if len(products.updated) != 1 {
		t.Errorf("products.updated = %d, want 1", len(products.updated))
	}
}

// With only one succeeding source, no comparison is computed.
func TestProductChecker_NoComparisonSingleSource(t *testing.T) {
	hist := &fakeHistory{}
	srcs := &sourceOnlySources{bySource: map[string]*models.Source{
		"a": {ID: "a", ProductID: "p1", URL: "https://a", Selector: ".price", SelectorType: models.SelectorCSS, IsActive: true},
	}}
	f := stubFetcher{result: priceResult("$10.00")}
	sc := NewSourceChecker(f, hist, srcs, time.Second)

	products := &fakeProducts{}
	comparisons := &fakeComparisons{}
	pc := NewProductChecker(sc, newRegistryWithPrice(), srcs, products, comparisons)

	p := &models.Product{ID: "p1", Kind: models.TrackerKindPrice, NotifyPolicy: models.NotifyPolicyAnyChange}
	result, _, err := pc.Check(context.Background(), p)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Comparison != nil {
		t.Error("expected no comparison with a single succeeded source")
	}
}
