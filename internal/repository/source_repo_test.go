package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/pagewatch/internal/models"
)

func createTestProduct(t *testing.T, repos *Repositories) *models.Product {
	t.Helper()
	p := newTestProduct()
	if err := repos.Product.Create(context.Background(), p); err != nil {
		t.Fatalf("Create(product) error = %v", err)
	}
	return p
}

func TestSourceRepository_CreateGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	p := createTestProduct(t, repos)

	s := &models.Source{
		ID:           uuid.NewString(),
		ProductID:    p.ID,
		URL:          "https://shop.example.com/p",
		Selector:     ".price",
		SelectorType: models.SelectorCSS,
		IsActive:     true,
	}
	if err := repos.Source.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repos.Source.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.URL != s.URL || got.Selector != s.Selector {
		t.Errorf("Get() = %+v, want matching %+v", got, s)
	}
	if !got.Eligible() {
		t.Error("freshly created active source should be Eligible()")
	}
}

func TestSourceRepository_QuarantineAfterFiveErrors(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	p := createTestProduct(t, repos)

	s := &models.Source{
		ID:           uuid.NewString(),
		ProductID:    p.ID,
		URL:          "https://shop.example.com/p",
		SelectorType: models.SelectorCSS,
		IsActive:     true,
	}
	if err := repos.Source.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	s.ErrorCount = 5
	s.LastError = "selector stale"
	if err := repos.Source.Update(ctx, s); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repos.Source.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Eligible() {
		t.Error("source with error_count=5 should not be Eligible()")
	}
}

func TestSourceRepository_GetByProduct(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	p := createTestProduct(t, repos)

	for i := 0; i < 2; i++ {
		s := &models.Source{ID: uuid.NewString(), ProductID: p.ID, URL: "https://x", SelectorType: models.SelectorCSS, IsActive: true}
		if err := repos.Source.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := repos.Source.GetByProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByProduct() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("GetByProduct() returned %d sources, want 2", len(list))
	}
}

func TestPriceHistoryRepository_AppendAndList(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	p := createTestProduct(t, repos)
	s := &models.Source{ID: uuid.NewString(), ProductID: p.ID, URL: "https://x", SelectorType: models.SelectorCSS, IsActive: true}
	if err := repos.Source.Create(ctx, s); err != nil {
		t.Fatalf("Create(source) error = %v", err)
	}

	h := &models.PriceHistory{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", SourceID: s.ID, Value: []byte(`{"amount":"9.99","currency":"USD"}`), Text: "$9.99", Timestamp: time.Now().UTC()}
	if err := repos.PriceHistory.Append(ctx, h); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	list, err := repos.PriceHistory.GetBySource(ctx, s.ID, 10)
	if err != nil {
		t.Fatalf("GetBySource() error = %v", err)
	}
	if len(list) != 1 || list[0].Text != "$9.99" {
		t.Errorf("GetBySource() = %+v, want one entry with text $9.99", list)
	}
}
