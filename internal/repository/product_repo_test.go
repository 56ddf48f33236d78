package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/pagewatch/internal/models"
)

func newTestProduct() *models.Product {
	now := time.Now().UTC()
	return &models.Product{
		ID:           uuid.NewString(),
		Name:         "Widget",
		Kind:         models.TrackerKindPrice,
		NotifyPolicy: models.NotifyPolicyAnyChange,
		Cron:         "*/10 * * * *",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestProductRepository_CreateGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	p := newTestProduct()
	if err := repos.Product.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repos.Product.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != p.Name || got.Kind != p.Kind || got.Cron != p.Cron {
		t.Errorf("Get() = %+v, want matching %+v", got, p)
	}
}

func TestProductRepository_GetNotFound(t *testing.T) {
	repos := setupTestRepos(t)
	if _, err := repos.Product.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestProductRepository_UpdateThreshold(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	p := newTestProduct()
	if err := repos.Product.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	p.Threshold = &models.Threshold{Kind: models.ThresholdAbsolute, Value: 2}
	p.UpdatedAt = time.Now().UTC()
	if err := repos.Product.Update(ctx, p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repos.Product.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Threshold == nil || got.Threshold.Kind != models.ThresholdAbsolute || got.Threshold.Value != 2 {
		t.Errorf("Threshold = %+v, want absolute 2", got.Threshold)
	}
}

func TestProductRepository_ListActiveUnpaused(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	active := newTestProduct()
	if err := repos.Product.Create(ctx, active); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	paused := newTestProduct()
	paused.IsPaused = true
	if err := repos.Product.Create(ctx, paused); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := repos.Product.ListActiveUnpaused(ctx)
	if err != nil {
		t.Fatalf("ListActiveUnpaused() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != active.ID {
		t.Errorf("ListActiveUnpaused() = %v, want only %s", list, active.ID)
	}
}

func TestProductRepository_Delete(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	p := newTestProduct()
	if err := repos.Product.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repos.Product.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repos.Product.Get(ctx, p.ID); err != ErrNotFound {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}
