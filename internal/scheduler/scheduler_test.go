package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jmylchreest/pagewatch/internal/checker"
	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/repository"
)

type fakeChecker struct {
	fn func(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error)
}

func (f *fakeChecker) Check(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error) {
	return f.fn(ctx, p)
}

type nopProductRepo struct{}

func (nopProductRepo) Create(ctx context.Context, p *models.Product) error { return nil }
func (nopProductRepo) Get(ctx context.Context, id string) (*models.Product, error) {
	return nil, repository.ErrNotFound
}
func (nopProductRepo) List(ctx context.Context, page, perPage int, filter repository.ProductFilter) ([]*models.Product, error) {
	return nil, nil
}
func (nopProductRepo) Update(ctx context.Context, p *models.Product) error { return nil }
func (nopProductRepo) Delete(ctx context.Context, id string) error        { return nil }
func (nopProductRepo) ListActiveUnpaused(ctx context.Context) ([]*models.Product, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, fn func(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error), maxRunning int) *Scheduler {
	t.Helper()
	sch := New(&fakeChecker{fn: fn}, nopProductRepo{}, nil, nil, Config{MaxRunningJobs: maxRunning, JobTimeout: 5 * time.Second}, nil)
	if err := sch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	t.Cleanup(sch.Stop)
	return sch
}

// For any product, at no instant are two check tasks simultaneously in-flight.
func TestScheduler_NeverRunsConcurrentJobsForSameProduct(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sch := newTestScheduler(t, func(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error) {
		started <- struct{}{}
		<-release
		return checker.ProductCheckResult{SourcesChecked: 1, SourcesSucceeded: 1}, nil, nil
	}, 5)

	p := &models.Product{ID: "p1", Cron: "* * * * *"}
	if err := sch.RunNow(context.Background(), p.ID, p); err != nil {
		t.Fatalf("first RunNow() error = %v", err)
	}
	<-started

	if err := sch.RunNow(context.Background(), p.ID, p); err == nil {
		t.Error("second RunNow() while the first is in flight should fail")
	}
	close(release)
}

// Scheduler overflow (scenario 5): max_running_jobs=2, three fires in the
// same tick, exactly two run, the third's JobInfo gains error_count=1,
// last_error="overflow", no task spawned for it.
func TestScheduler_Overflow(t *testing.T) {
	release := make(chan struct{})
	sch := newTestScheduler(t, func(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error) {
		<-release
		return checker.ProductCheckResult{SourcesChecked: 1, SourcesSucceeded: 1}, nil, nil
	}, 2)

	p1 := &models.Product{ID: "p1", IsActive: true, Cron: "* * * * *"}
	p2 := &models.Product{ID: "p2", IsActive: true, Cron: "* * * * *"}
	p3 := &models.Product{ID: "p3", IsActive: true, Cron: "* * * * *"}
	for _, p := range []*models.Product{p1, p2, p3} {
		if err := sch.Schedule(p); err != nil {
			t.Fatalf("Schedule(%s) error = %v", p.ID, err)
		}
	}

	// Fire all three "at once" by invoking the internal onFire path directly,
	// simulating three products whose cron ticks land in the same instant.
	sch.onFire("p1")
	sch.onFire("p2")
	sch.onFire("p3")

	// Give the actor a moment to process the synchronous onFire calls
	// (onFire itself blocks on s.exec, so by the time Schedule/onFire
	// return the third has already been classified).
	info3, ok := sch.GetJobInfo("p3")
	if !ok {
		t.Fatal("expected JobInfo for p3")
	}
	if info3.ErrorCount != 1 || info3.LastError != "overflow" {
		t.Errorf("p3 JobInfo = %+v, want error_count=1 last_error=overflow", info3)
	}

	stats := sch.Stats()
	if stats.Running != 2 {
		t.Errorf("Running = %d, want 2", stats.Running)
	}
	close(release)
}

func TestScheduler_PauseResume(t *testing.T) {
	sch := newTestScheduler(t, func(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error) {
		return checker.ProductCheckResult{SourcesChecked: 1, SourcesSucceeded: 1}, nil, nil
	}, 5)

	p := &models.Product{ID: "p1", IsActive: true, Cron: "* * * * *"}
	if err := sch.Schedule(p); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := sch.Pause(p.ID); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	info, _ := sch.GetJobInfo(p.ID)
	if info.Status != models.JobStatusPaused {
		t.Errorf("Status = %v, want Paused", info.Status)
	}

	sch.onFire(p.ID)
	stats := sch.Stats()
	if stats.Running != 0 {
		t.Error("a paused job must not fire")
	}

	if err := sch.Resume(p.ID); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	info, _ = sch.GetJobInfo(p.ID)
	if info.Status != models.JobStatusActive {
		t.Errorf("Status = %v, want Active", info.Status)
	}
}

func TestScheduler_Schedule_RejectsInactiveOrPaused(t *testing.T) {
	sch := newTestScheduler(t, func(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error) {
		return checker.ProductCheckResult{}, nil, nil
	}, 5)

	inactive := &models.Product{ID: "p1", IsActive: false, Cron: "* * * * *"}
	if err := sch.Schedule(inactive); err == nil {
		t.Error("Schedule() on an inactive product should fail")
	}

	paused := &models.Product{ID: "p2", IsActive: true, IsPaused: true, Cron: "* * * * *"}
	if err := sch.Schedule(paused); err == nil {
		t.Error("Schedule() on a paused product should fail")
	}
}
