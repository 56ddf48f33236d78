// Package scheduler implements the cron-driven coordinator described in
// one product_id -> JobInfo mapping, one product_id ->
// running-task mapping, both owned by a single actor goroutine so that
// "at-most-one running check per product" falls out of the design
// rather than needing to be enforced by a lock.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/pagewatch/internal/checker"
	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/repository"
)

// ProductChecker is the subset of *checker.ProductChecker the scheduler
// depends on.
type ProductChecker interface {
	Check(ctx context.Context, p *models.Product) (checker.ProductCheckResult, []checker.ChangeEvent, error)
}

// NotifyDispatcher delivers change events produced by a product run. The
// concrete implementation lives in internal/notify; the scheduler only
// needs to hand events off, never inspect notifier internals.
type NotifyDispatcher interface {
	Dispatch(ctx context.Context, product *models.Product, events []checker.ChangeEvent)
}

// Config holds scheduler tunables.
type Config struct {
	MaxRunningJobs int
	JobTimeout     time.Duration
}

// Stats is the aggregate snapshot returned by Scheduler.Stats.
type Stats struct {
	Total          int
	Active         int
	Paused         int
	Running        int
	CompletedRuns  int64
	FailedRuns     int64
	AvgRunTimeMs   float64
	UptimeSeconds  float64
}

type jobEntry struct {
	cronEntryID cron.EntryID
	info        *models.JobInfo
	product     *models.Product
}

// Scheduler is the cron-driven coordinator. All mutable state (jobs,
// runningTasks, aggregate counters) is owned by a single loop goroutine
// started by Run; every public method hands the actor a closure and
// waits for it to execute, rather than taking a lock itself.
type Scheduler struct {
	cronEngine *cron.Cron
	cmd        chan func()

	jobs        map[string]*jobEntry
	runningTask map[string]context.CancelFunc

	totalRuns     int64
	completedRuns int64
	failedRuns    int64
	totalRunTimeMs int64

	checker  ProductChecker
	products repository.ProductRepository
	jobInfos repository.JobInfoRepository
	notifier NotifyDispatcher

	maxRunningJobs int
	jobTimeout     time.Duration

	logger    *slog.Logger
	startedAt time.Time

	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex // guards closed/stop only, not domain state
}

func New(pc ProductChecker, products repository.ProductRepository, jobInfos repository.JobInfoRepository, notifier NotifyDispatcher, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.MaxRunningJobs <= 0 {
		cfg.MaxRunningJobs = 5
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cronEngine:     cron.New(),
		cmd:            make(chan func(), 64),
		jobs:           make(map[string]*jobEntry),
		runningTask:    make(map[string]context.CancelFunc),
		checker:        pc,
		products:       products,
		jobInfos:       jobInfos,
		notifier:       notifier,
		maxRunningJobs: cfg.MaxRunningJobs,
		jobTimeout:     cfg.JobTimeout,
		logger:         logger.With("component", "scheduler"),
		stop:           make(chan struct{}),
	}
}

// Run starts the actor loop and the cron engine, then rehydrates
// JobInfo from every active, unpaused product.
func (s *Scheduler) Run(ctx context.Context) error {
	s.startedAt = time.Now()
	s.cronEngine.Start()
	s.wg.Add(1)
	go s.actorLoop(ctx)

	products, err := s.products.ListActiveUnpaused(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: rehydrate: %w", err)
	}
	for _, p := range products {
		if err := s.Schedule(p); err != nil {
			s.logger.Error("failed to rehydrate schedule", "product_id", p.ID, "error", err)
		}
	}
	return nil
}

// Stop aborts every in-flight task without waiting, stops the cron
// engine, and shuts down the actor loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	<-s.cronEngine.Stop().Done()
	s.wg.Wait()
}

func (s *Scheduler) actorLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			for id, cancel := range s.runningTask {
				cancel()
				delete(s.runningTask, id)
			}
			return
		case <-ctx.Done():
			return
		case fn := <-s.cmd:
			fn()
		}
	}
}

// exec runs fn on the actor goroutine and blocks until it completes.
func (s *Scheduler) exec(fn func()) {
	done := make(chan struct{})
	s.cmd <- func() {
		fn()
		close(done)
	}
	<-done
}

// Schedule installs a cron-triggered job for product, replacing any
// existing job for the same product_id. Preconditions: is_active and
// not is_paused.
func (s *Scheduler) Schedule(p *models.Product) error {
	if !p.IsActive || p.IsPaused {
		return fmt.Errorf("scheduler: product %s is not active or is paused", p.ID)
	}
	if err := ValidateCron(p.Cron); err != nil {
		return err
	}

	var outerErr error
	s.exec(func() {
		s.removeJobLocked(p.ID)

		entryID, err := s.cronEngine.AddFunc(p.Cron, func() { s.onFire(p.ID) })
		if err != nil {
			outerErr = fmt.Errorf("scheduler: install cron job: %w", err)
			return
		}
		info := &models.JobInfo{
			JobID:     ulid.Make().String(),
			ProductID: p.ID,
			Cron:      p.Cron,
			Status:    models.JobStatusActive,
			CreatedAt: time.Now().UTC(),
		}
		s.jobs[p.ID] = &jobEntry{cronEntryID: entryID, info: info, product: p}
		if s.jobInfos != nil {
			_ = s.jobInfos.Upsert(context.Background(), info)
		}
	})
	return outerErr
}

// Unschedule aborts any running task for productID and removes its JobInfo.
func (s *Scheduler) Unschedule(productID string) error {
	var found bool
	s.exec(func() {
		found = s.removeJobLocked(productID)
	})
	if !found {
		return fmt.Errorf("scheduler: no job for product %s", productID)
	}
	if s.jobInfos != nil {
		_ = s.jobInfos.Delete(context.Background(), productID)
	}
	return nil
}

// removeJobLocked must only be called from the actor goroutine.
func (s *Scheduler) removeJobLocked(productID string) bool {
	entry, ok := s.jobs[productID]
	if !ok {
		return false
	}
	s.cronEngine.Remove(entry.cronEntryID)
	if cancel, running := s.runningTask[productID]; running {
		cancel()
		delete(s.runningTask, productID)
	}
	delete(s.jobs, productID)
	return true
}

// Reschedule unschedules then schedules, only if the product is
// currently active and unpaused.
func (s *Scheduler) Reschedule(p *models.Product) error {
	s.exec(func() { s.removeJobLocked(p.ID) })
	if !p.IsActive || p.IsPaused {
		return nil
	}
	return s.Schedule(p)
}

// Pause transitions a job's status to Paused; paused jobs do not fire.
func (s *Scheduler) Pause(productID string) error {
	var outerErr error
	s.exec(func() {
		entry, ok := s.jobs[productID]
		if !ok {
			outerErr = fmt.Errorf("scheduler: no job for product %s", productID)
			return
		}
		entry.info.Status = models.JobStatusPaused
		if s.jobInfos != nil {
			_ = s.jobInfos.Upsert(context.Background(), entry.info)
		}
	})
	return outerErr
}

// Resume transitions a job's status back to Active; it becomes
// eligible to fire on the next cron tick.
func (s *Scheduler) Resume(productID string) error {
	var outerErr error
	s.exec(func() {
		entry, ok := s.jobs[productID]
		if !ok {
			outerErr = fmt.Errorf("scheduler: no job for product %s", productID)
			return
		}
		entry.info.Status = models.JobStatusActive
		if s.jobInfos != nil {
			_ = s.jobInfos.Upsert(context.Background(), entry.info)
		}
	})
	return outerErr
}

// onFire is invoked by the cron engine on its own goroutine; it
// forwards into the actor so the overflow/at-most-one checks below run
// single-threaded against the shared maps.
func (s *Scheduler) onFire(productID string) {
	s.exec(func() {
		entry, ok := s.jobs[productID]
		if !ok || entry.info.Status != models.JobStatusActive {
			return
		}
		if _, running := s.runningTask[productID]; running {
			s.logger.Info("fire dropped: previous run still in flight", "product_id", productID)
			return
		}
		if len(s.runningTask) >= s.maxRunningJobs {
			entry.info.ErrorCount++
			entry.info.LastError = "overflow"
			s.logger.Warn("fire dropped: concurrency cap reached", "product_id", productID, "max_running_jobs", s.maxRunningJobs)
			if s.jobInfos != nil {
				_ = s.jobInfos.Upsert(context.Background(), entry.info)
			}
			return
		}
		s.spawnLocked(entry)
	})
}

// spawnLocked must only be called from the actor goroutine.
func (s *Scheduler) spawnLocked(entry *jobEntry) {
	runCtx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	s.runningTask[entry.product.ID] = cancel

	now := time.Now().UTC()
	entry.info.LastRun = &now
	entry.info.RunCount++

	go func() {
		defer cancel()
		start := time.Now()
		result, events, err := s.checker.Check(runCtx, entry.product)
		elapsed := time.Since(start).Milliseconds()

		s.exec(func() {
			delete(s.runningTask, entry.product.ID)
			s.totalRuns++
			s.totalRunTimeMs += elapsed
			if err != nil {
				s.failedRuns++
				entry.info.ErrorCount++
				entry.info.LastError = err.Error()
				entry.info.Status = models.JobStatusError
			} else if result.SourcesSucceeded == 0 && result.SourcesChecked > 0 {
				s.failedRuns++
				entry.info.ErrorCount++
				entry.info.LastError = "all sources failed"
				entry.info.Status = models.JobStatusError
			} else {
				s.completedRuns++
				entry.info.SuccessCount++
				entry.info.LastError = ""
				entry.info.Status = models.JobStatusActive
			}
			if s.jobInfos != nil {
				_ = s.jobInfos.Upsert(context.Background(), entry.info)
			}
		})

		if err == nil && len(events) > 0 && s.notifier != nil {
			s.notifier.Dispatch(context.Background(), entry.product, events)
		}
	}()
}

// RunNow invokes the product checker immediately; fails if a task for
// that product is already running.
func (s *Scheduler) RunNow(ctx context.Context, productID string, p *models.Product) error {
	var outerErr error
	s.exec(func() {
		if _, running := s.runningTask[productID]; running {
			outerErr = fmt.Errorf("scheduler: product %s already has a run in flight", productID)
			return
		}
		entry, ok := s.jobs[productID]
		if !ok {
			entry = &jobEntry{info: &models.JobInfo{JobID: ulid.Make().String(), ProductID: productID, Cron: p.Cron, Status: models.JobStatusActive, CreatedAt: time.Now().UTC()}}
			s.jobs[productID] = entry
		}
		entry.product = p
		s.spawnLocked(entry)
	})
	return outerErr
}

// GetJobInfo returns a copy of the JobInfo for productID.
func (s *Scheduler) GetJobInfo(productID string) (models.JobInfo, bool) {
	var info models.JobInfo
	var ok bool
	s.exec(func() {
		entry, found := s.jobs[productID]
		if found {
			info, ok = *entry.info, true
		}
	})
	return info, ok
}

// ListJobs returns a snapshot of every JobInfo currently tracked.
func (s *Scheduler) ListJobs() []models.JobInfo {
	var out []models.JobInfo
	s.exec(func() {
		out = make([]models.JobInfo, 0, len(s.jobs))
		for _, entry := range s.jobs {
			out = append(out, *entry.info)
		}
	})
	return out
}

// Health classifies a product's job per its success_rate thresholds.
func (s *Scheduler) Health(productID string) (models.HealthStatus, bool) {
	info, ok := s.GetJobInfo(productID)
	if !ok {
		return "", false
	}
	return info.Health(), true
}

// Stats returns the aggregate snapshot of job counts by status, running
// tasks, run outcomes, and uptime.
func (s *Scheduler) Stats() Stats {
	var st Stats
	s.exec(func() {
		st.Total = len(s.jobs)
		for _, entry := range s.jobs {
			switch entry.info.Status {
			case models.JobStatusActive:
				st.Active++
			case models.JobStatusPaused:
				st.Paused++
			}
		}
		st.Running = len(s.runningTask)
		st.CompletedRuns = s.completedRuns
		st.FailedRuns = s.failedRuns
		if s.totalRuns > 0 {
			st.AvgRunTimeMs = float64(s.totalRunTimeMs) / float64(s.totalRuns)
		}
	})
	st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	return st
}
