// Package service contains the business logic layer.
package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/pagewatch/internal/checker"
	"github.com/jmylchreest/pagewatch/internal/config"
	"github.com/jmylchreest/pagewatch/internal/fetcher"
	"github.com/jmylchreest/pagewatch/internal/finder"
	"github.com/jmylchreest/pagewatch/internal/notify"
	"github.com/jmylchreest/pagewatch/internal/repository"
	"github.com/jmylchreest/pagewatch/internal/scheduler"
	"github.com/jmylchreest/pagewatch/internal/tracker"
)

// Services holds every wired component the scheduler and HTTP surface need.
type Services struct {
	Fetcher    *fetcher.Fetcher
	Trackers   *tracker.Registry
	Finder     *finder.Finder
	Checker    *checker.ProductChecker
	Notifiers  *notify.Registry
	Dispatcher *notify.Dispatcher
	Scheduler  *scheduler.Scheduler
	Cleanup    *CleanupService
}

// NewServices wires the fetcher before the checkers, and the product
// checker and the notify dispatcher before the scheduler, which receives
// both.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) (*Services, error) {
	pool := fetcher.NewPool(fetcher.PoolConfig{
		MaxConcurrent: cfg.Scraper.MaxConcurrentChecks,
		ChromePath:    cfg.Scraper.ChromePath,
		RatePerSecond: cfg.Scraper.RatePerSecond,
		RateBurst:     cfg.Scraper.RateBurst,
	}, logger)

	var fetcherOpts []fetcher.Option
	fetcherOpts = append(fetcherOpts,
		fetcher.WithRetryPolicy(cfg.Scraper.RetryAttempts, time.Duration(cfg.Scraper.RetryDelayMs)*time.Millisecond),
		fetcher.WithUserAgent(cfg.Scraper.UserAgent),
	)
	if cfg.Screenshot.Enabled {
		fetcherOpts = append(fetcherOpts, fetcher.WithScreenshots(cfg.DataDir+"/screenshots"))
	}
	f := fetcher.New(pool, logger, fetcherOpts...)

	trackers := tracker.NewDefaultRegistry("USD")

	fd := finder.New(f, repos.FalsePositive)

	sourceChecker := checker.NewSourceChecker(f, repos.PriceHistory, repos.Source, cfg.Scraper.RequestTimeout)
	productChecker := checker.NewProductChecker(sourceChecker, trackers, repos.Source, repos.Product, repos.PriceComparison)

	notifiers := notify.NewRegistry()
	if err := notifiers.Register(notify.NewWebhookNotifier()); err != nil {
		return nil, fmt.Errorf("service: register webhook notifier: %w", err)
	}
	if err := notifiers.Register(notify.NewTelegramNotifier()); err != nil {
		return nil, fmt.Errorf("service: register telegram notifier: %w", err)
	}
	bindings := notify.NewSettingBindings(repos.SystemSetting)
	dispatcher := notify.NewDispatcher(notifiers, bindings, repos.NotificationLog, repos.Source, trackers, logger)

	sched := scheduler.New(productChecker, repos.Product, repos.JobInfo, dispatcher, scheduler.Config{
		MaxRunningJobs: cfg.Scheduler.MaxRunningJobs,
		JobTimeout:     cfg.Scheduler.JobTimeout,
	}, logger)

	cleanup := NewCleanupService(repos.PriceHistory, repos.NotificationLog, repos.FalsePositive, logger)

	return &Services{
		Fetcher:    f,
		Trackers:   trackers,
		Finder:     fd,
		Checker:    productChecker,
		Notifiers:  notifiers,
		Dispatcher: dispatcher,
		Scheduler:  sched,
		Cleanup:    cleanup,
	}, nil
}

