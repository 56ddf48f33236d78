// Package main is the entry point for the pagewatch server: it tracks
// product pages on a schedule, diffs price, version and number values, and
// dispatches notifications when something changes.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmylchreest/pagewatch/internal/config"
	"github.com/jmylchreest/pagewatch/internal/database"
	httpapi "github.com/jmylchreest/pagewatch/internal/http"
	"github.com/jmylchreest/pagewatch/internal/logging"
	"github.com/jmylchreest/pagewatch/internal/repository"
	"github.com/jmylchreest/pagewatch/internal/service"
	"github.com/jmylchreest/pagewatch/internal/shutdown"
	"github.com/jmylchreest/pagewatch/internal/version"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting pagewatch",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if schemaVersion, err := database.GetLatestSchemaVersion(db); err != nil {
		logger.Warn("failed to get schema version", "error", err)
	} else if schemaVersion != "" {
		migrationCount, _ := database.GetMigrationCount(db)
		logger.Info("database schema ready", "schema_version", schemaVersion, "migrations_applied", migrationCount)
	}

	repos := repository.NewRepositories(db)

	services, err := service.NewServices(cfg, repos, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := services.Scheduler.Run(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// The scheduler's in-memory job map starts empty on every restart; the
	// database remains the source of truth for which products should be
	// watched, so every active, unpaused product is rescheduled here.
	products, err := repos.Product.ListActiveUnpaused(ctx)
	if err != nil {
		logger.Error("failed to load products for scheduling", "error", err)
		os.Exit(1)
	}
	for _, p := range products {
		if err := services.Scheduler.Schedule(p); err != nil {
			logger.Warn("failed to schedule product", "product_id", p.ID, "error", err)
		}
	}
	logger.Info("rescheduled products", "count", len(products))

	if cfg.Cleanup.Enabled {
		screenshotRetention := time.Duration(cfg.Screenshot.RetentionDays) * 24 * time.Hour
		go services.Cleanup.RunScheduled(ctx, cfg.Cleanup.HistoryRetention, cfg.Cleanup.NotificationRetention, screenshotRetention, cfg.Cleanup.Interval)
		logger.Info("cleanup service started",
			"interval", cfg.Cleanup.Interval.String(),
			"history_retention", cfg.Cleanup.HistoryRetention.String(),
			"notification_retention", cfg.Cleanup.NotificationRetention.String(),
			"screenshot_retention", screenshotRetention.String(),
		)
	}

	idle := shutdown.NewIdleMonitor(shutdown.IdleMonitorConfig{
		Timeout:      cfg.IdleTimeout,
		Logger:       logger,
		ExcludePaths: []string{"/healthz", "/readyz"},
		BackgroundWorkCheck: func() bool {
			return services.Scheduler.Stats().Running > 0
		},
	})
	idle.Start()
	defer idle.Stop()

	router := httpapi.NewRouter(db, services.Scheduler, idle.Middleware)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-sigChan:
			logger.Info("shutdown signal received")
		case <-idle.ShutdownChan():
			logger.Info("shutting down after idle timeout")
		}

		cancel()
		services.Scheduler.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
