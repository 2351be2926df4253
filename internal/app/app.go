// Package app wires configuration, scheduling and report runs together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/altafino/consultation-report/internal/config"
	"github.com/altafino/consultation-report/internal/scheduler"
	"github.com/altafino/consultation-report/internal/types"
)

// App represents the main application
type App struct {
	logger    *slog.Logger
	store     *config.Store
	scheduler *scheduler.Scheduler
	configID  string
	watcher   *config.Watcher
	wg        sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// New creates a new application instance. An empty configID schedules
// every enabled configuration.
func New(logger *slog.Logger, configDir string, configID string) (*App, error) {
	store, err := config.Load(configDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load configs: %w", err)
	}

	if configID != "" {
		if _, err := store.Get(configID); err != nil {
			return nil, fmt.Errorf("failed to get config %s: %w", configID, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		logger:   logger,
		store:    store,
		configID: configID,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
	app.scheduler = scheduler.NewScheduler(logger, app.runScheduled)

	return app, nil
}

// Start starts all application services
func (a *App) Start() error {
	watcher, err := config.StartWatcher(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	a.watcher = watcher

	a.scheduler.Start()

	if err := a.scheduler.Sync(a.configs()); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.watchConfigs()

	return nil
}

// Stop gracefully stops all application services. Running reports are
// cancelled.
func (a *App) Stop() {
	a.cancel()
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop config watcher", "error", err)
		}
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.wg.Wait()
}

func (a *App) configs() []*types.Config {
	if a.configID != "" {
		cfg, err := a.store.Get(a.configID)
		if err != nil {
			a.logger.Error("failed to get config", "id", a.configID, "error", err)
			return nil
		}
		return []*types.Config{cfg}
	}
	return a.store.Enabled()
}

func (a *App) watchConfigs() {
	defer a.wg.Done()

	for range a.watcher.ReloadChan() {
		a.logger.Info("reloading services due to configuration change")
		if err := a.scheduler.Sync(a.configs()); err != nil {
			a.logger.Error("failed to update services", "error", err)
		}
	}
}

// runScheduled reports the configured window ending today.
func (a *App) runScheduled(cfg *types.Config) {
	now := a.now()
	if tz := cfg.Report.TimeWindow.Timezone; tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			now = now.In(loc)
		}
	}
	start, end := scheduler.Window(now, cfg.Scheduling.WindowDays)

	summary, err := RunConfig(a.ctx, cfg, start, end, Overrides{}, a.logger)
	if err != nil {
		a.logger.Error("scheduled report failed",
			"config_id", cfg.Meta.ID,
			"run_id", summary.RunID,
			"error", err,
		)
		return
	}

	if summary.Reason != "" {
		a.logger.Warn("scheduled report produced no records",
			"config_id", cfg.Meta.ID,
			"run_id", summary.RunID,
			"reason", summary.Reason,
			"detail", summary.Detail,
			"guidance", summary.Reason.Guidance(),
		)
		return
	}

	a.logger.Info("scheduled report stored",
		"config_id", cfg.Meta.ID,
		"run_id", summary.RunID,
		"records", summary.Records,
		"path", summary.ReportPath,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
}
