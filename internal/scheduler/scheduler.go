// Package scheduler runs report configurations on their schedules.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/altafino/consultation-report/internal/types"
)

// JobFunc runs one scheduled report for cfg.
type JobFunc func(cfg *types.Config)

var units = map[string]func(*gocron.Scheduler) *gocron.Scheduler{
	"minute": (*gocron.Scheduler).Minutes,
	"hour":   (*gocron.Scheduler).Hours,
	"day":    (*gocron.Scheduler).Days,
	"week":   (*gocron.Scheduler).Weeks,
	"month":  func(s *gocron.Scheduler) *gocron.Scheduler { return s.Months(1) },
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	run       JobFunc
	jobs      map[string]*gocron.Job
	mu        sync.RWMutex
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *slog.Logger, run JobFunc) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		run:       run,
		jobs:      make(map[string]*gocron.Job),
		now:       time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// UpdateJob replaces the job of cfg. Jobs run in singleton mode, so a run
// that is still going when the next one is due delays it instead of
// overlapping.
func (s *Scheduler) UpdateJob(cfg *types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := cfg.Meta.ID
	s.removeLocked(id)

	if !cfg.Meta.Enabled || !cfg.Scheduling.Enabled {
		s.logger.Info("scheduling disabled for configuration", "id", id)
		return nil
	}

	var stopAt time.Time
	if cfg.Scheduling.StopAt != "" {
		t, err := time.Parse(time.RFC3339, cfg.Scheduling.StopAt)
		if err != nil {
			return fmt.Errorf("invalid stop time: %w", err)
		}
		if t.Before(s.now().UTC()) {
			s.logger.Warn("skipping job schedule - stop time is in the past",
				"id", id,
				"name", cfg.Meta.Name,
				"stop_at", cfg.Scheduling.StopAt,
			)
			return nil
		}
		stopAt = t
	}

	var startAt time.Time
	if cfg.Scheduling.StartAt != "" {
		t, err := time.Parse(time.RFC3339, cfg.Scheduling.StartAt)
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
		startAt = t
	}

	// An unfinished gocron chain stays registered, so everything is
	// validated before Every.
	unit, ok := units[cfg.Scheduling.FrequencyEvery]
	if !ok {
		return fmt.Errorf("invalid frequency: %s", cfg.Scheduling.FrequencyEvery)
	}
	if cfg.Scheduling.FrequencyAmount <= 0 {
		return fmt.Errorf("invalid frequency amount: %d", cfg.Scheduling.FrequencyAmount)
	}

	job := s.scheduler.Every(cfg.Scheduling.FrequencyAmount)
	switch {
	case !startAt.IsZero():
		job = job.StartAt(startAt)
	case !cfg.Scheduling.StartNow:
		job = job.WaitForSchedule()
	}

	scheduledJob, err := unit(job).SingletonMode().Tag(id).Do(s.jobFunc(cfg, stopAt))
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	s.jobs[id] = scheduledJob

	s.logger.Info("scheduled job updated",
		"id", id,
		"frequency", fmt.Sprintf("every %d %s", cfg.Scheduling.FrequencyAmount, cfg.Scheduling.FrequencyEvery),
		"start_now", cfg.Scheduling.StartNow,
		"start_at", cfg.Scheduling.StartAt,
		"stop_at", cfg.Scheduling.StopAt,
		"window_days", cfg.Scheduling.WindowDays,
	)

	return nil
}

func (s *Scheduler) jobFunc(cfg *types.Config, stopAt time.Time) func() {
	return func() {
		now := s.now().UTC()
		if !stopAt.IsZero() && now.After(stopAt) {
			s.logger.Info("stop time reached, removing job", "config_id", cfg.Meta.ID)
			go s.RemoveJob(cfg.Meta.ID)
			return
		}

		s.logger.Info("executing scheduled job",
			"config_id", cfg.Meta.ID,
			"time", now,
		)
		s.run(cfg)
	}
}

// RemoveJob removes a job for a given configuration ID
func (s *Scheduler) RemoveJob(configID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(configID)
}

func (s *Scheduler) removeLocked(configID string) {
	if job, exists := s.jobs[configID]; exists {
		s.scheduler.RemoveByReference(job)
		delete(s.jobs, configID)
		s.logger.Info("removed scheduled job", "id", configID)
	}
}

// Sync schedules configs and removes the jobs of configurations that are
// no longer present.
func (s *Scheduler) Sync(configs []*types.Config) error {
	present := make(map[string]bool, len(configs))
	var firstErr error
	for _, cfg := range configs {
		present[cfg.Meta.ID] = true
		if err := s.UpdateJob(cfg); err != nil {
			s.logger.Error("failed to update scheduler", "id", cfg.Meta.ID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("config %s: %w", cfg.Meta.ID, err)
			}
		}
	}

	for _, id := range s.JobIDs() {
		if !present[id] {
			s.RemoveJob(id)
		}
	}
	return firstErr
}

// JobIDs returns the IDs of the scheduled configurations.
func (s *Scheduler) JobIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

// NextRun returns when the job of configID runs next.
func (s *Scheduler) NextRun(configID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[configID]
	if !ok {
		return time.Time{}, false
	}
	return job.NextRun(), true
}

// Window returns the date range a scheduled run at now covers: the last
// windowDays calendar days including today.
func Window(now time.Time, windowDays int) (start, end time.Time) {
	if windowDays <= 0 {
		windowDays = 1
	}
	y, m, d := now.Date()
	end = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	start = end.AddDate(0, 0, -(windowDays - 1))
	return start, end
}
