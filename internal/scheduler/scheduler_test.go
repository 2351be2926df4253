package scheduler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/altafino/consultation-report/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scheduled(id, every string, amount int) *types.Config {
	cfg := &types.Config{}
	cfg.Meta.ID = id
	cfg.Meta.Enabled = true
	cfg.Scheduling.Enabled = true
	cfg.Scheduling.FrequencyEvery = every
	cfg.Scheduling.FrequencyAmount = amount
	return cfg
}

func TestUpdateJobFrequencies(t *testing.T) {
	tests := []struct {
		every   string
		wantErr bool
	}{
		{every: "minute"},
		{every: "hour"},
		{every: "day"},
		{every: "week"},
		{every: "month"},
		{every: "fortnight", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.every, func(t *testing.T) {
			s := NewScheduler(discardLogger(), func(*types.Config) {})
			err := s.UpdateJob(scheduled("kim", tt.every, 1))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := len(s.JobIDs()); got != map[bool]int{false: 1, true: 0}[tt.wantErr] {
				t.Errorf("jobs = %d", got)
			}
		})
	}
}

func TestUpdateJobSkips(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*types.Config)
	}{
		{name: "config disabled", modify: func(c *types.Config) { c.Meta.Enabled = false }},
		{name: "scheduling disabled", modify: func(c *types.Config) { c.Scheduling.Enabled = false }},
		{name: "stop time passed", modify: func(c *types.Config) { c.Scheduling.StopAt = "2020-01-01T00:00:00Z" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(discardLogger(), func(*types.Config) {})
			cfg := scheduled("kim", "hour", 1)
			if err := s.UpdateJob(cfg); err != nil {
				t.Fatalf("UpdateJob() error = %v", err)
			}

			tt.modify(cfg)
			if err := s.UpdateJob(cfg); err != nil {
				t.Fatalf("UpdateJob() error = %v", err)
			}
			if ids := s.JobIDs(); len(ids) != 0 {
				t.Errorf("jobs = %v, want none", ids)
			}
		})
	}
}

func TestUpdateJobInvalidTimes(t *testing.T) {
	s := NewScheduler(discardLogger(), func(*types.Config) {})

	cfg := scheduled("kim", "day", 1)
	cfg.Scheduling.StartAt = "tomorrow"
	if err := s.UpdateJob(cfg); err == nil {
		t.Error("UpdateJob() accepted an invalid start time")
	}

	cfg = scheduled("kim", "day", 1)
	cfg.Scheduling.StopAt = "never"
	if err := s.UpdateJob(cfg); err == nil {
		t.Error("UpdateJob() accepted an invalid stop time")
	}
}

func TestWaitsForSchedule(t *testing.T) {
	runs := make(chan string, 4)
	s := NewScheduler(discardLogger(), func(cfg *types.Config) { runs <- cfg.Meta.ID })
	s.Start()
	defer s.Stop()

	if err := s.UpdateJob(scheduled("later", "hour", 1)); err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}
	now := scheduled("now", "hour", 1)
	now.Scheduling.StartNow = true
	if err := s.UpdateJob(now); err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}

	select {
	case id := <-runs:
		if id != "now" {
			t.Fatalf("first run = %q, want %q", id, "now")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("start_now job did not run")
	}

	select {
	case id := <-runs:
		t.Fatalf("unexpected run of %q", id)
	case <-time.After(200 * time.Millisecond):
	}

	next, ok := s.NextRun("later")
	if !ok {
		t.Fatal("NextRun() found no job")
	}
	if until := time.Until(next); until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("next run in %v, want about an hour", until)
	}
}

func TestSyncRemovesMissing(t *testing.T) {
	s := NewScheduler(discardLogger(), func(*types.Config) {})
	if err := s.Sync([]*types.Config{scheduled("a", "day", 1), scheduled("b", "day", 1)}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	err := s.Sync([]*types.Config{scheduled("b", "day", 1), scheduled("c", "eon", 1)})
	if err == nil {
		t.Error("Sync() error = nil, want the invalid frequency of c")
	}

	ids := s.JobIDs()
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("jobs = %v, want [b]", ids)
	}
}

func TestWindow(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	now := time.Date(2025, 3, 10, 16, 30, 0, 0, kst)

	tests := []struct {
		days      int
		wantStart string
	}{
		{days: 0, wantStart: "2025-03-10"},
		{days: 1, wantStart: "2025-03-10"},
		{days: 7, wantStart: "2025-03-04"},
		{days: 14, wantStart: "2025-02-25"},
	}

	for _, tt := range tests {
		start, end := Window(now, tt.days)
		if got := start.Format(time.DateOnly); got != tt.wantStart {
			t.Errorf("Window(%d) start = %s, want %s", tt.days, got, tt.wantStart)
		}
		if got := end.Format(time.DateOnly); got != "2025-03-10" {
			t.Errorf("Window(%d) end = %s", tt.days, got)
		}
		if start.Location() != kst {
			t.Errorf("Window(%d) lost the location", tt.days)
		}
	}
}
