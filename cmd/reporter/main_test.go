package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/altafino/consultation-report/internal/models"
	"github.com/altafino/consultation-report/internal/types"
)

func TestDateRange(t *testing.T) {
	cfg := &types.Config{}
	cfg.Report.TimeWindow.Timezone = "UTC"
	cfg.Scheduling.WindowDays = 7
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end string
		wantStart  string
		wantEnd    string
		wantErr    bool
	}{
		{name: "window", wantStart: "2025-03-04", wantEnd: "2025-03-10"},
		{name: "explicit", start: "2025-03-01", end: "2025-03-31", wantStart: "2025-03-01", wantEnd: "2025-03-31"},
		{name: "start only", start: "2025-03-08", wantStart: "2025-03-08", wantEnd: "2025-03-10"},
		{name: "reversed", start: "2025-03-31", end: "2025-03-01", wantErr: true},
		{name: "malformed", start: "03/01/2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := dateRange(cfg, tt.start, tt.end, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("dateRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := start.Format(time.DateOnly); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := end.Format(time.DateOnly); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		reason  models.Reason
		wantErr bool
		want    string
	}{
		{reason: models.ReasonNone, want: "report stored at /tmp/r.xlsx"},
		{reason: models.ReasonNoKeywordMatch, want: "No emails matching keyword criteria."},
		{reason: models.ReasonNoMessagesInRange, want: "No emails found in the specified date range."},
		{reason: models.ReasonAuthFailed, wantErr: true, want: "app password"},
		{reason: models.ReasonConnectionFailed, wantErr: true, want: "IMAP access"},
		{reason: models.ReasonUnexpectedFailure, wantErr: true, want: "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)

			s := models.RunSummary{RunID: "r1", Reason: tt.reason}
			if tt.reason == models.ReasonNone {
				s.ReportPath = "/tmp/r.xlsx"
			}

			err := printSummary(cmd, s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("printSummary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tt.want)
			}
		})
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"run"}, {"serve"}, {"configs"},
		{"oauth2", "generate"}, {"oauth2", "list"}, {"oauth2", "delete"},
		{"credential", "set"}, {"credential", "delete"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("command %v not registered", path)
		}
	}
}
