package models

import "time"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Bounds returns the instants the range covers: the calendar day of Start
// at midnight and the calendar day of End at 23:59:59, both in loc.
func (r DateRange) Bounds(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	sy, sm, sd := r.Start.Date()
	ey, em, ed := r.End.Date()
	return time.Date(sy, sm, sd, 0, 0, 0, 0, loc), time.Date(ey, em, ed, 23, 59, 59, 0, loc)
}

// RunSummary describes one finished report run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	ConfigID   string    `json:"config_id"`
	Reason     Reason    `json:"reason,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Messages   int       `json:"messages"`
	Pairs      int       `json:"pairs"`
	Records    int       `json:"records"`
	ReportPath string    `json:"report_path,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
