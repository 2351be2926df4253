// Package progress reports pipeline stage transitions to observers.
package progress

import (
	"log/slog"
	"sync"
)

type Stage string

const (
	StageConnect Stage = "connect"
	StageFetch   Stage = "fetch"
	StagePair    Stage = "pair"
	StageFilter  Stage = "filter"
	StageReport  Stage = "report"
)

type Kind string

const (
	KindStarted   Kind = "started"
	KindProgress  Kind = "progress"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
)

// Event describes one step of a run. Current and Total count messages,
// pairs or records depending on the stage; Total is 0 when unknown.
type Event struct {
	Stage   Stage
	Kind    Kind
	Current int
	Total   int
	Detail  string
	Err     error
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Report(Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Report(Event) {}

// Func adapts a function to Sink.
type Func func(Event)

func (f Func) Report(e Event) { f(e) }

// Multi fans events out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Report(e Event) {
	for _, s := range m {
		s.Report(e)
	}
}

// LogSink writes events to a logger: failures at warn, progress ticks at
// debug and the rest at info.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Report(e Event) {
	attrs := []any{"stage", e.Stage, "kind", e.Kind}
	if e.Total > 0 || e.Current > 0 {
		attrs = append(attrs, "current", e.Current, "total", e.Total)
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}

	switch e.Kind {
	case KindFailed:
		if e.Err != nil {
			attrs = append(attrs, "error", e.Err)
		}
		l.Logger.Warn("stage failed", attrs...)
	case KindProgress:
		l.Logger.Debug("stage progress", attrs...)
	default:
		l.Logger.Info("stage "+string(e.Kind), attrs...)
	}
}

// Summary counts what a run produced.
type Summary struct {
	Messages  int
	Pairs     int
	Kept      int
	Records   int
	Failures  int
	LastError error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"messages", s.Messages,
		"pairs", s.Pairs,
		"kept", s.Kept,
		"records", s.Records,
		"failures", s.Failures,
	}
	if s.LastError != nil {
		attrs = append(attrs, "last_error", s.LastError.Error())
	}
	return attrs
}

// Collector aggregates completed stages into a Summary.
type Collector struct {
	mu      sync.Mutex
	summary Summary
	events  []Event
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, e)

	switch e.Kind {
	case KindFailed:
		c.summary.Failures++
		if e.Err != nil {
			c.summary.LastError = e.Err
		}
	case KindCompleted:
		switch e.Stage {
		case StageFetch:
			c.summary.Messages = e.Current
		case StagePair:
			c.summary.Pairs = e.Current
		case StageFilter:
			c.summary.Kept = e.Current
		case StageReport:
			c.summary.Records = e.Current
		}
	}
}

// Snapshot returns the current summary.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Events returns a copy of every event received so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}
