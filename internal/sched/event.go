// internal/sched/event.go

package sched

import (
	"context"
	"log/slog"
	"time"
)

// StatusKind represents the type of dispatcher event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusDispatch
	StatusDeadlineMiss
	StatusSummary // periodic, every N recorded runs of one task
	StatusReport  // wall-clock schedule, one per task
)

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusDispatch:
		return "Dispatch"
	case StatusDeadlineMiss:
		return "DeadlineMiss"
	case StatusSummary:
		return "Summary"
	case StatusReport:
		return "Report"
	default:
		return "Unknown"
	}
}

// Event is emitted on key dispatcher actions.
type Event struct {
	RunID    string
	Time     time.Time // wall-equivalent of At
	At       uint64    // clock reading
	Kind     StatusKind
	Task     string
	Index    int
	Delta    uint64
	Lateness uint64
	Summary  *Summary // set for StatusSummary and StatusReport
}

// Sink consumes dispatcher events. Errors are logged by the dispatcher
// and never stop it.
type Sink interface {
	Handle(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "dispatcher")}
}

func (s *LogSink) Handle(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case StatusIdle:
		s.logger.DebugContext(ctx, "idle", "at_us", ev.At)
	case StatusDispatch:
		s.logger.DebugContext(ctx, "dispatch", "task", ev.Task, "at_us", ev.At, "delta_us", ev.Delta)
	case StatusDeadlineMiss:
		s.logger.WarnContext(ctx, "deadline missed",
			"task", ev.Task,
			"delta_us", ev.Delta,
			"lateness_us", ev.Lateness,
		)
	case StatusSummary, StatusReport:
		sum := ev.Summary
		if sum == nil {
			return nil
		}
		s.logger.InfoContext(ctx, "stats",
			"kind", ev.Kind.String(),
			"task", sum.Task,
			"runs", sum.Runs,
			"avg_us", sum.Avg,
			"min_us", sum.Min,
			"max_us", sum.Max,
			"misses", sum.Misses,
			"worst_lateness_us", sum.WorstLateness,
		)
	}
	return nil
}
