package sched

import (
	"context"
	"fmt"
)

// Work is the body a task executes once per release.
// It must return within bounded time; nothing preempts it.
type Work interface {
	Run(ctx context.Context)
}

// WorkFunc adapts a plain function to Work.
type WorkFunc func(ctx context.Context)

// Run calls f(ctx).
func (f WorkFunc) Run(ctx context.Context) { f(ctx) }

// Task is the control block of one periodic workload.
type Task struct {
	Name        string // stable identifier
	Period      uint64 // µs between releases, > 0
	NextRelease uint64 // task is ready once now >= NextRelease
	LastRun     uint64 // valid only when hasRun is set
	Stats       Stats
	Work        Work

	hasRun bool
}

// NewTask creates a task that is released at now with zeroed statistics.
func NewTask(name string, period uint64, now uint64, work Work) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: task name is empty", ErrInvalidConfiguration)
	}
	if period == 0 {
		return nil, fmt.Errorf("task %q: %w", name, ErrInvalidPeriod)
	}
	if work == nil {
		work = WorkFunc(func(context.Context) {})
	}

	return &Task{
		Name:        name,
		Period:      period,
		NextRelease: now,
		Stats:       NewStats(),
		Work:        work,
	}, nil
}

// Ready reports whether the task may run at now.
func (t *Task) Ready(now uint64) bool { return now >= t.NextRelease }

// HasRun reports whether the task ran at least once.
func (t *Task) HasRun() bool { return t.hasRun }

// Outcome describes the bookkeeping of a single run.
type Outcome struct {
	First    bool   // no previous run, so no delta was recorded
	Delta    uint64 // now - previous LastRun
	Missed   bool
	Lateness uint64 // Delta - Period when Missed
}

// markRun records a run at now: statistics, deadline bookkeeping,
// LastRun and the next release. It does not invoke Work.
func (t *Task) markRun(now uint64) Outcome {
	var out Outcome
	if !t.hasRun {
		out.First = true
	} else {
		out.Delta = now - t.LastRun
		t.Stats.Record(out.Delta)
		if out.Delta > t.Period {
			out.Missed = true
			out.Lateness = out.Delta - t.Period
			t.Stats.RecordMiss(out.Lateness)
		}
	}

	t.hasRun = true
	t.LastRun = now
	// anchored to the actual run time: a late run never catches up
	t.NextRelease = now + t.Period
	return out
}
