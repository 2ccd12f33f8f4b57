// internal/sched/dispatcher.go

package sched

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultReportEvery is the number of recorded runs between summaries.
	DefaultReportEvery = 10
	// DefaultMinSleep is the idle yield used when Options leaves it unset.
	DefaultMinSleep = time.Millisecond
)

// Options configures a Dispatcher. Zero values get defaults, except Policy.
type Options struct {
	Policy      Policy
	Clock       Clock
	Sleeper     Sleeper       // defaults to Clock when it can sleep
	MinSleep    time.Duration // idle yield, must stay below the smallest period
	ReportEvery uint64
	Logger      *slog.Logger
	Sinks       []Sink

	// SummarySchedule, when set, emits a StatusReport for every task each
	// time the wall-equivalent clock passes the schedule's next fire time.
	SummarySchedule cron.Schedule
	Epoch           time.Time // wall time of clock reading 0
	RunID           string
}

// Dispatcher is the cooperative control loop. It exclusively owns its
// TaskSet; nothing else mutates the tasks while it runs.
type Dispatcher struct {
	set         *TaskSet
	policy      Policy
	clock       Clock
	sleeper     Sleeper
	minSleep    time.Duration
	reportEvery uint64
	logger      *slog.Logger
	sinks       []Sink
	runID       string
	epoch       time.Time

	cursor int  // round-robin search start
	idle   bool // last Step found nothing ready

	schedule   cron.Schedule
	nextReport uint64
}

// New creates a Dispatcher over set.
func New(set *TaskSet, opts Options) (*Dispatcher, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrEmptyTaskSet
	}
	if opts.Policy == nil {
		return nil, fmt.Errorf("%w: no policy", ErrUnknownPolicy)
	}

	clock := opts.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		if s, ok := clock.(Sleeper); ok {
			sleeper = s
		} else {
			sleeper = NewSystemClock()
		}
	}

	minSleep := opts.MinSleep
	if minSleep <= 0 {
		minSleep = DefaultMinSleep
	}
	// clock units are whole microseconds; a shorter yield would not move a VirtualClock
	if minSleep < time.Microsecond {
		return nil, fmt.Errorf("%w: min sleep %s is below the clock resolution of 1µs",
			ErrInvalidConfiguration, minSleep)
	}
	if Micros(minSleep) >= set.MinPeriod() {
		return nil, fmt.Errorf("%w: min sleep %s is not below the smallest period %s",
			ErrInvalidConfiguration, minSleep, Duration(set.MinPeriod()))
	}

	reportEvery := opts.ReportEvery
	if reportEvery == 0 {
		reportEvery = DefaultReportEvery
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = time.Now().Add(-Duration(clock.Now()))
	}

	d := &Dispatcher{
		set:         set,
		policy:      opts.Policy,
		clock:       clock,
		sleeper:     sleeper,
		minSleep:    minSleep,
		reportEvery: reportEvery,
		logger:      logger.With("component", "dispatcher", "run_id", runID),
		sinks:       append([]Sink{NewLogSink(logger)}, opts.Sinks...),
		runID:       runID,
		epoch:       epoch,
		schedule:    opts.SummarySchedule,
	}
	if d.schedule != nil {
		d.nextReport = d.nextFire(clock.Now())
	}
	return d, nil
}

// Run loops until ctx is cancelled, yielding for MinSleep whenever no
// task is ready. A work body that never returns stalls the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.RunUntil(ctx, math.MaxUint64)
}

// RunUntil is Run bounded by a clock reading: it returns nil once the
// clock reaches deadline.
func (d *Dispatcher) RunUntil(ctx context.Context, deadline uint64) error {
	d.logger.Info("dispatcher started",
		"policy", d.policy.Kind().String(),
		"tasks", d.set.Len(),
		"min_sleep", d.minSleep,
		"report_every", d.reportEvery,
	)

	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("dispatcher stopping", "reason", err)
			return err
		}
		if d.clock.Now() >= deadline {
			d.logger.Info("dispatcher stopping", "reason", "deadline reached")
			return nil
		}
		if _, ok := d.Step(ctx); ok {
			continue
		}
		if err := d.sleeper.Sleep(ctx, d.minSleep); err != nil {
			d.logger.Info("dispatcher stopping", "reason", err)
			return err
		}
	}
}

// Step performs one iteration without sleeping: read the clock, select,
// account and run. It returns the index of the task that ran.
func (d *Dispatcher) Step(ctx context.Context) (int, bool) {
	now := d.clock.Now()
	d.maybeReport(ctx, now)

	idx, ok := d.policy.Select(now, d.set, d.cursor)
	if !ok {
		if !d.idle {
			d.idle = true
			d.emit(ctx, Event{Kind: StatusIdle, At: now, Index: -1})
		}
		return 0, false
	}
	d.idle = false

	t := d.set.At(idx)
	out := t.markRun(now)

	d.emit(ctx, Event{Kind: StatusDispatch, At: now, Task: t.Name, Index: idx, Delta: out.Delta})
	if out.Missed {
		d.emit(ctx, Event{
			Kind:     StatusDeadlineMiss,
			At:       now,
			Task:     t.Name,
			Index:    idx,
			Delta:    out.Delta,
			Lateness: out.Lateness,
		})
	}

	t.Work.Run(ctx)

	if d.policy.Kind() == PolicyRoundRobin {
		d.cursor = (idx + 1) % d.set.Len()
	}

	if !out.First && t.Stats.Due(d.reportEvery) {
		sum := Summarize(t)
		d.emit(ctx, Event{Kind: StatusSummary, At: now, Task: t.Name, Index: idx, Summary: &sum})
	}
	return idx, true
}

// Cursor returns the current round-robin cursor.
func (d *Dispatcher) Cursor() int { return d.cursor }

// RunID identifies this dispatcher in emitted events.
func (d *Dispatcher) RunID() string { return d.runID }

// Policy returns the active policy.
func (d *Dispatcher) Policy() Policy { return d.policy }

// Summaries reports every task, in task order.
func (d *Dispatcher) Summaries() []Summary {
	out := make([]Summary, d.set.Len())
	for i := range out {
		out[i] = Summarize(d.set.At(i))
	}
	return out
}

// Report emits a StatusReport event for every task at the current time.
func (d *Dispatcher) Report(ctx context.Context) {
	d.report(ctx, d.clock.Now())
}

func (d *Dispatcher) report(ctx context.Context, now uint64) {
	for i := 0; i < d.set.Len(); i++ {
		t := d.set.At(i)
		sum := Summarize(t)
		d.emit(ctx, Event{Kind: StatusReport, At: now, Task: t.Name, Index: i, Summary: &sum})
	}
}

func (d *Dispatcher) maybeReport(ctx context.Context, now uint64) {
	if d.schedule == nil || now < d.nextReport {
		return
	}
	d.report(ctx, now)
	d.nextReport = d.nextFire(now)
}

// nextFire converts the schedule's next wall-clock fire time to clock units.
func (d *Dispatcher) nextFire(now uint64) uint64 {
	next := d.schedule.Next(d.wall(now))
	if next.IsZero() {
		// schedule never fires again
		d.schedule = nil
		return 0
	}
	at := Micros(next.Sub(d.epoch))
	if at <= now {
		at = now + 1
	}
	return at
}

func (d *Dispatcher) wall(at uint64) time.Time {
	return d.epoch.Add(Duration(at))
}

// emit fans ev out to every sink in registration order.
func (d *Dispatcher) emit(ctx context.Context, ev Event) {
	ev.RunID = d.runID
	ev.Time = d.wall(ev.At)
	for _, s := range d.sinks {
		if err := s.Handle(ctx, ev); err != nil {
			d.logger.Error("sink failed", "event", ev.Kind.String(), "task", ev.Task, "error", err)
		}
	}
}
