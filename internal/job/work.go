package job

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"rtsched/internal/sched"
)

// Work kinds accepted in task configuration.
const (
	KindPrint = "print"
	KindSleep = "sleep"
	KindSpin  = "spin"
	KindNoop  = "noop"
)

// Env carries what work bodies need from the host.
type Env struct {
	Out io.Writer // print target

	// Virtual, when set, replaces real waiting with advancing this clock
	// by the configured cost.
	Virtual *sched.VirtualClock
}

// Build returns the work body described by spec.
func Build(spec sched.WorkSpec, env Env) (sched.Work, error) {
	cost := sched.Duration(spec.CostUS)

	var body sched.Work
	switch strings.ToLower(spec.Kind) {
	case KindPrint:
		if env.Out == nil {
			env.Out = io.Discard
		}
		body = Print(env.Out, spec.Message)
	case KindSleep:
		body = Sleep(cost)
	case KindSpin:
		body = Spin(cost)
	case KindNoop, "":
		body = sched.WorkFunc(func(context.Context) {})
	default:
		return nil, fmt.Errorf("%w: unknown work kind %q", sched.ErrInvalidConfiguration, spec.Kind)
	}

	if env.Virtual != nil {
		return Chain(keepOutput(body, spec.Kind), Cost(env.Virtual, cost)), nil
	}
	return body, nil
}

// keepOutput drops bodies that only burn real time; under a virtual
// clock their cost is modelled by Cost instead.
func keepOutput(body sched.Work, kind string) sched.Work {
	switch strings.ToLower(kind) {
	case KindSleep, KindSpin:
		return nil
	}
	return body
}

// Print writes "Running <msg>" on every run.
func Print(w io.Writer, msg string) sched.Work {
	line := "Running " + msg + "\n"
	return sched.WorkFunc(func(context.Context) {
		_, _ = io.WriteString(w, line)
	})
}

// Sleep returns a runnable that blocks for d, or less if ctx ends.
func Sleep(d time.Duration) sched.Work {
	return sched.WorkFunc(func(ctx context.Context) {
		if d <= 0 {
			return
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	})
}

// Spin busy-loops for d without yielding.
func Spin(d time.Duration) sched.Work {
	return sched.WorkFunc(func(context.Context) {
		deadline := time.Now().Add(d)
		for time.Now().Before(deadline) {
		}
	})
}

// Cost advances a virtual clock by d, standing in for execution time.
func Cost(clock *sched.VirtualClock, d time.Duration) sched.Work {
	return sched.WorkFunc(func(context.Context) {
		clock.Advance(d)
	})
}

// Chain runs each non-nil body in order.
func Chain(bodies ...sched.Work) sched.Work {
	return sched.WorkFunc(func(ctx context.Context) {
		for _, b := range bodies {
			if b != nil {
				b.Run(ctx)
			}
		}
	})
}

// Specs builds the task specs of cfg.
func Specs(cfg sched.Config, env Env) ([]sched.TaskSpec, error) {
	specs := make([]sched.TaskSpec, 0, len(cfg.Tasks))
	for _, t := range cfg.Tasks {
		w, err := Build(t.Work, env)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Name, err)
		}
		specs = append(specs, sched.TaskSpec{Name: t.Name, Period: t.PeriodUS, Work: w})
	}
	return specs, nil
}
