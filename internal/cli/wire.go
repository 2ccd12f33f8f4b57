package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rtsched/internal/job"
	"rtsched/internal/metrics"
	"rtsched/internal/publish"
	"rtsched/internal/sched"
	"rtsched/internal/store"
	"rtsched/internal/trace"
)

// summaryTTL bounds how long published summaries stay in Redis.
const summaryTTL = 24 * time.Hour

// stack is a dispatcher plus the sinks it owns.
type stack struct {
	dispatcher *sched.Dispatcher
	registry   *prometheus.Registry
	closers    []io.Closer
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
	}
}

// buildStack wires cfg into a dispatcher running on clock.
func buildStack(ctx context.Context, cfg sched.Config, clock sched.Clock, env job.Env) (*stack, error) {
	kind, err := cfg.PolicyKind()
	if err != nil {
		return nil, err
	}
	policy, err := sched.NewPolicy(kind)
	if err != nil {
		return nil, err
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}
	specs, err := job.Specs(cfg, env)
	if err != nil {
		return nil, err
	}
	set, err := sched.NewTaskSet(clock.Now(), specs...)
	if err != nil {
		return nil, err
	}

	st := &stack{registry: prometheus.NewRegistry()}
	sinks := []sched.Sink{metrics.NewRegistry(st.registry)}

	if cfg.CSVPath != "" {
		rec, err := trace.Create(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, rec)
		sinks = append(sinks, rec)
	}

	if cfg.SQLitePath != "" {
		db, err := store.NewSQLiteStore(cfg.SQLitePath, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, db)
		if err := db.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		sinks = append(sinks, db)
	}

	if cfg.RedisAddr != "" {
		pub, err := publish.NewRedisPublisher(ctx, cfg.RedisAddr, summaryTTL)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, pub)
		sinks = append(sinks, pub)
	}

	d, err := sched.New(set, sched.Options{
		Policy:          policy,
		Clock:           clock,
		MinSleep:        cfg.MinSleep(),
		ReportEvery:     cfg.ReportEvery,
		Logger:          logger,
		Sinks:           sinks,
		SummarySchedule: schedule,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	st.dispatcher = d
	return st, nil
}

// printSummaries writes one line per task.
func printSummaries(w io.Writer, sums []sched.Summary) {
	for _, s := range sums {
		fmt.Fprintf(w, "%-8s period=%dus runs=%d avg=%.1fus min=%dus max=%dus misses=%d worst_lateness=%dus\n",
			s.Task, s.Period, s.Runs, s.Avg, s.Min, s.Max, s.Misses, s.WorstLateness)
	}
}
