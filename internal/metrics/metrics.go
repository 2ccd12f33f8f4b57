// Package metrics provides Prometheus instrumentation for the dispatcher.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rtsched/internal/sched"
)

// Registry holds all metric instances of one dispatcher.
type Registry struct {
	Runs          *prometheus.CounterVec
	DeadlineMiss  *prometheus.CounterVec
	Lateness      *prometheus.HistogramVec
	Delta         *prometheus.HistogramVec
	WorstLateness *prometheus.GaugeVec
	Idle          prometheus.Counter
	Summaries     *prometheus.CounterVec
}

// delta and lateness buckets in seconds, periods are typically 1ms..10s
var timingBuckets = []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewRegistry creates the dispatcher metrics on the given registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rtsched",
				Subsystem: "dispatcher",
				Name:      "runs_total",
				Help:      "Total number of task runs",
			},
			[]string{"task"},
		),

		DeadlineMiss: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rtsched",
				Subsystem: "dispatcher",
				Name:      "deadline_misses_total",
				Help:      "Total number of runs whose inter-run delta exceeded the period",
			},
			[]string{"task"},
		),

		Lateness: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rtsched",
				Subsystem: "dispatcher",
				Name:      "lateness_seconds",
				Help:      "Amount by which a missed run exceeded its period",
				Buckets:   timingBuckets,
			},
			[]string{"task"},
		),

		Delta: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rtsched",
				Subsystem: "dispatcher",
				Name:      "delta_seconds",
				Help:      "Observed time between consecutive runs of a task",
				Buckets:   timingBuckets,
			},
			[]string{"task"},
		),

		WorstLateness: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rtsched",
				Subsystem: "dispatcher",
				Name:      "worst_lateness_seconds",
				Help:      "Largest lateness as of the latest summary",
			},
			[]string{"task"},
		),

		Idle: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rtsched",
				Subsystem: "dispatcher",
				Name:      "idle_total",
				Help:      "Number of transitions into the idle state",
			},
		),

		Summaries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rtsched",
				Subsystem: "dispatcher",
				Name:      "summaries_total",
				Help:      "Number of statistics summaries emitted",
			},
			[]string{"kind"},
		),
	}
}

// Handle records ev. It implements sched.Sink.
func (r *Registry) Handle(_ context.Context, ev sched.Event) error {
	switch ev.Kind {
	case sched.StatusIdle:
		r.Idle.Inc()
	case sched.StatusDispatch:
		r.Runs.WithLabelValues(ev.Task).Inc()
		if ev.Delta > 0 {
			r.Delta.WithLabelValues(ev.Task).Observe(sched.Duration(ev.Delta).Seconds())
		}
	case sched.StatusDeadlineMiss:
		r.DeadlineMiss.WithLabelValues(ev.Task).Inc()
		r.Lateness.WithLabelValues(ev.Task).Observe(sched.Duration(ev.Lateness).Seconds())
	case sched.StatusSummary, sched.StatusReport:
		r.Summaries.WithLabelValues(ev.Kind.String()).Inc()
		if ev.Summary != nil {
			r.WorstLateness.WithLabelValues(ev.Task).Set(sched.Duration(ev.Summary.WorstLateness).Seconds())
		}
	}
	return nil
}
