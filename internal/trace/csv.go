// Package trace records dispatcher events as CSV.
package trace

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"rtsched/internal/sched"
)

var header = []string{"timestamp", "run_id", "at_us", "event", "task", "delta_us", "lateness_us"}

// Recorder writes one CSV row per event.
type Recorder struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// Create opens path for CSV logging of events.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace %s: %w", path, err)
	}
	r, err := NewRecorder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewRecorder writes the header to w and returns a recorder over it.
func NewRecorder(w io.Writer) (*Recorder, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &Recorder{w: cw}, nil
}

// Handle implements sched.Sink.
func (r *Recorder) Handle(_ context.Context, ev sched.Event) error {
	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		ev.RunID,
		strconv.FormatUint(ev.At, 10),
		ev.Kind.String(),
		ev.Task,
		strconv.FormatUint(ev.Delta, 10),
		strconv.FormatUint(ev.Lateness, 10),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Write(rec); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the underlying file, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	if r.closer != nil {
		return r.closer.Close()
	}
	return r.w.Error()
}
