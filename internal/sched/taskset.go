package sched

import "fmt"

// TaskSpec describes a task before it is released.
type TaskSpec struct {
	Name   string
	Period uint64
	Work   Work
}

// TaskSet is the fixed, ordered collection of tasks owned by a Dispatcher.
// Tasks are neither added nor removed after construction.
type TaskSet struct {
	tasks []*Task
}

// ReleaseView is the read-only face of a TaskSet handed to policies.
type ReleaseView interface {
	Len() int
	NextRelease(i int) uint64
}

// NewTaskSet creates every task from specs, all released at now.
func NewTaskSet(now uint64, specs ...TaskSpec) (*TaskSet, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyTaskSet
	}

	seen := make(map[string]struct{}, len(specs))
	tasks := make([]*Task, 0, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("task %q: %w", spec.Name, ErrDuplicateTask)
		}
		seen[spec.Name] = struct{}{}

		t, err := NewTask(spec.Name, spec.Period, now, spec.Work)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return &TaskSet{tasks: tasks}, nil
}

// Len returns the number of tasks.
func (s *TaskSet) Len() int { return len(s.tasks) }

// NextRelease returns the release time of task i.
func (s *TaskSet) NextRelease(i int) uint64 { return s.tasks[i].NextRelease }

// At returns task i.
func (s *TaskSet) At(i int) *Task { return s.tasks[i] }

// MinPeriod returns the smallest period in the set.
func (s *TaskSet) MinPeriod() uint64 {
	lo := s.tasks[0].Period
	for _, t := range s.tasks[1:] {
		if t.Period < lo {
			lo = t.Period
		}
	}
	return lo
}

// Snapshot copies every task control block. Work is shared, not copied.
func (s *TaskSet) Snapshot() []Task {
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = *t
	}
	return out
}
