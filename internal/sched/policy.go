// internal/sched/policy.go

package sched

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// Policy picks the next task to run. It only reads release times;
// every mutation belongs to the Dispatcher.
type Policy interface {
	Kind() PolicyKind
	// Select returns the index of the task to run at now, or false if
	// no task is ready. cursor is the Dispatcher-owned round-robin position.
	Select(now uint64, view ReleaseView, cursor int) (int, bool)
}

// PolicyKind enumerates the available policies.
type PolicyKind int

const (
	PolicyRoundRobin PolicyKind = iota
	PolicyEDF
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyRoundRobin:
		return "rr"
	case PolicyEDF:
		return "edf"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration value to a PolicyKind.
// Unrecognized values are rejected instead of falling back to a default.
func ParsePolicy(s string) (PolicyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rr", "round-robin", "roundrobin":
		return PolicyRoundRobin, nil
	case "edf", "earliest-deadline-first":
		return PolicyEDF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// NewPolicy returns the policy implementation for k.
func NewPolicy(k PolicyKind) (Policy, error) {
	switch k {
	case PolicyRoundRobin:
		return RoundRobin{}, nil
	case PolicyEDF:
		return &EDF{}, nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownPolicy, int(k))
	}
}

// RoundRobin scans from the cursor, wrapping once, and returns the first
// ready task. Fairness is positional only.
type RoundRobin struct{}

func (RoundRobin) Kind() PolicyKind { return PolicyRoundRobin }

func (RoundRobin) Select(now uint64, view ReleaseView, cursor int) (int, bool) {
	n := view.Len()
	if n == 0 {
		return 0, false
	}
	start := ((cursor % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if now >= view.NextRelease(idx) {
			return idx, true
		}
	}
	return 0, false
}

// EDF returns the ready task with the earliest release time.
// Ready tasks are ordered by (release, index), so equal releases go to
// the lowest index. The ready tree is kept between calls and cleared on
// each one, so an EDF value must not be shared between dispatchers.
type EDF struct {
	ready *redblacktree.Tree
}

func (*EDF) Kind() PolicyKind { return PolicyEDF }

func (e *EDF) Select(now uint64, view ReleaseView, _ int) (int, bool) {
	if e.ready == nil {
		e.ready = redblacktree.NewWith(releaseOrder)
	}
	e.ready.Clear()
	for i := 0; i < view.Len(); i++ {
		if r := view.NextRelease(i); now >= r {
			e.ready.Put(releaseKey{release: r, index: i}, i)
		}
	}

	first := e.ready.Left()
	if first == nil {
		return 0, false
	}
	return first.Value.(int), true
}

// releaseKey is used as a key in the EDF ready tree.
type releaseKey struct {
	release uint64
	index   int
}

// releaseOrder orders keys by release time, then by task index.
func releaseOrder(a, b any) int {
	ka, kb := a.(releaseKey), b.(releaseKey)
	switch {
	case ka.release < kb.release:
		return -1
	case ka.release > kb.release:
		return 1
	case ka.index < kb.index:
		return -1
	case ka.index > kb.index:
		return 1
	default:
		return 0
	}
}
