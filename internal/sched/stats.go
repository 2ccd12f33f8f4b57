package sched

import "math"

// Stats holds running figures over the inter-run deltas of a task.
// The first run of a task has no delta and is not counted.
type Stats struct {
	Runs          uint64 // number of recorded deltas
	MinDelta      uint64
	MaxDelta      uint64
	SumDelta      uint64
	Misses        uint64 // runs where delta > period
	WorstLateness uint64 // max(delta - period) over misses
}

// NewStats returns zeroed statistics with MinDelta primed to the
// largest value so the first delta always replaces it.
func NewStats() Stats {
	return Stats{MinDelta: math.MaxUint64}
}

// Record adds one observed delta.
func (s *Stats) Record(delta uint64) {
	s.Runs++
	s.SumDelta += delta
	if delta < s.MinDelta {
		s.MinDelta = delta
	}
	if delta > s.MaxDelta {
		s.MaxDelta = delta
	}
}

// RecordMiss counts a deadline miss with the given lateness.
func (s *Stats) RecordMiss(lateness uint64) {
	s.Misses++
	if lateness > s.WorstLateness {
		s.WorstLateness = lateness
	}
}

// Average is computed on demand from the sum; 0 without samples.
func (s Stats) Average() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.SumDelta) / float64(s.Runs)
}

// Due reports whether a summary is owed for a reporting interval.
func (s Stats) Due(every uint64) bool {
	return every > 0 && s.Runs > 0 && s.Runs%every == 0
}

// Summary is a point-in-time report of one task's statistics.
type Summary struct {
	Task          string  `json:"task"`
	Period        uint64  `json:"period_us"`
	Runs          uint64  `json:"runs"`
	Avg           float64 `json:"avg_us"`
	Min           uint64  `json:"min_us"`
	Max           uint64  `json:"max_us"`
	Misses        uint64  `json:"misses"`
	WorstLateness uint64  `json:"worst_lateness_us"`
}

// Summarize builds a Summary for t. Min is reported as 0 until a delta exists.
func Summarize(t *Task) Summary {
	s := t.Stats
	lo := s.MinDelta
	if s.Runs == 0 {
		lo = 0
	}
	return Summary{
		Task:          t.Name,
		Period:        t.Period,
		Runs:          s.Runs,
		Avg:           s.Average(),
		Min:           lo,
		Max:           s.MaxDelta,
		Misses:        s.Misses,
		WorstLateness: s.WorstLateness,
	}
}
