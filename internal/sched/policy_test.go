package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// releases is a bare ReleaseView for policy tests.
type releases []uint64

func (r releases) Len() int                 { return len(r) }
func (r releases) NextRelease(i int) uint64 { return r[i] }

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    PolicyKind
		wantErr bool
	}{
		{in: "rr", want: PolicyRoundRobin},
		{in: "Round-Robin", want: PolicyRoundRobin},
		{in: "edf", want: PolicyEDF},
		{in: " EDF ", want: PolicyEDF},
		{in: "", wantErr: true},
		{in: "fifo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPolicy(t *testing.T) {
	rr, err := NewPolicy(PolicyRoundRobin)
	require.NoError(t, err)
	assert.Equal(t, PolicyRoundRobin, rr.Kind())

	edf, err := NewPolicy(PolicyEDF)
	require.NoError(t, err)
	assert.Equal(t, PolicyEDF, edf.Kind())

	_, err = NewPolicy(PolicyKind(7))
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Equal(t, "unknown", PolicyKind(7).String())
}

func TestRoundRobin_CyclesInOrderFromCursor(t *testing.T) {
	view := releases{0, 0, 0, 0}
	var rr RoundRobin

	cursor := 2
	var order []int
	for i := 0; i < 2*view.Len(); i++ {
		idx, ok := rr.Select(0, view, cursor)
		require.True(t, ok)
		order = append(order, idx)
		cursor = (idx + 1) % view.Len()
	}
	assert.Equal(t, []int{2, 3, 0, 1, 2, 3, 0, 1}, order)
}

func TestRoundRobin_SkipsTasksNotReady(t *testing.T) {
	var rr RoundRobin
	view := releases{100, 500, 50}

	idx, ok := rr.Select(200, view, 1)
	require.True(t, ok)
	assert.Equal(t, 2, idx, "index 1 is not ready, wrap continues at 2")

	idx, ok = rr.Select(200, view, 3)
	require.True(t, ok)
	assert.Equal(t, 0, idx, "cursor is taken modulo the task count")
}

func TestRoundRobin_TwoTasksAlternate(t *testing.T) {
	var rr RoundRobin
	view := releases{0, 0}

	idx, ok := rr.Select(0, view, 0)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = rr.Select(0, view, (idx+1)%2)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestEDF_SelectsEarliestRelease(t *testing.T) {
	tests := []struct {
		name string
		now  uint64
		view releases
		want int
	}{
		{name: "distinct releases", now: 100, view: releases{50, 10, 30}, want: 1},
		{name: "not ready excluded", now: 40, view: releases{50, 200, 30}, want: 2},
		{name: "equal releases lowest index", now: 10, view: releases{10, 5, 5}, want: 1},
		{name: "all equal", now: 0, view: releases{0, 0, 0}, want: 0},
		{name: "release equal to now is ready", now: 70, view: releases{90, 70}, want: 1},
	}

	var edf EDF
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := edf.Select(tt.now, tt.view, 2)
			require.True(t, ok)
			assert.Equal(t, tt.want, idx)
		})
	}
}

func TestEDF_ThreeTaskStart(t *testing.T) {
	set, err := NewTaskSet(0,
		TaskSpec{Name: "A", Period: 300000},
		TaskSpec{Name: "B", Period: 500000},
		TaskSpec{Name: "C", Period: 700000},
	)
	require.NoError(t, err)

	idx, ok := (&EDF{}).Select(0, set, 0)
	require.True(t, ok)
	assert.Equal(t, "A", set.At(idx).Name)
}

func TestEDF_ReusedAcrossCalls(t *testing.T) {
	edf := &EDF{}

	idx, ok := edf.Select(100, releases{50, 10, 80}, 0)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	// index 1 is no longer ready; nothing from the previous call may linger
	idx, ok = edf.Select(100, releases{50, 200, 80}, 0)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = edf.Select(5, releases{50, 200, 80}, 0)
	assert.False(t, ok)
	assert.Equal(t, 0, edf.ready.Size())

	idx, ok = edf.Select(300, releases{90, 90}, 0)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestPolicies_NothingReady(t *testing.T) {
	view := releases{10, 20, 30}
	for _, p := range []Policy{RoundRobin{}, &EDF{}} {
		t.Run(p.Kind().String(), func(t *testing.T) {
			for i := 0; i < 3; i++ {
				_, ok := p.Select(5, view, i)
				assert.False(t, ok)
			}
			_, ok := p.Select(0, releases{}, 0)
			assert.False(t, ok)
		})
	}
}
