package sched

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	task, err := NewTask("A", 500, 42, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), task.NextRelease, "released immediately")
	assert.False(t, task.HasRun())
	assert.True(t, task.Ready(42))
	assert.False(t, task.Ready(41))
	assert.NotNil(t, task.Work)
	task.Work.Run(context.Background())

	_, err = NewTask("A", 0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = NewTask("", 10, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestMarkRun_FirstRunRecordsNoDelta(t *testing.T) {
	task, err := NewTask("A", 1000, 0, nil)
	require.NoError(t, err)

	out := task.markRun(5000)
	assert.True(t, out.First)
	assert.False(t, out.Missed)
	assert.Equal(t, uint64(0), task.Stats.Runs)
	assert.Equal(t, uint64(0), task.Stats.Misses)
	assert.Equal(t, uint64(5000), task.LastRun)
	assert.Equal(t, uint64(6000), task.NextRelease)
}

func TestMarkRun_MissIffDeltaExceedsPeriod(t *testing.T) {
	task, err := NewTask("A", 1000, 0, nil)
	require.NoError(t, err)

	task.markRun(0)

	out := task.markRun(1000)
	assert.False(t, out.Missed, "delta equal to the period is on time")

	out = task.markRun(2001)
	assert.True(t, out.Missed)
	assert.Equal(t, uint64(1), out.Lateness)

	out = task.markRun(3500)
	assert.True(t, out.Missed)
	assert.Equal(t, uint64(499), out.Lateness)

	assert.Equal(t, uint64(3), task.Stats.Runs)
	assert.Equal(t, uint64(2), task.Stats.Misses)
	assert.Equal(t, uint64(499), task.Stats.WorstLateness)
}

func TestMarkRun_NextReleaseAnchoredToRunTime(t *testing.T) {
	task, err := NewTask("A", 1000, 0, nil)
	require.NoError(t, err)

	task.markRun(0)
	task.markRun(2500)
	assert.Equal(t, uint64(3500), task.NextRelease, "a late run does not catch up")
}

func TestNewTaskSet(t *testing.T) {
	set, err := NewTaskSet(7,
		TaskSpec{Name: "A", Period: 300},
		TaskSpec{Name: "B", Period: 100},
		TaskSpec{Name: "C", Period: 200},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, uint64(100), set.MinPeriod())
	for i := 0; i < set.Len(); i++ {
		assert.Equal(t, uint64(7), set.NextRelease(i))
	}

	snap := set.Snapshot()
	snap[0].NextRelease = 99
	assert.Equal(t, uint64(7), set.At(0).NextRelease, "snapshot is a copy")
}

func TestNewTaskSet_Errors(t *testing.T) {
	_, err := NewTaskSet(0)
	assert.ErrorIs(t, err, ErrEmptyTaskSet)

	_, err = NewTaskSet(0, TaskSpec{Name: "A", Period: 1}, TaskSpec{Name: "A", Period: 2})
	assert.ErrorIs(t, err, ErrDuplicateTask)

	_, err = NewTaskSet(0, TaskSpec{Name: "A", Period: 0})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}
