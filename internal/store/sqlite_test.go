package store

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtsched/internal/sched"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func TestHandle_PersistsSummaries(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sumA := sched.Summary{Task: "A", Period: 300000, Runs: 10, Avg: 300100.5, Min: 300000, Max: 301000, Misses: 2, WorstLateness: 1000}
	sumB := sched.Summary{Task: "B", Period: 500000, Runs: 10, Avg: 500000, Min: 500000, Max: 500000}

	require.NoError(t, st.Handle(ctx, sched.Event{RunID: "r1", Kind: sched.StatusSummary, At: 3000000, Time: now, Task: "A", Summary: &sumA}))
	require.NoError(t, st.Handle(ctx, sched.Event{RunID: "r1", Kind: sched.StatusReport, At: 5000000, Time: now, Task: "B", Summary: &sumB}))
	require.NoError(t, st.Handle(ctx, sched.Event{RunID: "r1", Kind: sched.StatusDispatch, At: 5000001, Task: "A"}))
	require.NoError(t, st.Handle(ctx, sched.Event{RunID: "r2", Kind: sched.StatusSummary, At: 1, Time: now, Task: "A", Summary: &sumA}))

	all, err := st.ListSummaries(ctx, "r1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Summary", all[0].Kind)
	assert.Equal(t, sumA, all[0].Summary)
	assert.Equal(t, uint64(3000000), all[0].At)
	assert.True(t, now.Equal(all[0].CreatedAt))
	assert.Equal(t, "Report", all[1].Kind)
	assert.Equal(t, sumB, all[1].Summary)

	onlyB, err := st.ListSummaries(ctx, "r1", "B")
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "B", onlyB[0].Summary.Task)
}

func TestListSummaries_UnknownRun(t *testing.T) {
	st := testStore(t)

	recs, err := st.ListSummaries(context.Background(), "missing", "")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestListSummaries_BadCreatedAt(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx, `INSERT INTO summaries
		(run_id, task, kind, at_us, period_us, runs, avg_us, min_us, max_us, misses, worst_lateness_us, created_at)
		VALUES ('r1', 'A', 'Summary', 10, 1000, 1, 0, 0, 0, 0, 0, 'yesterday')`)
	require.NoError(t, err)

	_, err = st.ListSummaries(ctx, "r1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")
}
