package job

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtsched/internal/sched"
)

func TestBuild_Print(t *testing.T) {
	var buf bytes.Buffer
	w, err := Build(sched.WorkSpec{Kind: "print", Message: "Task A"}, Env{Out: &buf})
	require.NoError(t, err)

	w.Run(context.Background())
	w.Run(context.Background())
	assert.Equal(t, "Running Task A\nRunning Task A\n", buf.String())
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := Build(sched.WorkSpec{Kind: "teleport"}, Env{})
	assert.ErrorIs(t, err, sched.ErrInvalidConfiguration)
}

func TestBuild_VirtualCost(t *testing.T) {
	clock := sched.NewVirtualClock(0)
	var buf bytes.Buffer

	tests := []struct {
		spec    sched.WorkSpec
		advance uint64
		output  string
	}{
		{spec: sched.WorkSpec{Kind: "print", Message: "B", CostUS: 2000}, advance: 2000, output: "Running B\n"},
		{spec: sched.WorkSpec{Kind: "sleep", CostUS: 5000}, advance: 5000},
		{spec: sched.WorkSpec{Kind: "spin", CostUS: 7000}, advance: 7000},
		{spec: sched.WorkSpec{Kind: "noop"}, advance: 0},
	}

	for _, tt := range tests {
		t.Run(tt.spec.Kind, func(t *testing.T) {
			buf.Reset()
			w, err := Build(tt.spec, Env{Out: &buf, Virtual: clock})
			require.NoError(t, err)

			before := clock.Now()
			start := time.Now()
			w.Run(context.Background())

			assert.Equal(t, tt.advance, clock.Now()-before)
			assert.Less(t, time.Since(start), time.Second, "virtual work never blocks")
			assert.Equal(t, tt.output, buf.String())
		})
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	Sleep(5 * time.Millisecond).Run(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start = time.Now()
	Sleep(time.Hour).Run(ctx)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSpin(t *testing.T) {
	start := time.Now()
	Spin(3 * time.Millisecond).Run(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 3*time.Millisecond)
}

func TestChain(t *testing.T) {
	var order []string
	a := sched.WorkFunc(func(context.Context) { order = append(order, "a") })
	b := sched.WorkFunc(func(context.Context) { order = append(order, "b") })

	Chain(a, nil, b).Run(context.Background())
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSpecs(t *testing.T) {
	specs, err := Specs(sched.DefaultConfig(), Env{})
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, "A", specs[0].Name)
	assert.Equal(t, uint64(300000), specs[0].Period)

	cfg := sched.DefaultConfig()
	cfg.Tasks[1].Work.Kind = "bogus"
	_, err = Specs(cfg, Env{})
	assert.ErrorIs(t, err, sched.ErrInvalidConfiguration)
}
