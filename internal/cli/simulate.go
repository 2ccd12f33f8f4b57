package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rtsched/internal/job"
	"rtsched/internal/sched"
)

func newSimulateCmd() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Dispatch tasks on a virtual clock for a fixed duration",
		Long:  "simulate runs the dispatcher against a virtual clock. Idle sleeps and work cost_us advance time instantly, so results are deterministic.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				return fmt.Errorf("%w: duration must be positive", sched.ErrInvalidConfiguration)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			clock := sched.NewVirtualClock(0)
			st, err := buildStack(ctx, cfg, clock, job.Env{Out: cmd.OutOrStdout(), Virtual: clock})
			if err != nil {
				return err
			}
			defer st.Close()

			logger.Info("Starting scheduler demo", "policy", cfg.Policy, "tasks", len(cfg.Tasks), "virtual_duration", duration)
			if err := st.dispatcher.RunUntil(ctx, sched.Micros(duration)); err != nil {
				return err
			}

			st.dispatcher.Report(ctx)
			printSummaries(cmd.OutOrStdout(), st.dispatcher.Summaries())
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "Virtual time to simulate")
	return cmd
}
