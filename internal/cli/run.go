package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rtsched/internal/job"
	"rtsched/internal/sched"
	"rtsched/internal/server"
)

func newRunCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch tasks on the system clock until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			clock := sched.NewSystemClock()
			st, err := buildStack(ctx, cfg, clock, job.Env{Out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer st.Close()

			if cfg.MetricsAddr != "" {
				srv := server.New(cfg.MetricsAddr, st.registry, logger)
				if err := srv.Start(); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						logger.Error("metrics server shutdown", "error", err)
					}
				}()
			}

			logger.Info("Starting scheduler demo", "policy", cfg.Policy, "tasks", len(cfg.Tasks), "run_id", st.dispatcher.RunID())
			err = st.dispatcher.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			st.dispatcher.Report(context.Background())
			printSummaries(cmd.OutOrStdout(), st.dispatcher.Summaries())
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address")
	return cmd
}
