package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtsched/internal/job"
	"rtsched/internal/sched"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration and print the task set",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cfg.PolicyKind()
			if err != nil {
				return err
			}
			if _, err := job.Specs(cfg, job.Env{}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "policy: %s\n", kind)
			fmt.Fprintf(out, "min_sleep: %s\n", cfg.MinSleep())
			fmt.Fprintf(out, "report_every: %d\n", cfg.ReportEvery)
			if cfg.SummarySchedule != "" {
				fmt.Fprintf(out, "summary_schedule: %s\n", cfg.SummarySchedule)
			}
			for _, t := range cfg.Tasks {
				work := t.Work.Kind
				if work == "" {
					work = job.KindNoop
				}
				fmt.Fprintf(out, "task %s period=%s work=%s\n", t.Name, sched.Duration(t.PeriodUS), work)
			}
			return nil
		},
	}
}
