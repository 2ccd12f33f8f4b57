package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"rtsched/internal/logging"
	"rtsched/internal/sched"
)

var (
	flagConfig    string
	flagPolicy    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    sched.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the rtsched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rtsched",
		Short: "rtsched: cooperative periodic task scheduler (RR / EDF)",
		Long:  "rtsched dispatches a fixed set of periodic tasks under round-robin or earliest-deadline-first and reports deadline misses and timing statistics.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := sched.Read(flagConfig)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("policy") {
				loaded.Policy = flagPolicy
			}
			if flags.Changed("log-level") {
				loaded.LogLevel = flagLogLevel
			}
			if flags.Changed("log-format") {
				loaded.LogFormat = flagLogFormat
			}
			if flagDebug {
				loaded.LogLevel = "debug"
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			l, err := logging.New(cmd.ErrOrStderr(), loaded.LogLevel, loaded.LogFormat)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg, logger = loaded, l
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file (defaults to the built-in three-task set)")
	root.PersistentFlags().StringVar(&flagPolicy, "policy", "edf", "Scheduling policy (rr, edf)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newSimulateCmd(),
		newValidateCmd(),
	)

	return root
}
