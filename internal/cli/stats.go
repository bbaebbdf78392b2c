package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show chain statistics for the configured ledger",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
	return cmd
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts)
	if err != nil {
		formatter.Error("E_CONFIG", err.Error(), nil)
		return err
	}

	led, backend, err := openLedger(cfg)
	if err != nil {
		formatter.Error("E_BACKEND", err.Error(), nil)
		return err
	}
	defer backend.Close()

	stats, err := led.GetChainStatistics()
	if err != nil {
		formatter.Error("E_BACKEND", err.Error(), nil)
		return WrapExitError(ExitCommandError, "chain statistics", err)
	}

	if opts.Format == "json" {
		return formatter.Success(stats)
	}

	out := fmt.Sprintf("blocks: %d\nstored bytes: %d", stats.TotalBlocks, stats.TotalSizeEstimate)
	if tail, ok := led.Tail(); ok {
		out += fmt.Sprintf("\ntail: %d (%s)", tail.Index, tail.Hash)
	}
	return formatter.Success(out)
}
