package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mef-lab/coagula/internal/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a pipeline configuration file",
		Long: `Compile a CUE configuration file and check every field against the
pipeline's admissible ranges without opening any backend.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

// validationReport is the JSON payload of a validate run.
type validationReport struct {
	Valid  bool          `json:"valid"`
	Config config.Config `json:"config,omitempty"`
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.LoadFile(path)
	if err != nil {
		formatter.Error("E_CONFIG", err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid configuration", err)
	}

	if opts.Format == "json" {
		return formatter.Success(validationReport{Valid: true, Config: cfg})
	}
	return formatter.Success(fmt.Sprintf("%s is valid (backend %s, lambda %g, epsilon %g)",
		path, cfg.Ledger.Backend, cfg.Engine.Lambda, cfg.Engine.Epsilon))
}
