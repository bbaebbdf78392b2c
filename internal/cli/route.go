package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mef-lab/coagula/internal/route"
)

// NewRouteCommand creates the route command.
func NewRouteCommand(rootOpts *RootOptions) *cobra.Command {
	var betti, lambdaGap, persistence float64

	cmd := &cobra.Command{
		Use:   "route <seed>",
		Short: "Derive the operator route for a seed and mesh metrics",
		Long: `Derive the deterministic operator route for the given seed.

The route is a permutation of the seven slots (DK, SW, PI, WT, RES1,
ADAPTER, RES2) selected from the seed and the weighted mesh score.
Identical inputs always yield the identical route.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(rootOpts, cmd, args[0], metricsFromFlags(cmd, betti, lambdaGap, persistence))
		},
	}

	cmd.Flags().Float64Var(&betti, "betti", 0, "betti number metric")
	cmd.Flags().Float64Var(&lambdaGap, "lambda-gap", 0, "spectral gap metric")
	cmd.Flags().Float64Var(&persistence, "persistence", 0, "persistence metric")

	return cmd
}

func runRoute(opts *RootOptions, cmd *cobra.Command, seed string, metrics route.MeshMetrics) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	spec, err := route.SelectRoute(seed, metrics)
	if err != nil {
		formatter.Error("E_ROUTE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "select route", err)
	}

	if opts.Format == "json" {
		return formatter.Success(spec)
	}

	slots := make([]string, len(spec.Slots))
	for i, s := range spec.Slots {
		slots[i] = string(s)
	}
	return formatter.Success(fmt.Sprintf("route %s\n  sigma: %v\n  slots: %s\n  mesh score: %.6f",
		spec.RouteID, spec.Sigma, strings.Join(slots, " -> "), spec.MeshScore))
}
