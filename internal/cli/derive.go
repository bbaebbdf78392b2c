package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/gate"
	"github.com/mef-lab/coagula/internal/pipeline"
	"github.com/mef-lab/coagula/internal/route"
)

// deriveFlags holds the per-invocation derivation inputs.
type deriveFlags struct {
	id          string
	vector      string
	betti       float64
	lambdaGap   float64
	persistence float64
	por         string
	phi         float64
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &deriveFlags{}

	cmd := &cobra.Command{
		Use:   "derive <seed>",
		Short: "Run one full derivation and commit on FIRE",
		Long: `Run one snapshot through the full pipeline: route selection, fixpoint
iteration, gate evaluation and - on FIRE - crystallization and the
ledger append.

Route selection requires all three mesh metrics (--betti, --lambda-gap,
--persistence); an unset metric is reported, never defaulted.

The attestation (--por, --phi) is the external resonance oracle's
verdict; the gate judges it together with the computed convergence
signals. A HOLD exits with status 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(rootOpts, cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.id, "id", "", "snapshot id (generated when empty)")
	cmd.Flags().StringVar(&flags.vector, "vector", "", "initial coordinates, five comma-separated numbers")
	cmd.Flags().Float64Var(&flags.betti, "betti", 0, "betti number metric")
	cmd.Flags().Float64Var(&flags.lambdaGap, "lambda-gap", 0, "spectral gap metric")
	cmd.Flags().Float64Var(&flags.persistence, "persistence", 0, "persistence metric")
	cmd.Flags().StringVar(&flags.por, "por", string(gate.PoRInvalid), "proof-of-resonance verdict (valid|invalid)")
	cmd.Flags().Float64Var(&flags.phi, "phi", 0, "phase coherence in [0,1]")
	_ = cmd.MarkFlagRequired("vector")

	return cmd
}

func runDerive(opts *RootOptions, cmd *cobra.Command, seed string, flags *deriveFlags) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	vec, err := parseVector(flags.vector)
	if err != nil {
		formatter.Error("E_INPUT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse vector", err)
	}

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

	deriver, err := pipeline.NewDeriver(cfg, led)
	if err != nil {
		formatter.Error("E_PIPELINE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "build pipeline", err)
	}

	snap := pipeline.Snapshot{
		ID:      flags.id,
		Seed:    seed,
		Vector:  vec,
		Metrics: metricsFromFlags(cmd, flags.betti, flags.lambdaGap, flags.persistence),
	}
	att := pipeline.Attestation{PoR: gate.Validity(flags.por), Phi: flags.phi}

	formatter.VerboseLog("deriving snapshot %q with seed %q", snap.ID, seed)

	res, err := deriver.Derive(cmd.Context(), snap, att)
	if err != nil {
		formatter.Error("E_DERIVE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "derive", err)
	}

	if opts.Format == "json" {
		if err := formatter.Success(res); err != nil {
			return err
		}
	} else {
		if err := formatter.Success(formatDeriveText(res)); err != nil {
			return err
		}
	}

	if !res.Decision.Commit {
		return NewExitError(ExitFailure, "derivation held")
	}
	return nil
}

func formatDeriveText(res pipeline.DeriveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "snapshot %s\n", res.Snapshot.ID)
	fmt.Fprintf(&b, "  route:      %s (sigma %v)\n", res.Route.RouteID, res.Route.Sigma)
	fmt.Fprintf(&b, "  converged:  %v in %d iterations (delta %.3g)\n",
		res.Convergence.Converged, res.Convergence.Iterations, res.Convergence.FinalDelta)
	fmt.Fprintf(&b, "  decision:   %s\n", res.Decision.Reason)
	if res.Block != nil {
		fmt.Fprintf(&b, "  tic:        %s\n", res.TIC.TICID)
		fmt.Fprintf(&b, "  block:      %d (%s)", res.Block.Index, res.Block.Hash)
	} else {
		b.WriteString("  block:      none")
	}
	return b.String()
}

// metricsFromFlags builds the mesh metrics map from the flags the caller
// actually set. A forgotten metric stays absent and surfaces as a routing
// error instead of silently scoring as 0.
func metricsFromFlags(cmd *cobra.Command, betti, lambdaGap, persistence float64) route.MeshMetrics {
	metrics := route.MeshMetrics{}
	if cmd.Flags().Changed("betti") {
		metrics[route.MetricBetti] = betti
	}
	if cmd.Flags().Changed("lambda-gap") {
		metrics[route.MetricLambdaGap] = lambdaGap
	}
	if cmd.Flags().Changed("persistence") {
		metrics[route.MetricPersistence] = persistence
	}
	return metrics
}

// parseVector parses five comma-separated numbers.
func parseVector(s string) (coord.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != coord.Dim {
		return coord.Vector{}, fmt.Errorf("vector needs exactly %d components, got %d", coord.Dim, len(parts))
	}
	var v coord.Vector
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return coord.Vector{}, fmt.Errorf("vector component %d: %w", i, err)
		}
		v[i] = f
	}
	return v, nil
}
