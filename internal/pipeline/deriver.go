package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mef-lab/coagula/internal/config"
	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/gate"
	"github.com/mef-lab/coagula/internal/ledger"
	"github.com/mef-lab/coagula/internal/operator"
	"github.com/mef-lab/coagula/internal/route"
	"github.com/mef-lab/coagula/internal/solve"
	"github.com/mef-lab/coagula/internal/tic"
)

// DeriveResult reports one full derivation: everything the pipeline
// computed and decided. TIC and Block are set only on FIRE.
type DeriveResult struct {
	Snapshot    Snapshot              `json:"snapshot"`
	Route       route.RouteSpec       `json:"route"`
	Fixpoint    coord.Vector          `json:"fixpoint"`
	Convergence solve.ConvergenceInfo `json:"convergence"`
	Checks      gate.Checks           `json:"checks"`
	Decision    gate.Decision         `json:"decision"`
	TIC         *tic.TIC              `json:"tic,omitempty"`
	Block       *ledger.Block         `json:"block,omitempty"`
}

// Committed reports whether the derivation ended in a ledger append.
func (r DeriveResult) Committed() bool {
	return r.Block != nil
}

// Deriver runs derivations against one configuration and one ledger.
// Safe for concurrent use: per-derivation state (operator chains,
// engines) is constructed fresh on every call, and the ledger serializes
// its own appends.
type Deriver struct {
	cfg       config.Config
	ledger    *ledger.Ledger
	sink      gate.Sink
	evaluator *gate.Evaluator
	metrics   *Metrics
	logger    *slog.Logger
	ids       IDGenerator
	now       func() time.Time
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithSink routes gate audit events to the given sink.
func WithSink(sink gate.Sink) DeriverOption {
	return func(d *Deriver) {
		d.sink = sink
	}
}

// WithMetrics attaches pipeline instrumentation.
func WithMetrics(m *Metrics) DeriverOption {
	return func(d *Deriver) {
		d.metrics = m
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) DeriverOption {
	return func(d *Deriver) {
		d.logger = logger
	}
}

// WithIDGenerator overrides the snapshot id source.
func WithIDGenerator(gen IDGenerator) DeriverOption {
	return func(d *Deriver) {
		d.ids = gen
	}
}

// WithNow overrides the crystallization timestamp source.
func WithNow(now func() time.Time) DeriverOption {
	return func(d *Deriver) {
		d.now = now
	}
}

// NewDeriver creates a pipeline over the given configuration and ledger.
func NewDeriver(cfg config.Config, led *ledger.Ledger, opts ...DeriverOption) (*Deriver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline configuration: %w", err)
	}
	if led == nil {
		return nil, fmt.Errorf("pipeline requires a ledger")
	}

	d := &Deriver{
		cfg:    cfg,
		ledger: led,
		logger: slog.Default(),
		ids:    UUIDGenerator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	// Built after options so audit timestamps share the injected clock.
	d.evaluator = gate.NewEvaluator(cfg.Gate, d.sink, gate.WithNow(d.now))
	return d, nil
}

// Derive runs one snapshot through the full pipeline:
//
//	route selection -> operator chain -> fixpoint iteration ->
//	gate evaluation -> (FIRE only) crystallization -> ledger append
//
// The gate is evaluated on every run that reaches it, FIRE and HOLD
// alike, so the audit trail is complete. Identical (snapshot,
// attestation) inputs produce identical routes, fixpoints and decisions.
func (d *Deriver) Derive(ctx context.Context, snap Snapshot, att Attestation) (DeriveResult, error) {
	if snap.ID == "" {
		snap.ID = d.ids.NewID()
	}
	if err := snap.Validate(); err != nil {
		d.metrics.observeDerivation("invalid")
		return DeriveResult{}, fmt.Errorf("derive %s: %w", snap.ID, err)
	}

	spec, err := route.SelectRoute(snap.Seed, snap.Metrics)
	if err != nil {
		d.metrics.observeDerivation("route_error")
		return DeriveResult{}, fmt.Errorf("derive %s: select route: %w", snap.ID, err)
	}

	chain, err := route.BuildChain(spec, d.cfg.Operators)
	if err != nil {
		d.metrics.observeDerivation("route_error")
		return DeriveResult{}, fmt.Errorf("derive %s: build chain: %w", snap.ID, err)
	}

	engine, err := solve.New(d.cfg.EngineOptions(), chain)
	if err != nil {
		d.metrics.observeDerivation("engine_error")
		return DeriveResult{}, fmt.Errorf("derive %s: engine: %w", snap.ID, err)
	}

	fixpoint, info, err := engine.Run(ctx, snap.Vector)
	if err != nil {
		d.metrics.observeDerivation("engine_error")
		return DeriveResult{}, fmt.Errorf("derive %s: solve: %w", snap.ID, err)
	}
	d.metrics.observeIterations(info.Iterations)

	checks := gate.Checks{
		PoR:     att.PoR,
		DeltaPi: pathDrift(fixpoint, d.cfg.Operators.PathInvariance),
		Phi:     att.Phi,
		DeltaV:  info.FinalDeltaV,
	}
	decision := d.evaluator.Evaluate(checks)
	d.metrics.observeGate(decision.Commit)

	result := DeriveResult{
		Snapshot:    snap,
		Route:       spec,
		Fixpoint:    fixpoint,
		Convergence: info,
		Checks:      checks,
		Decision:    decision,
	}

	if !decision.Commit {
		d.logger.Info("derivation held",
			"snapshot_id", snap.ID,
			"route_id", spec.RouteID,
			"reason", decision.Reason)
		d.metrics.observeDerivation("hold")
		return result, nil
	}

	crystal := tic.Crystallize(fixpoint, snap.Seed, snap.ID, info, d.now().UTC(), d.cfg.ValidityWindow)
	block, err := d.ledger.AppendBlock(crystal, snap.Hash())
	d.metrics.observeAppend(err)
	if err != nil {
		// The decision stands and was audited; only persistence failed.
		d.metrics.observeDerivation("append_error")
		return result, fmt.Errorf("derive %s: append block: %w", snap.ID, err)
	}

	result.TIC = &crystal
	result.Block = &block

	d.logger.Info("derivation committed",
		"snapshot_id", snap.ID,
		"route_id", spec.RouteID,
		"tic_id", crystal.TICID,
		"block_index", block.Index,
		"iterations", info.Iterations)
	d.metrics.observeDerivation("fire")

	return result, nil
}

// pathDrift measures residual path dependence at the fixpoint: the
// distance the exact path-invariance projection still moves it. Zero for
// a truly order-independent state.
func pathDrift(v coord.Vector, params operator.PathInvarianceParams) float64 {
	projected := operator.NewPathInvariance(params).Apply(v)
	return projected.Sub(v).Norm()
}
