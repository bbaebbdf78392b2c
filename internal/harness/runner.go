package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/mef-lab/coagula/internal/config"
	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/gate"
	"github.com/mef-lab/coagula/internal/ledger"
	"github.com/mef-lab/coagula/internal/pipeline"
	"github.com/mef-lab/coagula/internal/route"
	"github.com/mef-lab/coagula/internal/testutil"
)

// Result carries everything a scenario produced: the derivation record,
// the full audit trail and the final chain state.
type Result struct {
	Derive pipeline.DeriveResult
	Events []gate.Event
	Chain  ledger.ChainStatistics
}

// Run executes one scenario against a fresh in-memory pipeline with
// deterministic clocks and ids, so repeated runs are byte-identical.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	cfg := config.Default()
	if s.Config != "" {
		var err error
		cfg, err = config.CompileString(s.Config)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: compile config: %w", s.Name, err)
		}
	}

	led, err := ledger.Open(ledger.NewMemoryBackend(), ledger.WithClock(testutil.DefaultClock()))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: open ledger: %w", s.Name, err)
	}

	sink := &gate.RecordingSink{}
	deriver, err := pipeline.NewDeriver(cfg, led,
		pipeline.WithSink(sink),
		pipeline.WithIDGenerator(testutil.NewSequenceIDs("snap")),
		pipeline.WithNow(testutil.DefaultClock().Now))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: build pipeline: %w", s.Name, err)
	}

	var vec coord.Vector
	copy(vec[:], s.Snapshot.Vector)
	snap := pipeline.Snapshot{
		ID:      s.Snapshot.ID,
		Seed:    s.Snapshot.Seed,
		Vector:  vec,
		Metrics: route.MeshMetrics(s.Snapshot.Metrics),
	}
	att := pipeline.Attestation{
		PoR: gate.Validity(s.Attestation.PoR),
		Phi: s.Attestation.Phi,
	}

	res, err := deriver.Derive(ctx, snap, att)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: derive: %w", s.Name, err)
	}

	chain, err := led.GetChainStatistics()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: chain statistics: %w", s.Name, err)
	}

	return &Result{Derive: res, Events: sink.Events, Chain: chain}, nil
}

// Check verifies the result against the scenario's expectations. All
// violations are reported together, not just the first.
func Check(s *Scenario, r *Result) error {
	var violations []string

	if r.Derive.Decision.Commit != s.Expect.Commit {
		violations = append(violations,
			fmt.Sprintf("commit = %v, want %v (reason: %s)",
				r.Derive.Decision.Commit, s.Expect.Commit, r.Derive.Decision.Reason))
	}

	for _, want := range s.Expect.ReasonContains {
		if !strings.Contains(r.Derive.Decision.Reason, want) {
			violations = append(violations,
				fmt.Sprintf("reason %q does not contain %q", r.Derive.Decision.Reason, want))
		}
	}

	if s.Expect.Converged != nil && r.Derive.Convergence.Converged != *s.Expect.Converged {
		violations = append(violations,
			fmt.Sprintf("converged = %v, want %v", r.Derive.Convergence.Converged, *s.Expect.Converged))
	}

	if s.Expect.MaxIterations > 0 && r.Derive.Convergence.Iterations > s.Expect.MaxIterations {
		violations = append(violations,
			fmt.Sprintf("iterations = %d, want at most %d",
				r.Derive.Convergence.Iterations, s.Expect.MaxIterations))
	}

	if s.Expect.Commit {
		if r.Derive.Block == nil {
			violations = append(violations, "commit expected but no block was appended")
		} else if s.Expect.BlockIndex != nil && r.Derive.Block.Index != *s.Expect.BlockIndex {
			violations = append(violations,
				fmt.Sprintf("block index = %d, want %d", r.Derive.Block.Index, *s.Expect.BlockIndex))
		}
	} else if r.Derive.Block != nil {
		violations = append(violations, "hold expected but a block was appended")
	}

	if len(r.Events) != 1 {
		violations = append(violations,
			fmt.Sprintf("audit trail has %d events, want exactly 1", len(r.Events)))
	}

	if len(violations) > 0 {
		return fmt.Errorf("scenario %s:\n  %s", s.Name, strings.Join(violations, "\n  "))
	}
	return nil
}
