// Package gate implements the Merkaba gate: the pure decision function
// that classifies a derivation as FIRE (commit) or HOLD.
//
// Evaluation is pure over the checks - identical GateChecks always produce
// an identical GateDecision - and every evaluation emits exactly one
// immutable GateEvent to the configured audit sink regardless of outcome.
// Only FIRE has further side effects (crystallization and ledger append),
// and those belong to the pipeline, not to this package.
package gate

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Validity is the external resonance oracle's classification.
type Validity string

const (
	// PoRValid marks a valid resonance proof.
	PoRValid Validity = "valid"
	// PoRInvalid marks an invalid resonance proof.
	PoRInvalid Validity = "invalid"
)

// Checks carries the four convergence/validity signals one evaluation
// judges, plus the optional mesh coherence index.
type Checks struct {
	// PoR is the external validity oracle's verdict.
	PoR Validity `json:"por"`

	// DeltaPi is the path-invariance drift at the fixpoint.
	DeltaPi float64 `json:"delta_pi"`

	// Phi is the resonance phase coherence reported by the oracle.
	Phi float64 `json:"phi"`

	// DeltaV is the final Lyapunov step; negative means the energy was
	// still decreasing when the iteration stopped.
	DeltaV float64 `json:"delta_v"`

	// MCI is the optional mesh coherence index, informational only.
	MCI *float64 `json:"mci,omitempty"`
}

// Decision is the gate outcome. Reason enumerates every failing criterion
// on HOLD for audit completeness - the evaluation never short-circuits.
type Decision struct {
	Commit bool   `json:"commit"`
	Reason string `json:"reason"`
}

// Thresholds are the configurable gate criteria bounds.
type Thresholds struct {
	// EpsilonPi is the maximum admissible path-invariance drift.
	EpsilonPi float64 `json:"epsilon_pi"`

	// PhiStar is the minimum admissible phase coherence.
	PhiStar float64 `json:"phi_star"`
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{EpsilonPi: 0.01, PhiStar: 0.85}
}

// Decide is the pure gate function. FIRE iff all four criteria hold:
// por valid, delta_pi <= epsilon_pi, phi >= phi_star, delta_v < 0.
// Every failing criterion is named in the HOLD reason.
func Decide(checks Checks, th Thresholds) Decision {
	var failures []string

	if checks.PoR != PoRValid {
		failures = append(failures, "PoR invalid")
	}
	if checks.DeltaPi > th.EpsilonPi {
		failures = append(failures,
			fmt.Sprintf("delta_pi %.6g exceeds epsilon_pi %.6g", checks.DeltaPi, th.EpsilonPi))
	}
	if checks.Phi < th.PhiStar {
		failures = append(failures,
			fmt.Sprintf("phi %.6g below phi_star %.6g", checks.Phi, th.PhiStar))
	}
	if checks.DeltaV >= 0 {
		failures = append(failures,
			fmt.Sprintf("delta_v %.6g not negative", checks.DeltaV))
	}

	if len(failures) > 0 {
		return Decision{Commit: false, Reason: "HOLD: " + strings.Join(failures, "; ")}
	}
	return Decision{Commit: true, Reason: "FIRE: all gate criteria satisfied"}
}

// Evaluator wraps Decide with threshold configuration and audit emission.
// Safe for concurrent use: the decision path is pure and the event
// sequence counter is atomic.
type Evaluator struct {
	thresholds Thresholds
	sink       Sink
	now        func() time.Time
	seq        atomic.Int64
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithNow overrides the event timestamp source. Used by tests for
// deterministic audit traces.
func WithNow(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates an evaluator emitting to the given sink.
// A nil sink discards events.
func NewEvaluator(th Thresholds, sink Sink, opts ...EvaluatorOption) *Evaluator {
	if sink == nil {
		sink = discardSink{}
	}
	e := &Evaluator{
		thresholds: th,
		sink:       sink,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the pure decision and emits the audit event. The decision
// is returned unchanged even if the sink fails; sink failures are the
// sink's to report (see Sink).
func (e *Evaluator) Evaluate(checks Checks) Decision {
	decision := Decide(checks, e.thresholds)

	e.sink.Emit(Event{
		Seq:       e.seq.Add(1),
		Timestamp: e.now().UTC(),
		Checks:    checks,
		Decision:  decision,
	})

	return decision
}
