// Package operator implements the closed library of vector transformations
// applied inside the fixpoint iteration.
//
// The variant set is sealed: exactly four operators exist (DoubleKick,
// Sweep, PathInvariance, WeightTransfer) and only types in this package can
// implement the Operator interface. Each variant documents its Lipschitz
// bound; the engine's contraction argument relies on every chained operator
// being non-expansive apart from DoubleKick's bounded 1+eta.
//
// Operators are pure functions of the input vector and their own parameters,
// except Sweep and WeightTransfer which carry a private monotonically
// advancing step counter mutated only by their own Apply calls. A fresh
// chain is built per derivation, so counters never leak between runs.
package operator

import "github.com/mef-lab/coagula/internal/coord"

// Kind identifies an operator variant. The values double as the route slot
// labels bound to concrete operators.
type Kind string

const (
	KindDoubleKick     Kind = "DK"
	KindSweep          Kind = "SW"
	KindPathInvariance Kind = "PI"
	KindWeightTransfer Kind = "WT"
)

// Operator is the sealed interface over the closed variant set.
// Only types in this package implement it.
type Operator interface {
	operator() // Sealed - only the four variants implement it.

	// Kind returns the variant tag.
	Kind() Kind

	// Apply transforms a vector. The input is never mutated.
	Apply(v coord.Vector) coord.Vector

	// Lipschitz returns the documented Lipschitz constant of Apply.
	Lipschitz() float64

	// Idempotent reports whether applying the operator twice changes the
	// result by less than the variant's tolerance.
	Idempotent() bool
}

// Params carries the construction parameters for every variant. A route
// chain is built from one Params value so that identical configuration
// always produces identical operator behavior.
type Params struct {
	DoubleKick     DoubleKickParams
	Sweep          SweepParams
	PathInvariance PathInvarianceParams
	WeightTransfer WeightTransferParams
}

// DoubleKickParams configures the two perturbation magnitudes.
type DoubleKickParams struct {
	Alpha1 float64
	Alpha2 float64
}

// SweepParams configures the threshold schedule and gate sharpness.
type SweepParams struct {
	Tau0     float64
	Beta     float64
	DeltaTau float64
	Period   int
	Schedule Schedule
}

// PathInvarianceParams configures the idempotence tolerance.
type PathInvarianceParams struct {
	Tol float64
}

// WeightTransferParams configures the weight blend rate.
type WeightTransferParams struct {
	Gamma float64
}

// DefaultParams returns the documented default parameter set. The default
// DoubleKick budget eta = 0.05 stays inside the safe local-unsticking
// bound.
func DefaultParams() Params {
	return Params{
		DoubleKick: DoubleKickParams{Alpha1: 0.02, Alpha2: 0.03},
		Sweep: SweepParams{
			Tau0:     0.0,
			Beta:     0.5,
			DeltaTau: 0.05,
			Period:   100,
			Schedule: ScheduleCosine,
		},
		PathInvariance: PathInvarianceParams{Tol: 1e-9},
		WeightTransfer: WeightTransferParams{Gamma: 0.1},
	}
}
