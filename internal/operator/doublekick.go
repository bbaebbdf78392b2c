package operator

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/mef-lab/coagula/internal/coord"
)

// directionSeed fixes the PRNG used to derive the two perturbation
// directions. Changing it changes every DoubleKick everywhere, so it is a
// protocol constant.
const directionSeed int64 = 0x5eed0decaf

// SafeKickBudget is the largest |alpha1|+|alpha2| for which DoubleKick is
// considered safe for local unsticking. Larger budgets break the
// non-expansiveness assumption the engine's contraction argument relies on
// and are flagged with a warning at construction.
const SafeKickBudget = 0.1

// DoubleKick translates the vector along two fixed orthonormal directions:
//
//	Apply(v) = v + alpha1*u1 + alpha2*u2
//
// The directions are derived once at construction from a fixed seed via
// Gram-Schmidt, so every DoubleKick with the same dimension uses the same
// u1 and u2. As a translation the map is an isometry of differences:
// Lipschitz constant 1 + eta with eta = |alpha1| + |alpha2| (the documented
// conservative bound).
type DoubleKick struct {
	alpha1 float64
	alpha2 float64
	u1     coord.Vector
	u2     coord.Vector
}

// NewDoubleKick derives the perturbation directions and returns the
// operator. A budget above SafeKickBudget is flagged, not rejected.
func NewDoubleKick(p DoubleKickParams) *DoubleKick {
	u1, u2 := kickDirections()
	dk := &DoubleKick{alpha1: p.Alpha1, alpha2: p.Alpha2, u1: u1, u2: u2}
	if dk.Eta() > SafeKickBudget {
		slog.Warn("double-kick budget exceeds safe non-expansiveness bound",
			"eta", dk.Eta(),
			"budget", SafeKickBudget)
	}
	return dk
}

// kickDirections derives two orthonormal directions from the fixed seed.
func kickDirections() (coord.Vector, coord.Vector) {
	rng := rand.New(rand.NewSource(directionSeed))

	var a, b coord.Vector
	for i := 0; i < coord.Dim; i++ {
		a[i] = rng.NormFloat64()
	}
	for i := 0; i < coord.Dim; i++ {
		b[i] = rng.NormFloat64()
	}

	u1 := a.Scale(1 / a.Norm())
	proj := b.Sub(u1.Scale(b.Dot(u1)))
	n := proj.Norm()
	if n < 1e-12 {
		// The fixed seed never produces parallel draws, but guard the
		// normalization anyway with a canonical basis fallback.
		proj = coord.Vector{0, 1}
		proj = proj.Sub(u1.Scale(proj.Dot(u1)))
		n = proj.Norm()
	}
	u2 := proj.Scale(1 / n)
	return u1, u2
}

func (*DoubleKick) operator() {}

// Kind returns KindDoubleKick.
func (*DoubleKick) Kind() Kind { return KindDoubleKick }

// Eta returns |alpha1| + |alpha2|, the perturbation budget.
func (d *DoubleKick) Eta() float64 {
	return math.Abs(d.alpha1) + math.Abs(d.alpha2)
}

// Apply returns v + alpha1*u1 + alpha2*u2.
func (d *DoubleKick) Apply(v coord.Vector) coord.Vector {
	return v.Add(d.u1.Scale(d.alpha1)).Add(d.u2.Scale(d.alpha2))
}

// Lipschitz returns 1 + eta.
func (d *DoubleKick) Lipschitz() float64 { return 1 + d.Eta() }

// Idempotent returns false: repeated kicks accumulate.
func (*DoubleKick) Idempotent() bool { return false }
