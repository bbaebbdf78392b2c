package operator

import (
	"slices"

	"github.com/mef-lab/coagula/internal/coord"
)

// PathInvariance averages the vector over a fixed finite permutation set:
// the cyclic rotations of the coordinates. The rotated path vectors are
// canonically reordered (lexicographically) before averaging so the
// traversal order is pinned down even though addition commutes.
//
// Because the rotations form a group, the average is the orthogonal
// projection onto the rotation-invariant subspace: applying the operator
// twice changes nothing beyond floating-point round-off, well inside any
// reasonable tolerance. Orthogonal projections are non-expansive, so the
// Lipschitz constant is 1.
type PathInvariance struct {
	tol float64
}

// NewPathInvariance returns the operator with the given idempotence
// tolerance. Tol <= 0 defaults to 1e-9.
func NewPathInvariance(p PathInvarianceParams) *PathInvariance {
	if p.Tol <= 0 {
		p.Tol = 1e-9
	}
	return &PathInvariance{tol: p.Tol}
}

func (*PathInvariance) operator() {}

// Kind returns KindPathInvariance.
func (*PathInvariance) Kind() Kind { return KindPathInvariance }

// Tol returns the idempotence tolerance.
func (p *PathInvariance) Tol() float64 { return p.tol }

// Apply averages the canonically ordered rotations of v.
func (p *PathInvariance) Apply(v coord.Vector) coord.Vector {
	paths := make([]coord.Vector, coord.Dim)
	for k := 0; k < coord.Dim; k++ {
		paths[k] = v.Rotate(k)
	}

	slices.SortFunc(paths, compareLex)

	var sum coord.Vector
	for _, w := range paths {
		sum = sum.Add(w)
	}
	return sum.Scale(1 / float64(len(paths)))
}

// Lipschitz returns 1.
func (*PathInvariance) Lipschitz() float64 { return 1 }

// Idempotent returns true: the averaged map is a projection.
func (*PathInvariance) Idempotent() bool { return true }

// compareLex orders vectors lexicographically by component.
func compareLex(a, b coord.Vector) int {
	for i := 0; i < coord.Dim; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
