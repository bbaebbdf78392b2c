// Package coord provides the fixed-dimension coordinate types used by the
// convergence pipeline: 5-dimensional vectors, 5x5 linear maps, and a
// deterministic spectral norm estimate.
//
// The dimension is a compile-time constant. Every value type is a plain
// array, so copies are cheap and no aliasing is possible between pipeline
// stages.
package coord

import "math"

// Dim is the fixed dimension of every pipeline vector.
const Dim = 5

// Vector is a fixed-length ordered sequence of reals.
// Vectors are value types - operations return new vectors, inputs are
// never mutated.
type Vector [Dim]float64

// FromSlice builds a Vector from a slice of exactly Dim elements.
// Returns false if the length does not match.
func FromSlice(xs []float64) (Vector, bool) {
	var v Vector
	if len(xs) != Dim {
		return v, false
	}
	copy(v[:], xs)
	return v, true
}

// Slice returns the vector components as a fresh slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Dim)
	copy(out, v[:])
	return out
}

// Add returns v + w.
func (v Vector) Add(w Vector) Vector {
	var out Vector
	for i := 0; i < Dim; i++ {
		out[i] = v[i] + w[i]
	}
	return out
}

// Sub returns v - w.
func (v Vector) Sub(w Vector) Vector {
	var out Vector
	for i := 0; i < Dim; i++ {
		out[i] = v[i] - w[i]
	}
	return out
}

// Scale returns a*v.
func (v Vector) Scale(a float64) Vector {
	var out Vector
	for i := 0; i < Dim; i++ {
		out[i] = a * v[i]
	}
	return out
}

// Dot returns the inner product of v and w.
func (v Vector) Dot(w Vector) float64 {
	var sum float64
	for i := 0; i < Dim; i++ {
		sum += v[i] * w[i]
	}
	return sum
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Mean returns the arithmetic mean of the components.
func (v Vector) Mean() float64 {
	var sum float64
	for i := 0; i < Dim; i++ {
		sum += v[i]
	}
	return sum / Dim
}

// Variance returns the population variance of the components.
func (v Vector) Variance() float64 {
	mean := v.Mean()
	var sum float64
	for i := 0; i < Dim; i++ {
		d := v[i] - mean
		sum += d * d
	}
	return sum / Dim
}

// IsFinite reports whether every component is finite (no NaN or Inf).
func (v Vector) IsFinite() bool {
	for i := 0; i < Dim; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

// Rotate returns the cyclic rotation of v by k positions:
// out[i] = v[(i+k) mod Dim].
func (v Vector) Rotate(k int) Vector {
	var out Vector
	k = ((k % Dim) + Dim) % Dim
	for i := 0; i < Dim; i++ {
		out[i] = v[(i+k)%Dim]
	}
	return out
}
