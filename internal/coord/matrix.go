package coord

import "math"

// Matrix is a dense Dim x Dim linear map, row-major.
type Matrix [Dim][Dim]float64

// Identity returns the identity map.
func Identity() Matrix {
	var m Matrix
	for i := 0; i < Dim; i++ {
		m[i][i] = 1
	}
	return m
}

// Apply returns m*v.
func (m Matrix) Apply(v Vector) Vector {
	var out Vector
	for i := 0; i < Dim; i++ {
		var sum float64
		for j := 0; j < Dim; j++ {
			sum += m[i][j] * v[j]
		}
		out[i] = sum
	}
	return out
}

// Scale returns a*m.
func (m Matrix) Scale(a float64) Matrix {
	var out Matrix
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			out[i][j] = a * m[i][j]
		}
	}
	return out
}

// Transpose returns the transpose of m.
func (m Matrix) Transpose() Matrix {
	var out Matrix
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// spectralIterations is the fixed power-iteration count. At dimension 5
// the estimate is converged well past float64 precision by then.
const spectralIterations = 200

// SpectralNorm estimates the largest singular value of m by deterministic
// power iteration on m^T m. The starting vector is fixed, so repeated calls
// on the same matrix always return the identical value.
//
// The estimate approaches the true norm from below and can undershoot it
// by a few ulps; callers enforcing a strict upper bound must leave slack
// for that one-sided error.
func SpectralNorm(m Matrix) float64 {
	mt := m.Transpose()

	// Fixed, mildly asymmetric start so the iterate is never orthogonal
	// to the dominant singular direction by accident.
	x := Vector{1, 0.9, 1.1, 0.95, 1.05}
	n := x.Norm()
	if n == 0 {
		return 0
	}
	x = x.Scale(1 / n)

	var sigma2 float64
	for i := 0; i < spectralIterations; i++ {
		y := mt.Apply(m.Apply(x))
		n = y.Norm()
		if n == 0 {
			return 0
		}
		x = y.Scale(1 / n)
		sigma2 = x.Dot(mt.Apply(m.Apply(x)))
	}
	if sigma2 < 0 {
		sigma2 = 0
	}
	return math.Sqrt(sigma2)
}

// DefaultMix is the fixed linear map W used by the default engine
// configuration: a symmetric circulant with diagonal 0.3, nearest-neighbour
// 0.1 and next-nearest 0.05. Row sums are 0.6, so by Gershgorin the spectral
// norm is at most 0.6 and lambda*W is contractive for any lambda in (0,1].
func DefaultMix() Matrix {
	var m Matrix
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			switch d := cyclicDistance(i, j); d {
			case 0:
				m[i][j] = 0.3
			case 1:
				m[i][j] = 0.1
			default:
				m[i][j] = 0.05
			}
		}
	}
	return m
}

// cyclicDistance returns the circular index distance between i and j.
func cyclicDistance(i, j int) int {
	d := i - j
	if d < 0 {
		d = -d
	}
	if Dim-d < d {
		d = Dim - d
	}
	return d
}
