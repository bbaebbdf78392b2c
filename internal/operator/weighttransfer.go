package operator

import "github.com/mef-lab/coagula/internal/coord"

// ScaleLevels is the number of projection scales WeightTransfer blends.
const ScaleLevels = 3

// weightTargets is the fixed target weight distribution the blend drifts
// toward: weight moves from the fine scale to the coarse scale.
var weightTargets = [ScaleLevels]float64{0.2, 0.3, 0.5}

// WeightTransfer blends the vector across three scale-level projections:
//
//	level 0: identity (fine scale)
//	level 1: block-pair averaging over coordinate groups {0,1},{2,3},{4}
//	level 2: global mean (coarse scale)
//
// Each Apply first drifts the weight distribution toward the fixed targets
// (w' = (1-gamma)*w + gamma*w_target, renormalized to sum 1), then returns
// the convex combination sum_level w'_level * P_level(v). All three
// projections are orthogonal, so any convex combination is non-expansive:
// Lipschitz <= 1.
type WeightTransfer struct {
	gamma   float64
	weights [ScaleLevels]float64
	step    int
}

// NewWeightTransfer returns the operator with a uniform initial weight
// distribution. Gamma outside (0,1] is clamped to the default 0.1.
func NewWeightTransfer(p WeightTransferParams) *WeightTransfer {
	gamma := p.Gamma
	if gamma <= 0 || gamma > 1 {
		gamma = 0.1
	}
	w := &WeightTransfer{gamma: gamma}
	for i := range w.weights {
		w.weights[i] = 1.0 / ScaleLevels
	}
	return w
}

func (*WeightTransfer) operator() {}

// Kind returns KindWeightTransfer.
func (*WeightTransfer) Kind() Kind { return KindWeightTransfer }

// Step returns the number of Apply calls so far.
func (w *WeightTransfer) Step() int { return w.step }

// Weights returns the current weight distribution.
func (w *WeightTransfer) Weights() [ScaleLevels]float64 { return w.weights }

// Apply advances the weight blend and returns the convex combination of
// the scale projections.
func (w *WeightTransfer) Apply(v coord.Vector) coord.Vector {
	var sum float64
	for i := range w.weights {
		w.weights[i] = (1-w.gamma)*w.weights[i] + w.gamma*weightTargets[i]
		sum += w.weights[i]
	}
	for i := range w.weights {
		w.weights[i] /= sum
	}
	w.step++

	out := v.Scale(w.weights[0])
	out = out.Add(pairAverage(v).Scale(w.weights[1]))
	out = out.Add(meanProjection(v).Scale(w.weights[2]))
	return out
}

// Lipschitz returns 1: convex combination of orthogonal projections.
func (*WeightTransfer) Lipschitz() float64 { return 1 }

// Idempotent returns false: the weight distribution advances per call.
func (*WeightTransfer) Idempotent() bool { return false }

// pairAverage projects onto the subspace constant on the coordinate groups
// {0,1}, {2,3}, {4}.
func pairAverage(v coord.Vector) coord.Vector {
	var out coord.Vector
	m01 := (v[0] + v[1]) / 2
	m23 := (v[2] + v[3]) / 2
	out[0], out[1] = m01, m01
	out[2], out[3] = m23, m23
	out[4] = v[4]
	return out
}

// meanProjection projects onto the constant-vector subspace.
func meanProjection(v coord.Vector) coord.Vector {
	var out coord.Vector
	m := v.Mean()
	for i := 0; i < coord.Dim; i++ {
		out[i] = m
	}
	return out
}
