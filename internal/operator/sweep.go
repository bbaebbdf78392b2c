package operator

import (
	"math"

	"github.com/mef-lab/coagula/internal/coord"
)

// Schedule selects how the Sweep threshold varies over the operator's
// internal step counter.
type Schedule string

const (
	// ScheduleCosine anneals tau from tau0+delta_tau down to tau0 along a
	// half cosine over Period steps.
	ScheduleCosine Schedule = "cosine"
	// ScheduleLinear ramps tau from tau0+delta_tau down to tau0 linearly
	// over Period steps.
	ScheduleLinear Schedule = "linear"
)

// Sweep gates the whole vector through a sigmoid of its mean against a
// time-varying threshold:
//
//	g = sigmoid((mean(v) - tau(t)) / beta), Apply(v) = g * v
//
// The step counter t advances on every Apply and is clamped at Period, so
// the gate becomes time-invariant once the schedule completes. The scalar
// gate lies in (0,1), giving Lipschitz <= 1.
type Sweep struct {
	p    SweepParams
	step int
}

// NewSweep returns a Sweep with its counter at zero.
// Period <= 0 is treated as 1; beta <= 0 is treated as the default 0.5.
func NewSweep(p SweepParams) *Sweep {
	if p.Period <= 0 {
		p.Period = 1
	}
	if p.Beta <= 0 {
		p.Beta = 0.5
	}
	if p.Schedule == "" {
		p.Schedule = ScheduleCosine
	}
	return &Sweep{p: p}
}

func (*Sweep) operator() {}

// Kind returns KindSweep.
func (*Sweep) Kind() Kind { return KindSweep }

// Step returns the current value of the internal counter.
func (s *Sweep) Step() int { return s.step }

// Threshold returns tau(t) for the given step under the configured
// schedule, clamping t to [0, Period].
func (s *Sweep) Threshold(t int) float64 {
	if t < 0 {
		t = 0
	}
	if t > s.p.Period {
		t = s.p.Period
	}
	frac := float64(t) / float64(s.p.Period)
	switch s.p.Schedule {
	case ScheduleLinear:
		return s.p.Tau0 + s.p.DeltaTau*(1-frac)
	default:
		return s.p.Tau0 + 0.5*(1+math.Cos(math.Pi*frac))*s.p.DeltaTau
	}
}

// Apply gates v by the sigmoid of its mean against tau(t), then advances
// the counter.
func (s *Sweep) Apply(v coord.Vector) coord.Vector {
	tau := s.Threshold(s.step)
	g := sigmoid((v.Mean() - tau) / s.p.Beta)
	s.step++
	return v.Scale(g)
}

// Lipschitz returns 1: the gate is a scalar in (0,1).
func (*Sweep) Lipschitz() float64 { return 1 }

// Idempotent returns false: the counter advances per application.
func (*Sweep) Idempotent() bool { return false }

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
