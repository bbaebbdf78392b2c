// Package solve implements the Solve-Coagula fixpoint engine.
//
// The engine iterates a blended linear/operator transformation
//
//	v_{t+1} = chain(lambda*W*v_t + (1-lambda)*v_t)
//
// to a fixpoint under a contraction guarantee verified before the first
// iteration: the spectral norm of lambda*W must be strictly below 1. A
// configuration that fails the pre-check is rejected outright - it never
// enters the iterating state.
//
// Iterations are strictly sequential (v_{t+1} depends on v_t); independent
// derivation requests run on separate engine instances. The only
// suspension points are the per-iteration loop bound and context
// cancellation checked between iterations.
package solve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/operator"
)

// Options configures a fixpoint run.
type Options struct {
	// Lambda is the linear blend factor, in (0,1].
	Lambda float64

	// Epsilon is the convergence threshold on the step delta.
	Epsilon float64

	// MaxIter bounds the iteration count. Reaching it is reported in
	// ConvergenceInfo, not returned as an error.
	MaxIter int

	// W is the fixed linear map.
	W coord.Matrix

	// RecordHistory retains the full per-step (iteration, Lyapunov, norm)
	// trace in ConvergenceInfo.
	RecordHistory bool
}

// HistoryEntry is one step of the retained convergence trace.
type HistoryEntry struct {
	Iteration int     `json:"iteration"`
	Lyapunov  float64 `json:"lyapunov"`
	Norm      float64 `json:"norm"`
}

// ConvergenceInfo reports the outcome of a fixpoint run.
type ConvergenceInfo struct {
	// Converged is true when the step delta fell below epsilon.
	Converged bool `json:"converged"`

	// Iterations is the number of steps executed.
	Iterations int `json:"iterations"`

	// FinalDelta is the last step delta ||v_{t+1} - v_t||.
	FinalDelta float64 `json:"final_delta"`

	// FinalDeltaV is the last Lyapunov step Delta V = V_{t+1} - V_t.
	// Negative values indicate the energy was still decreasing at stop.
	FinalDeltaV float64 `json:"final_delta_v"`

	// History holds the per-step trace when recording was requested.
	History []HistoryEntry `json:"history,omitempty"`
}

// Engine runs one sequential fixpoint iteration per call. An Engine is
// bound to its verified options and operator chain at construction.
type Engine struct {
	opts   Options
	chain  *operator.Chain
	sigma  float64 // verified spectral norm of lambda*W
	logger *slog.Logger
}

// spectralSlack absorbs the one-sided error of the power-iteration norm
// estimate, which approaches the true value from below. A map whose true
// norm sits inside this slack has no usable contraction margin either way.
const spectralSlack = 1e-9

// New verifies the configuration and returns an engine.
//
// Rejections (fatal, before any iteration):
//   - lambda outside (0,1], epsilon <= 0 or max_iter < 1 (INVALID_OPTION)
//   - spectral norm of lambda*W at or above 1, within the estimator's
//     one-sided tolerance (NON_CONTRACTIVE)
//
// A chain whose documented Lipschitz bound exceeds 1 (a DoubleKick past
// its safe budget) weakens the contraction argument; it is logged as a
// warning, not rejected, matching the operator library's flagging policy.
func New(opts Options, chain *operator.Chain) (*Engine, error) {
	if opts.Lambda <= 0 || opts.Lambda > 1 {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidOption,
			Message: fmt.Sprintf("lambda %v outside (0,1]", opts.Lambda),
		}
	}
	if opts.Epsilon <= 0 {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidOption,
			Message: fmt.Sprintf("epsilon %v must be positive", opts.Epsilon),
		}
	}
	if opts.MaxIter < 1 {
		return nil, &ConfigError{
			Code:    ErrCodeInvalidOption,
			Message: fmt.Sprintf("max_iter %d must be at least 1", opts.MaxIter),
		}
	}
	if chain == nil {
		chain = operator.NewChain()
	}

	sigma := coord.SpectralNorm(opts.W.Scale(opts.Lambda))
	if sigma >= 1-spectralSlack {
		return nil, &ConfigError{
			Code:         ErrCodeNonContractive,
			Message:      "spectral norm of lambda*W must be < 1",
			SpectralNorm: sigma,
			Lambda:       opts.Lambda,
		}
	}

	if l := chain.Lipschitz(); l > 1 {
		slog.Warn("operator chain bound exceeds 1; contraction margin reduced",
			"chain_lipschitz", l,
			"spectral_norm", sigma)
	}

	return &Engine{
		opts:   opts,
		chain:  chain,
		sigma:  sigma,
		logger: slog.Default(),
	}, nil
}

// SpectralNorm returns the verified norm of lambda*W.
func (e *Engine) SpectralNorm() float64 { return e.sigma }

// Run iterates from v0 until the step delta falls below epsilon or the
// iteration budget is exhausted. MaxIterationsReached is a reported
// outcome, not an error.
//
// The context is checked between iterations: cancellation stops after the
// current step and reports the partial ConvergenceInfo with ctx.Err().
func (e *Engine) Run(ctx context.Context, v0 coord.Vector) (coord.Vector, ConvergenceInfo, error) {
	info := ConvergenceInfo{}

	v := v0
	lyapunov := v.Dot(v)
	if e.opts.RecordHistory {
		info.History = append(info.History, HistoryEntry{Iteration: 0, Lyapunov: lyapunov, Norm: v.Norm()})
	}

	for t := 0; t < e.opts.MaxIter; t++ {
		if err := ctx.Err(); err != nil {
			return v, info, fmt.Errorf("fixpoint iteration cancelled at step %d: %w", t, err)
		}

		blended := e.opts.W.Apply(v).Scale(e.opts.Lambda).Add(v.Scale(1 - e.opts.Lambda))
		next := e.chain.Apply(blended)

		delta := next.Sub(v).Norm()
		nextLyapunov := next.Dot(next)

		info.Iterations = t + 1
		info.FinalDelta = delta
		info.FinalDeltaV = nextLyapunov - lyapunov

		v = next
		lyapunov = nextLyapunov

		if e.opts.RecordHistory {
			info.History = append(info.History, HistoryEntry{
				Iteration: t + 1,
				Lyapunov:  nextLyapunov,
				Norm:      next.Norm(),
			})
		}

		if delta < e.opts.Epsilon {
			info.Converged = true
			break
		}
	}

	e.logger.Debug("fixpoint run finished",
		"converged", info.Converged,
		"iterations", info.Iterations,
		"final_delta", info.FinalDelta,
		"final_delta_v", info.FinalDeltaV)

	return v, info, nil
}
