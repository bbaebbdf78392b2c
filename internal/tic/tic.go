// Package tic implements the crystallizer: on a gate FIRE it derives the
// immutable, content-addressed TIC record from the converged fixpoint.
//
// The tic id is a pure function of (fixpoint, seed, snapshot id), so
// re-deriving from identical inputs yields the identical id. That makes
// derivation idempotent at the record level and lets independent verifiers
// confirm a commit without trusting the committer.
package tic

import (
	"time"

	"github.com/mef-lab/coagula/internal/canon"
	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/solve"
)

// DefaultValidityWindow bounds how long a crystal is presented as current
// before re-derivation is expected.
const DefaultValidityWindow = 24 * time.Hour

// Invariants are the scalar summaries frozen into a TIC.
type Invariants struct {
	// Variance of the fixpoint components.
	Variance float64 `json:"variance"`

	// Norm of the fixpoint.
	Norm float64 `json:"norm"`

	// Energy is the final Lyapunov value (squared norm) at convergence.
	Energy float64 `json:"energy"`

	// Iterations the engine ran to reach the fixpoint.
	Iterations int `json:"iterations"`

	// FinalDelta is the terminal step delta.
	FinalDelta float64 `json:"final_delta"`
}

// TIC is the immutable crystal record persisted by the ledger.
type TIC struct {
	// TICID is the content hash of (fixpoint, seed, snapshot id).
	TICID string `json:"tic_id"`

	// SnapshotID names the originating snapshot.
	SnapshotID string `json:"snapshot_id"`

	// Seed is the derivation seed.
	Seed string `json:"seed"`

	// Fixpoint is the converged coordinate vector.
	Fixpoint []float64 `json:"fixpoint"`

	// Invariants summarize the fixpoint and its derivation.
	Invariants Invariants `json:"invariants"`

	// Signature is the derived 3-component spectral signature.
	Signature [3]float64 `json:"signature"`

	// ValidFrom/ValidUntil bound the validity window.
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`

	// Proof is the commitment hash binding the id to its derivation
	// statistics.
	Proof string `json:"proof"`
}

// ID computes the content-addressed tic id for the given derivation
// inputs. Exposed separately from Crystallize so callers can check for an
// existing crystal before committing.
func ID(fixpoint coord.Vector, seed, snapshotID string) string {
	return canon.HashWithDomain(canon.DomainTIC, canon.NewEncoder().
		Reals("fixpoint", fixpoint.Slice()).
		String("seed", seed).
		String("snapshot_id", snapshotID).
		Bytes())
}

// Digest computes the canonical content hash of the full record, every
// field included. The ledger binds it into each block hash, so mutating
// any persisted crystal field - including ones outside the tic id
// preimage, like the validity window - breaks chain verification.
func (t TIC) Digest() string {
	return canon.HashWithDomain(canon.DomainCrystal, canon.NewEncoder().
		String("tic_id", t.TICID).
		String("snapshot_id", t.SnapshotID).
		String("seed", t.Seed).
		Reals("fixpoint", t.Fixpoint).
		RealField("variance", t.Invariants.Variance).
		RealField("norm", t.Invariants.Norm).
		RealField("energy", t.Invariants.Energy).
		Int("iterations", int64(t.Invariants.Iterations)).
		RealField("final_delta", t.Invariants.FinalDelta).
		Reals("signature", t.Signature[:]).
		Int("valid_from", t.ValidFrom.UnixNano()).
		Int("valid_until", t.ValidUntil.UnixNano()).
		String("proof", t.Proof).
		Bytes())
}

// Verify reports whether the record is internally consistent: the id,
// invariants, signature and proof all match a recomputation from the
// carried fixpoint and derivation statistics, and the validity window is
// ordered.
func (t TIC) Verify() bool {
	fix, ok := coord.FromSlice(t.Fixpoint)
	if !ok {
		return false
	}
	if ID(fix, t.Seed, t.SnapshotID) != t.TICID {
		return false
	}
	norm := fix.Norm()
	if t.Invariants.Variance != fix.Variance() || t.Invariants.Norm != norm || t.Invariants.Energy != norm*norm {
		return false
	}
	if t.Signature != deriveSignature(fix) {
		return false
	}
	if t.Proof != computeProof(t.TICID, t.Invariants.Iterations, t.Invariants.FinalDelta) {
		return false
	}
	return t.ValidUntil.After(t.ValidFrom)
}

// Crystallize derives the TIC record for a converged fixpoint. Invoked
// only after a gate FIRE. The validity window opens at now; window <= 0
// uses DefaultValidityWindow.
func Crystallize(
	fixpoint coord.Vector,
	seed, snapshotID string,
	info solve.ConvergenceInfo,
	now time.Time,
	window time.Duration,
) TIC {
	if window <= 0 {
		window = DefaultValidityWindow
	}

	id := ID(fixpoint, seed, snapshotID)
	norm := fixpoint.Norm()

	return TIC{
		TICID:      id,
		SnapshotID: snapshotID,
		Seed:       seed,
		Fixpoint:   fixpoint.Slice(),
		Invariants: Invariants{
			Variance:   fixpoint.Variance(),
			Norm:       norm,
			Energy:     norm * norm,
			Iterations: info.Iterations,
			FinalDelta: info.FinalDelta,
		},
		Signature:  deriveSignature(fixpoint),
		ValidFrom:  now,
		ValidUntil: now.Add(window),
		Proof:      computeProof(id, info.Iterations, info.FinalDelta),
	}
}

// computeProof derives the commitment hash binding a tic id to its
// derivation statistics.
func computeProof(id string, iterations int, finalDelta float64) string {
	return canon.HashWithDomain(canon.DomainProof, canon.NewEncoder().
		String("tic_id", id).
		Int("iterations", int64(iterations)).
		RealField("final_delta", finalDelta).
		Bytes())
}

// deriveSignature condenses the fixpoint into the 3-component signature
// shape used by the upstream embedding: mean, spread, magnitude.
func deriveSignature(v coord.Vector) [3]float64 {
	return [3]float64{v.Mean(), v.Variance(), v.Norm()}
}
