// Package pipeline wires the full derivation path: route selection,
// fixpoint solving, gate evaluation and - on FIRE - crystallization and
// the ledger append. It owns the side-effect ordering; every stage below
// it is pure or storage-local.
package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mef-lab/coagula/internal/canon"
	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/gate"
	"github.com/mef-lab/coagula/internal/route"
)

// Snapshot is the derivation input: the seed and initial coordinates of
// one convergence run plus the topology metrics the route selector
// scores.
type Snapshot struct {
	// ID names the snapshot. Assigned by the deriver when empty.
	ID string `json:"id"`

	// Seed is the derivation seed. Identical seeds with identical
	// metrics always select the identical route.
	Seed string `json:"seed"`

	// Vector is the initial coordinate state.
	Vector coord.Vector `json:"vector"`

	// Metrics are the mesh topology metrics (betti, lambda_gap,
	// persistence).
	Metrics route.MeshMetrics `json:"metrics"`
}

// Validate rejects snapshots the pipeline cannot derive from.
func (s Snapshot) Validate() error {
	if s.Seed == "" {
		return fmt.Errorf("snapshot seed is required")
	}
	if !s.Vector.IsFinite() {
		return fmt.Errorf("snapshot vector has non-finite components")
	}
	return nil
}

// Hash is the canonical content hash of the snapshot. It binds the
// committed block to the exact derivation input.
func (s Snapshot) Hash() string {
	enc := canon.NewEncoder().
		String("id", s.ID).
		String("seed", s.Seed).
		Reals("vector", s.Vector.Slice())
	for _, name := range []string{route.MetricBetti, route.MetricLambdaGap, route.MetricPersistence} {
		if v, ok := s.Metrics[name]; ok {
			enc.RealField(name, v)
		}
	}
	return canon.HashWithDomain(canon.DomainSnapshot, enc.Bytes())
}

// Attestation carries the external resonance oracle's verdict for one
// derivation. The pipeline does not compute these; it judges them.
type Attestation struct {
	// PoR is the proof-of-resonance classification.
	PoR gate.Validity `json:"por"`

	// Phi is the reported phase coherence, in [0,1].
	Phi float64 `json:"phi"`
}

// IDGenerator supplies snapshot ids when the caller did not. Production
// uses UUIDv7 so ids sort by creation time; tests inject a sequence.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates UUIDv7 snapshot ids.
type UUIDGenerator struct{}

// NewID returns a new UUIDv7 string.
func (UUIDGenerator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
