// Package harness runs YAML-defined derivation scenarios end to end:
// configuration, snapshot and attestation in, gate decision and chain
// state out. Scenarios double as executable documentation of the
// commit criteria.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mef-lab/coagula/internal/gate"
)

// Scenario defines one derivation conformance case.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is optional CUE source overriding the default pipeline
	// configuration.
	Config string `yaml:"config,omitempty"`

	// Snapshot is the derivation input.
	Snapshot SnapshotSpec `yaml:"snapshot"`

	// Attestation is the external oracle verdict fed to the gate.
	Attestation AttestationSpec `yaml:"attestation"`

	// Expect states the required outcome.
	Expect ExpectClause `yaml:"expect"`
}

// SnapshotSpec is the YAML shape of a derivation snapshot.
type SnapshotSpec struct {
	// ID is optional; the runner assigns a deterministic one if empty.
	ID string `yaml:"id,omitempty"`

	// Seed is the derivation seed.
	Seed string `yaml:"seed"`

	// Vector is the initial coordinate state, exactly five components.
	Vector []float64 `yaml:"vector"`

	// Metrics are the mesh topology metrics.
	Metrics map[string]float64 `yaml:"metrics"`
}

// AttestationSpec is the YAML shape of the oracle verdict.
type AttestationSpec struct {
	// PoR is "valid" or "invalid".
	PoR string `yaml:"por"`

	// Phi is the reported phase coherence.
	Phi float64 `yaml:"phi"`
}

// ExpectClause states the required derivation outcome.
type ExpectClause struct {
	// Commit is the required gate verdict.
	Commit bool `yaml:"commit"`

	// ReasonContains lists substrings the decision reason must carry.
	ReasonContains []string `yaml:"reason_contains,omitempty"`

	// Converged, when set, is the required convergence flag.
	Converged *bool `yaml:"converged,omitempty"`

	// MaxIterations, when positive, bounds the run length.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// BlockIndex, when set, is the required index of the appended block.
	BlockIndex *int64 `yaml:"block_index,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo fails loudly instead of silently passing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Snapshot.Seed == "" {
		return fmt.Errorf("snapshot.seed is required")
	}
	if len(s.Snapshot.Vector) != 5 {
		return fmt.Errorf("snapshot.vector needs exactly 5 components, got %d", len(s.Snapshot.Vector))
	}
	if len(s.Snapshot.Metrics) == 0 {
		return fmt.Errorf("snapshot.metrics is required")
	}
	switch gate.Validity(s.Attestation.PoR) {
	case gate.PoRValid, gate.PoRInvalid:
	default:
		return fmt.Errorf("attestation.por must be %q or %q, got %q",
			gate.PoRValid, gate.PoRInvalid, s.Attestation.PoR)
	}
	if s.Attestation.Phi < 0 || s.Attestation.Phi > 1 {
		return fmt.Errorf("attestation.phi %v outside [0,1]", s.Attestation.Phi)
	}
	return nil
}
