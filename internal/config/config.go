// Package config defines the derivation pipeline configuration and its
// CUE loader. Configuration is compiled through the CUE SDK's Go API so
// field errors carry source positions.
package config

import (
	"fmt"
	"time"

	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/gate"
	"github.com/mef-lab/coagula/internal/operator"
	"github.com/mef-lab/coagula/internal/solve"
)

// Ledger backend names accepted in configuration.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// EngineConfig configures the fixpoint engine.
type EngineConfig struct {
	// Lambda is the linear blend factor, in (0,1].
	Lambda float64 `json:"lambda"`

	// Epsilon is the convergence threshold.
	Epsilon float64 `json:"epsilon"`

	// MaxIterations bounds a derivation run.
	MaxIterations int `json:"max_iterations"`

	// RecordHistory retains the per-step convergence trace.
	RecordHistory bool `json:"record_history"`
}

// LedgerConfig selects and locates the chain backend.
type LedgerConfig struct {
	// Backend is one of memory, sqlite, badger.
	Backend string `json:"backend"`

	// Path locates the database. Required for sqlite and badger.
	Path string `json:"path"`
}

// Config is the full pipeline configuration.
type Config struct {
	Engine         EngineConfig    `json:"engine"`
	Gate           gate.Thresholds `json:"gate"`
	Operators      operator.Params `json:"operators"`
	Ledger         LedgerConfig    `json:"ledger"`
	ValidityWindow time.Duration   `json:"validity_window"`
}

// Default returns the documented default configuration: an in-memory
// chain, the default operator parameter set, and the standard engine and
// gate constants.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Lambda:        0.8,
			Epsilon:       1e-6,
			MaxIterations: 1000,
		},
		Gate:           gate.DefaultThresholds(),
		Operators:      operator.DefaultParams(),
		Ledger:         LedgerConfig{Backend: BackendMemory},
		ValidityWindow: 0, // crystallizer default applies
	}
}

// Validate checks the configuration against the engine's and gate's
// admissible ranges. Engine construction re-verifies contraction; this
// catches configuration mistakes before any backend is opened.
func (c Config) Validate() error {
	if c.Engine.Lambda <= 0 || c.Engine.Lambda > 1 {
		return &CompileError{Field: "engine.lambda",
			Message: fmt.Sprintf("%v outside (0,1]", c.Engine.Lambda)}
	}
	if c.Engine.Epsilon <= 0 {
		return &CompileError{Field: "engine.epsilon",
			Message: fmt.Sprintf("%v must be positive", c.Engine.Epsilon)}
	}
	if c.Engine.MaxIterations < 1 {
		return &CompileError{Field: "engine.max_iterations",
			Message: fmt.Sprintf("%d must be at least 1", c.Engine.MaxIterations)}
	}
	if c.Gate.EpsilonPi < 0 {
		return &CompileError{Field: "gate.epsilon_pi",
			Message: fmt.Sprintf("%v must be non-negative", c.Gate.EpsilonPi)}
	}
	if c.Gate.PhiStar < 0 || c.Gate.PhiStar > 1 {
		return &CompileError{Field: "gate.phi_star",
			Message: fmt.Sprintf("%v outside [0,1]", c.Gate.PhiStar)}
	}
	switch c.Operators.Sweep.Schedule {
	case operator.ScheduleCosine, operator.ScheduleLinear, "":
	default:
		return &CompileError{Field: "operators.sweep.schedule",
			Message: fmt.Sprintf("unknown schedule %q", c.Operators.Sweep.Schedule)}
	}
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendSQLite, BackendBadger:
		if c.Ledger.Path == "" {
			return &CompileError{Field: "ledger.path",
				Message: fmt.Sprintf("required for the %s backend", c.Ledger.Backend)}
		}
	default:
		return &CompileError{Field: "ledger.backend",
			Message: fmt.Sprintf("unknown backend %q", c.Ledger.Backend)}
	}
	if c.ValidityWindow < 0 {
		return &CompileError{Field: "validity_window",
			Message: fmt.Sprintf("%v must be non-negative", c.ValidityWindow)}
	}
	return nil
}

// EngineOptions builds the solve options for this configuration. The
// linear map is the fixed default mix; the contraction proof in the
// engine assumes it.
func (c Config) EngineOptions() solve.Options {
	return solve.Options{
		Lambda:        c.Engine.Lambda,
		Epsilon:       c.Engine.Epsilon,
		MaxIter:       c.Engine.MaxIterations,
		W:             coord.DefaultMix(),
		RecordHistory: c.Engine.RecordHistory,
	}
}
