package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mef-lab/coagula/internal/operator"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.8, cfg.Engine.Lambda)
	assert.Equal(t, 1e-6, cfg.Engine.Epsilon)
	assert.Equal(t, 1000, cfg.Engine.MaxIterations)
	assert.Equal(t, BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, 0.01, cfg.Gate.EpsilonPi)
	assert.Equal(t, 0.85, cfg.Gate.PhiStar)
}

func TestCompileEmptyKeepsDefaults(t *testing.T) {
	cfg, err := CompileString(`{}`)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestCompileOverrides(t *testing.T) {
	cfg, err := CompileString(`
engine: {
	lambda:         0.9
	epsilon:        1e-8
	max_iterations: 500
	record_history: true
}
gate: {
	epsilon_pi: 0.02
	phi_star:   0.75
}
operators: {
	double_kick: {alpha1: 0.01, alpha2: 0.015}
	sweep: {period: 50, schedule: "linear"}
	weight_transfer: {gamma: 0.2}
}
validity_window: "1h"
`)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Engine.Lambda)
	assert.Equal(t, 1e-8, cfg.Engine.Epsilon)
	assert.Equal(t, 500, cfg.Engine.MaxIterations)
	assert.True(t, cfg.Engine.RecordHistory)
	assert.Equal(t, 0.02, cfg.Gate.EpsilonPi)
	assert.Equal(t, 0.75, cfg.Gate.PhiStar)
	assert.Equal(t, 0.01, cfg.Operators.DoubleKick.Alpha1)
	assert.Equal(t, 50, cfg.Operators.Sweep.Period)
	assert.Equal(t, operator.ScheduleLinear, cfg.Operators.Sweep.Schedule)
	assert.Equal(t, 0.2, cfg.Operators.WeightTransfer.Gamma)
	assert.Equal(t, time.Hour, cfg.ValidityWindow)

	// Untouched fields keep their defaults.
	assert.Equal(t, operator.DefaultParams().Sweep.Beta, cfg.Operators.Sweep.Beta)
	assert.Equal(t, operator.DefaultParams().PathInvariance.Tol, cfg.Operators.PathInvariance.Tol)
}

func TestCompileRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"lambda out of range", `engine: lambda: 1.5`, "engine.lambda"},
		{"zero epsilon", `engine: epsilon: 0.0`, "engine.epsilon"},
		{"zero iterations", `engine: max_iterations: 0`, "engine.max_iterations"},
		{"phi star above one", `gate: phi_star: 1.5`, "gate.phi_star"},
		{"unknown schedule", `operators: sweep: schedule: "stepwise"`, "operators.sweep.schedule"},
		{"unknown backend", `ledger: backend: "postgres"`, "ledger.backend"},
		{"sqlite without path", `ledger: backend: "sqlite"`, "ledger.path"},
		{"bad window", `validity_window: "soon"`, "validity_window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src)
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileRejectsWrongType(t *testing.T) {
	_, err := CompileString(`engine: lambda: "high"`)
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.cue")
	src := `
engine: lambda: 0.7
ledger: {
	backend: "sqlite"
	path:    "/tmp/chain.db"
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, cfg.Engine.Lambda)
	assert.Equal(t, BackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "/tmp/chain.db", cfg.Ledger.Path)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.cue"))
	assert.Error(t, err)
}

func TestEngineOptions(t *testing.T) {
	opts := Default().EngineOptions()
	assert.Equal(t, 0.8, opts.Lambda)
	assert.Equal(t, 1000, opts.MaxIter)
	assert.NotZero(t, opts.W, "linear map is the default mix")
}
