package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a CUE configuration with zeroed kick magnitudes so
// derivations converge to the origin, optionally with a sqlite chain.
func writeConfig(t *testing.T, sqlitePath string) string {
	t.Helper()
	src := `
operators: double_kick: {alpha1: 0.0, alpha2: 0.0}
`
	if sqlitePath != "" {
		src += `
ledger: {
	backend: "sqlite"
	path:    "` + sqlitePath + `"
}
`
	}
	path := filepath.Join(t.TempDir(), "pipeline.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func deriveArgs(cfgPath string) []string {
	return []string{
		"--config", cfgPath,
		"derive", "MEF_SEED_42",
		"--id", "snap-000001",
		"--vector", "1.0,0.5,-0.3,0.8,-0.2",
		"--betti", "1.0", "--lambda-gap", "0.5", "--persistence", "0.3",
		"--por", "valid", "--phi", "0.92",
	}
}

func TestDeriveCommandCommits(t *testing.T) {
	out, err := execute(t, deriveArgs(writeConfig(t, ""))...)
	require.NoError(t, err)

	assert.Contains(t, out, "FIRE")
	assert.Contains(t, out, "block:      0")
	assert.Contains(t, out, "tic:")
}

func TestDeriveCommandHoldExitsNonZero(t *testing.T) {
	args := deriveArgs(writeConfig(t, ""))
	for i, a := range args {
		if a == "valid" {
			args[i] = "invalid"
		}
	}

	out, err := execute(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "PoR invalid")
}

func TestDeriveCommandJSON(t *testing.T) {
	args := append([]string{"--format", "json"}, deriveArgs(writeConfig(t, ""))...)
	out, err := execute(t, args...)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	decision, ok := data["decision"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, decision["commit"])
}

func TestDeriveCommandRejectsBadVector(t *testing.T) {
	_, err := execute(t,
		"derive", "seed",
		"--vector", "1,2,3",
		"--por", "valid", "--phi", "0.9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDeriveCommandReportsUnsetMetric(t *testing.T) {
	out, err := execute(t,
		"derive", "MEF_SEED_42",
		"--vector", "1.0,0.5,-0.3,0.8,-0.2",
		"--betti", "1.0", "--lambda-gap", "0.5",
		"--por", "valid", "--phi", "0.92")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "persistence", "the absent metric is named, not scored as 0")
}

func TestDeriveThenVerifyAndStats(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chain.db")
	cfgPath := writeConfig(t, dbPath)

	_, err := execute(t, deriveArgs(cfgPath)...)
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "chain verification OK (1 blocks from index 0)")

	out, err = execute(t, "--config", cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "blocks: 1")
	assert.Contains(t, out, "tail: 0")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeConfig(t, "")

	out, err := execute(t, "validate", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestValidateCommandRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`engine: lambda: 2.0`), 0644))

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "engine.lambda")
}

func TestVerifyEmptyChain(t *testing.T) {
	out, err := execute(t, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "chain verification OK (0 blocks from index 0)")
}
