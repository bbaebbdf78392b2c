package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRouteCommandText(t *testing.T) {
	out, err := execute(t, "route", "MEF_SEED_42",
		"--betti", "1.0", "--lambda-gap", "0.5", "--persistence", "0.3")
	require.NoError(t, err)

	assert.Contains(t, out, "route ")
	assert.Contains(t, out, "sigma:")
	assert.Contains(t, out, "mesh score: 0.510000")
}

func TestRouteCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "route", "MEF_SEED_42",
		"--betti", "1.0", "--lambda-gap", "0.5", "--persistence", "0.3")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["route_id"])
	assert.Len(t, data["sigma"], 7)
}

func TestRouteCommandDeterministic(t *testing.T) {
	args := []string{"route", "seed-x", "--betti", "2", "--lambda-gap", "0.8", "--persistence", "0.1"}

	a, err := execute(t, args...)
	require.NoError(t, err)
	b, err := execute(t, args...)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRouteCommandReportsUnsetMetric(t *testing.T) {
	out, err := execute(t, "route", "seed-x", "--betti", "1.0", "--lambda-gap", "0.5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "persistence")
}

func TestRouteCommandRequiresSeed(t *testing.T) {
	_, err := execute(t, "route")
	assert.Error(t, err)
}
