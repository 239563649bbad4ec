package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	tomlstate "github.com/bnema/wns-cli/internal/adapters/state/toml"
	"github.com/bnema/wns-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeRunFixture(t *testing.T, workDir string) {
	t.Helper()
	store, err := tomlstate.NewStore(filepath.Join(workDir, "state.toml"), "fixture-run")
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), domain.CheckpointRecord{
		Seq:       1,
		Stage:     domain.StageWrapper,
		Phase:     domain.PhaseIteration,
		Iteration: 4,
		Artifacts: map[string]string{},
		CreatedAt: time.Now().UTC(),
	}))
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dev")
}

func TestVerboseFlagAccepted(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "--verbose", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dev")
}

func TestRunRequiresInputFlags(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "run", "--run-id", "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s)")
}

func TestStatusUnknownRun(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home,
		"status", "--run-id", "missing", "--workdir", filepath.Join(home, "runs", "missing"))
	require.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestStatusRendersRunProgress(t *testing.T) {
	home := t.TempDir()
	workDir := filepath.Join(home, "runs", "fixture-run")
	writeRunFixture(t, workDir)

	stdout, _, err := executeCLI(t, home,
		"status", "--run-id", "fixture-run", "--workdir", workDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "run: fixture-run")
	assert.Contains(t, stdout, "iteration: 4")
}

func TestStatusJSONOutput(t *testing.T) {
	home := t.TempDir()
	workDir := filepath.Join(home, "runs", "fixture-run")
	writeRunFixture(t, workDir)

	stdout, _, err := executeCLI(t, home,
		"status", "--run-id", "fixture-run", "--workdir", workDir, "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"run_id\": \"fixture-run\"")
	assert.Contains(t, stdout, "\"iteration\": 4")
}

func TestResetRequiresForce(t *testing.T) {
	home := t.TempDir()
	workDir := filepath.Join(home, "runs", "fixture-run")
	writeRunFixture(t, workDir)

	_, _, err := executeCLI(t, home,
		"reset", "--run-id", "fixture-run", "--workdir", workDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestResetDiscardsRecords(t *testing.T) {
	home := t.TempDir()
	workDir := filepath.Join(home, "runs", "fixture-run")
	writeRunFixture(t, workDir)

	stdout, _, err := executeCLI(t, home,
		"reset", "--run-id", "fixture-run", "--workdir", workDir, "--force")
	require.NoError(t, err)
	assert.Contains(t, stdout, "reset")

	_, _, err = executeCLI(t, home,
		"status", "--run-id", "fixture-run", "--workdir", workDir)
	require.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestParseVec(t *testing.T) {
	vec, err := parseVec("1.5, -2, 3")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, vec.X, 1e-12)
	assert.InDelta(t, -2.0, vec.Y, 1e-12)
	assert.InDelta(t, 3.0, vec.Z, 1e-12)

	_, err = parseVec("1,2")
	require.Error(t, err)

	_, err = parseVec("a,b,c")
	require.Error(t, err)
}
