package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInfersKinds(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tcslink.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("engine:\n  poll_interval: 100ms\n"), 0o644))
	image := writeImage(t, dir)
	scenario := filepath.Join(harnessScenarios, "free_play_completion.yaml")

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testRoot("json"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{cfgPath, image, scenario})
	require.NoError(t, cmd.Execute(), buf.String())

	var result ValidationResult
	decodeData(t, buf.Bytes(), &result)
	assert.True(t, result.Valid)
	require.Len(t, result.Files, 3)
	assert.Equal(t, KindConfig, result.Files[0].Kind)
	assert.Equal(t, KindImage, result.Files[1].Kind)
	assert.Equal(t, KindScenario, result.Files[2].Kind)
}

func TestValidateInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tcslink.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("engine:\n  goal_bundles: 0\n"), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testRoot("text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{cfgPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "goal_bundles must be positive")
	assert.Contains(t, buf.String(), "✗ Validation failed")
}

func TestValidateCatalog(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "custom.cue")
	require.NoError(t, os.WriteFile(bad, []byte("chapters: [{short: 1}]\n"), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testRoot("text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{bad})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ "+bad+" (catalog)")
}

func TestValidateExplicitKind(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testRoot("text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--kind", "scenario", image})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "(scenario)")
	assert.Contains(t, buf.String(), "field regions not found")
}

func TestValidateUnknownKind(t *testing.T) {
	cmd := NewValidateCommand(testRoot("text"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--kind", "save", "x.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateNonExistentFile(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(testRoot("text"))
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/tcslink.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, buf.String(), "not found")
}
