package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 200*time.Millisecond, c.Engine.PollInterval)
	assert.Equal(t, 54, c.Engine.GoalBundles)
	assert.Equal(t, 2*time.Second, c.Messages.Delay)
	assert.Equal(t, 4*time.Second, c.Messages.Duration)
	assert.True(t, c.Messages.Items)
	assert.False(t, c.Messages.Checks)
	assert.Equal(t, "GOAL", c.Messages.GoalLabel)
	assert.Equal(t, "info", c.Logging.Level)
	assert.NoError(t, c.Validate())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tcslink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile_KeepsUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  poll_interval: 50ms
  goal_bundles: 20
messages:
  items: false
session:
  database: /tmp/run.db
`)
	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, c.Engine.PollInterval)
	assert.Equal(t, 20, c.Engine.GoalBundles)
	assert.False(t, c.Messages.Items)
	assert.False(t, c.Messages.Checks)
	assert.Equal(t, 4*time.Second, c.Messages.Duration)
	assert.Equal(t, "/tmp/run.db", c.Session.Database)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFromFile(writeConfig(t, "engine: [not, a, map]"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "engine:\n  goal_bundles: 10\n")
	t.Setenv(EnvFile, path)
	t.Setenv("TCSLINK_POLL_INTERVAL", "1s")
	t.Setenv("TCSLINK_CHECK_MESSAGES", "true")
	t.Setenv("TCSLINK_STRICT", "1")
	t.Setenv("TCSLINK_GOAL_LABEL", "Objectif")
	t.Setenv("TCSLINK_DB", "env.db")
	t.Setenv("TCSLINK_IMAGE", "env.yaml")
	t.Setenv("TCSLINK_LOG_LEVEL", "debug")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, c.Engine.GoalBundles)
	assert.Equal(t, time.Second, c.Engine.PollInterval)
	assert.True(t, c.Engine.Strict)
	assert.True(t, c.Messages.Checks)
	assert.Equal(t, "Objectif", c.Messages.GoalLabel)
	assert.Equal(t, "env.db", c.Session.Database)
	assert.Equal(t, "env.yaml", c.Game.Image)
	assert.Equal(t, "debug", c.Logging.Level)

	// Unset variables leave file and default values alone.
	assert.Equal(t, 2*time.Second, c.Messages.Delay)
	assert.True(t, c.Messages.Items)
}

func TestLoad_BadEnvValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"int", "TCSLINK_GOAL_BUNDLES", "lots", "GoalBundles"},
		{"duration", "TCSLINK_POLL_INTERVAL", "soon", "PollInterval"},
		{"bool", "TCSLINK_ITEM_MESSAGES", "maybe", "Items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
			assert.ErrorContains(t, err, "environment overrides")
			assert.ErrorContains(t, err, tt.field)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"zero poll", func(c *Config) { c.Engine.PollInterval = 0 }, "poll_interval"},
		{"negative goal", func(c *Config) { c.Engine.GoalBundles = -1 }, "goal_bundles"},
		{"zero delay", func(c *Config) { c.Messages.Delay = 0 }, "messages.delay"},
		{"zero duration", func(c *Config) { c.Messages.Duration = 0 }, "messages.duration"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.errSub)
		})
	}
}
