package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/reconnect_after_loss.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_UnknownNames(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "granted fact",
			yaml: `
name: bad
description: unknown fact
granted: ["Jar Jar Abrams"]
steps: [{tick: 1}]
assertions: [{type: reported}]
`,
			want: `unknown fact "Jar Jar Abrams"`,
		},
		{
			name: "confirmed check",
			yaml: `
name: bad
description: unknown check
steps:
  - confirm: ["1-1 Minikit 11"]
assertions: [{type: reported}]
`,
			want: `unknown check "1-1 Minikit 11"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := ParseScenario([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = Run(scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failing
description: every assertion misses
steps:
  - tick: 1
assertions:
  - type: reported
    checks: ["1-1 Completion"]
  - type: unlocked
    chapters: ["1-2"]
  - type: connected
    value: false
  - type: tick_error
    code: CONNECTION_LOST
  - type: memory
    region: {address: 0x86E0F4, hex: "03"}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected reported [1-1 Completion], got []")
	assert.Contains(t, result.Errors[1], "chapter 1-2 never unlocked")
	assert.Contains(t, result.Errors[2], "expected connected=false, got true")
	assert.Contains(t, result.Errors[3], "no tick failed with CONNECTION_LOST")
	assert.Contains(t, result.Errors[4], "expected 03, got 01")

	summary := result.Summary("failing")
	assert.True(t, strings.HasPrefix(summary, "FAIL failing (1 ticks)\n"))
}

func TestRun_ConfirmedElsewhereIsNotReported(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: confirmed_elsewhere
description: a purchase another client already reported stays quiet
memory:
  - address: 0x86E4A8
    hex: "01"
steps:
  - confirm: ["Purchase Boba Fett"]
  - tick: 2
assertions:
  - type: reported
  - type: not_reported
    checks: ["Purchase Boba Fett"]
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Empty(t, result.Trace[0].Revealed)
}

func TestRun_DisconnectAndQueue(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: disconnect
description: an explicit disconnect drops the connection until the next tick
steps:
  - tick: 1
  - queue: "hello"
  - advance: 5s
  - disconnect: true
assertions:
  - type: connected
    value: false
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion errors: %v", result.Errors)
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{tick: 1}]\nassertions: [{type: reported}]\n",
			want: "name is required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nflow_token: x\nsteps: [{tick: 1}]\nassertions: [{type: reported}]\n",
			want: "failed to parse YAML",
		},
		{
			name: "two actions in one step",
			yaml: "name: n\ndescription: d\nsteps: [{tick: 1, heal: true}]\nassertions: [{type: reported}]\n",
			want: "steps[0]: exactly one action must be set",
		},
		{
			name: "bad session",
			yaml: "name: n\ndescription: d\nsession: redis\nsteps: [{tick: 1}]\nassertions: [{type: reported}]\n",
			want: `unknown session "redis"`,
		},
		{
			name: "connected without value",
			yaml: "name: n\ndescription: d\nsteps: [{tick: 1}]\nassertions: [{type: connected}]\n",
			want: "value is required for connected",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nsteps: [{tick: 1}]\nassertions: [{type: trace_contains}]\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\nsteps: [{tick: 1}]\n",
			want: "assertions list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "s",
		Trace:        []TraceEvent{{Seq: 1, Conn: "conn-1", Error: "CONNECTION_LOST"}},
	}
	out, err := snap.Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario_name": "s",
  "trace": [
    {
      "seq": 1,
      "conn": "conn-1",
      "error": "CONNECTION_LOST"
    }
  ]
}
`, string(out))
}
