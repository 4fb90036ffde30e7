package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tcslink/internal/memory"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionSQLite = "sqlite"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session selects the fact store backend. Default: memory.
	Session string `yaml:"session,omitempty"`

	// Goal is the goal in minikit bundles. Default: the engine default.
	Goal int `yaml:"goal,omitempty"`

	// GoalLabel replaces the word after the bundle count in the goal text.
	GoalLabel string `yaml:"goal_label,omitempty"`

	// Memory seeds the game image before the first tick.
	Memory []memory.Region `yaml:"memory,omitempty"`

	// Granted facts are delivered before the first tick.
	Granted []string `yaml:"granted,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Tick       int             `yaml:"tick,omitempty"`
	Grant      []string        `yaml:"grant,omitempty"`
	Confirm    []string        `yaml:"confirm,omitempty"`
	Poke       []memory.Region `yaml:"poke,omitempty"`
	Advance    time.Duration   `yaml:"advance,omitempty"`
	Queue      string          `yaml:"queue,omitempty"`
	Fail       string          `yaml:"fail,omitempty"`
	Heal       bool            `yaml:"heal,omitempty"`
	Disconnect bool            `yaml:"disconnect,omitempty"`
}

// kind names the single field set on s, or "" if the step sets none or
// several.
func (s Step) kind() string {
	var kinds []string
	if s.Tick != 0 {
		kinds = append(kinds, "tick")
	}
	if len(s.Grant) > 0 {
		kinds = append(kinds, "grant")
	}
	if len(s.Confirm) > 0 {
		kinds = append(kinds, "confirm")
	}
	if len(s.Poke) > 0 {
		kinds = append(kinds, "poke")
	}
	if s.Advance != 0 {
		kinds = append(kinds, "advance")
	}
	if s.Queue != "" {
		kinds = append(kinds, "queue")
	}
	if s.Fail != "" {
		kinds = append(kinds, "fail")
	}
	if s.Heal {
		kinds = append(kinds, "heal")
	}
	if s.Disconnect {
		kinds = append(kinds, "disconnect")
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type (see package documentation).
	Type string `yaml:"type"`

	// Checks are check names (reported, not_reported).
	Checks []string `yaml:"checks,omitempty"`

	// Chapters are chapter short names (unlocked).
	Chapters []string `yaml:"chapters,omitempty"`

	// Region is the expected memory content (memory).
	Region *memory.Region `yaml:"region,omitempty"`

	// Value is the expected connection state (connected).
	Value *bool `yaml:"value,omitempty"`

	// Code is a runtime error code (tick_error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertReported    = "reported"
	AssertNotReported = "not_reported"
	AssertUnlocked    = "unlocked"
	AssertMemory      = "memory"
	AssertConnected   = "connected"
	AssertTickError   = "tick_error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Names of facts and checks are resolved later, against the catalog.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Session {
	case "", SessionMemory, SessionSQLite:
	default:
		return fmt.Errorf("unknown session %q (valid: memory, sqlite)", s.Session)
	}
	if s.Goal < 0 {
		return fmt.Errorf("goal must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.kind() == "" {
			return fmt.Errorf("steps[%d]: exactly one action must be set", i)
		}
		if step.Tick < 0 {
			return fmt.Errorf("steps[%d]: tick count must be positive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReported:
		// An empty list asserts that nothing was reported.
	case AssertNotReported:
		if len(a.Checks) == 0 {
			return fmt.Errorf("assertions[%d]: checks list is required for not_reported", index)
		}
	case AssertUnlocked:
		if len(a.Chapters) == 0 {
			return fmt.Errorf("assertions[%d]: chapters list is required for unlocked", index)
		}
	case AssertMemory:
		if a.Region == nil {
			return fmt.Errorf("assertions[%d]: region is required for memory", index)
		}
	case AssertConnected:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for connected", index)
		}
	case AssertTickError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for tick_error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
