// Package config provides configuration loading for tcslink.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tcslink/internal/logging"
)

// EnvFile names the environment variable holding a config file path.
const EnvFile = "TCSLINK_CONFIG"

// Config contains all tcslink settings. Each field can be overridden by the
// TCSLINK_* variable named in its env tag.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Messages MessagesConfig `yaml:"messages"`
	Session  SessionConfig  `yaml:"session"`
	Game     GameConfig     `yaml:"game"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EngineConfig configures the poll loop.
type EngineConfig struct {
	// PollInterval is the time between ticks.
	PollInterval time.Duration `yaml:"poll_interval" env:"TCSLINK_POLL_INTERVAL"`

	// GoalBundles is the number of 5-minikit bundles the goal requires.
	GoalBundles int `yaml:"goal_bundles" env:"TCSLINK_GOAL_BUNDLES"`

	// Strict panics on unlock-graph inconsistencies instead of logging.
	Strict bool `yaml:"strict" env:"TCSLINK_STRICT"`
}

// MessagesConfig configures in-game notifications.
type MessagesConfig struct {
	Delay    time.Duration `yaml:"delay" env:"TCSLINK_MESSAGE_DELAY"`
	Duration time.Duration `yaml:"duration" env:"TCSLINK_MESSAGE_DURATION"`

	// Items shows "Received ..." for every delivery.
	Items bool `yaml:"items" env:"TCSLINK_ITEM_MESSAGES"`

	// Checks shows "Found ..." for every reported check.
	Checks bool `yaml:"checks" env:"TCSLINK_CHECK_MESSAGES"`

	// GoalLabel follows the minikit counter in the goal text. It is folded
	// to what the character-name font can draw.
	GoalLabel string `yaml:"goal_label" env:"TCSLINK_GOAL_LABEL"`
}

// SessionConfig locates the local session database.
type SessionConfig struct {
	Database string `yaml:"database" env:"TCSLINK_DB"`
}

// GameConfig locates the game side.
type GameConfig struct {
	// Image is a memory snapshot standing in for the game process.
	Image string `yaml:"image" env:"TCSLINK_IMAGE"`

	// Catalog optionally replaces the embedded catalog.
	Catalog string `yaml:"catalog,omitempty" env:"TCSLINK_CATALOG"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `yaml:"level" env:"TCSLINK_LOG_LEVEL"`
}

// Default returns a Config with the engine's defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			PollInterval: 200 * time.Millisecond,
			GoalBundles:  54,
		},
		Messages: MessagesConfig{
			Delay:     2 * time.Second,
			Duration:  4 * time.Second,
			Items:     true,
			GoalLabel: "GOAL",
		},
		Session: SessionConfig{
			Database: "tcslink.db",
		},
		Game: GameConfig{
			Image: "game.yaml",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load resolves configuration.
// Order: defaults -> path (or $TCSLINK_CONFIG) -> environment variables.
// An empty path with no TCSLINK_CONFIG skips the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvFile)
	}

	config := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file over the
// defaults. Keys absent from the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.Engine.PollInterval)
	}
	if c.Engine.GoalBundles <= 0 {
		return fmt.Errorf("goal_bundles must be positive, got %d", c.Engine.GoalBundles)
	}
	if c.Messages.Delay <= 0 {
		return fmt.Errorf("messages.delay must be positive, got %v", c.Messages.Delay)
	}
	if c.Messages.Duration <= 0 {
		return fmt.Errorf("messages.duration must be positive, got %v", c.Messages.Duration)
	}
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, warn, error, or empty for default)", c.Logging.Level)
	}
	return nil
}
