// Package config loads the host's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/modforge/scripthost/security"
)

// Config is the top-level host configuration.
type Config struct {
	Mods    ModsConfig    `toml:"mods"`
	Limits  LimitsConfig  `toml:"limits"`
	Copilot CopilotConfig `toml:"copilot"`
	Logging LoggingConfig `toml:"logging"`
}

// ModsConfig controls mod discovery and loading.
type ModsConfig struct {
	// Paths are the mod search directories.
	Paths []string `toml:"paths"`

	// DataRoot holds per-mod sandboxed file roots.
	DataRoot string `toml:"data_root"`

	// AutoEnable enables mods right after loading.
	AutoEnable bool `toml:"auto_enable"`

	// HotReload reloads mods when their sources change.
	HotReload bool `toml:"hot_reload"`

	// FileOpsPerSecond throttles each mod's file operations.
	FileOpsPerSecond int `toml:"file_ops_per_second"`

	// Approved maps mod names to operator-approved capability names.
	Approved map[string][]string `toml:"approved"`
}

// LimitsConfig overrides the untrusted sandbox ceilings. Zero values keep
// the defaults.
type LimitsConfig struct {
	InstructionLimit uint64        `toml:"instruction_limit"`
	MemoryLimitBytes uint64        `toml:"memory_limit_bytes"`
	Timeout          time.Duration `toml:"timeout"`
	MaxStackDepth    int           `toml:"max_stack_depth"`
}

// CopilotConfig selects and configures the script generator.
type CopilotConfig struct {
	// Provider is "anthropic", "openai", "gemini" or empty to disable.
	Provider string `toml:"provider"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	Model       string  `toml:"model"`
	MaxAttempts int     `toml:"max_attempts"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Mods: ModsConfig{
			Paths:            []string{"mods"},
			DataRoot:         "moddata",
			AutoEnable:       true,
			FileOpsPerSecond: 100,
		},
		Copilot: CopilotConfig{
			APIKeyEnv: "SCRIPTHOST_API_KEY",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file. A missing file is not an error; the
// defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	switch c.Copilot.Provider {
	case "", "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("config: unknown copilot provider %q", c.Copilot.Provider)
	}

	for mod, caps := range c.Mods.Approved {
		for _, name := range caps {
			if _, ok := security.ParseCapability(name); !ok {
				return fmt.Errorf("config: unknown capability %q approved for mod %q", name, mod)
			}
		}
	}
	return nil
}
