package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scripthost.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if len(cfg.Mods.Paths) != 1 || cfg.Mods.Paths[0] != def.Mods.Paths[0] {
		t.Errorf("Mods.Paths = %v", cfg.Mods.Paths)
	}
	if !cfg.Mods.AutoEnable || cfg.Logging.Level != "info" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[mods]
paths = ["/srv/game/mods", "mods"]
data_root = "/srv/game/moddata"
auto_enable = false
hot_reload = true
file_ops_per_second = 20

[mods.approved]
"map-editor" = ["config.write", "filesystem"]

[limits]
instruction_limit = 5000000
memory_limit_bytes = 33554432
timeout = 2000000000
max_stack_depth = 128

[copilot]
provider = "anthropic"
api_key_env = "MY_KEY"
max_attempts = 5

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Mods.Paths) != 2 || cfg.Mods.AutoEnable {
		t.Errorf("Mods = %+v", cfg.Mods)
	}
	if !cfg.Mods.HotReload || cfg.Mods.FileOpsPerSecond != 20 {
		t.Errorf("Mods = %+v", cfg.Mods)
	}
	if got := cfg.Mods.Approved["map-editor"]; len(got) != 2 {
		t.Errorf("Approved = %v", cfg.Mods.Approved)
	}
	if cfg.Limits.InstructionLimit != 5_000_000 || cfg.Limits.Timeout != 2*time.Second {
		t.Errorf("Limits = %+v", cfg.Limits)
	}
	if cfg.Copilot.Provider != "anthropic" || cfg.Copilot.MaxAttempts != 5 {
		t.Errorf("Copilot = %+v", cfg.Copilot)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"bad level", "[logging]\nlevel = \"loud\""},
		{"bad format", "[logging]\nformat = \"xml\""},
		{"bad provider", "[copilot]\nprovider = \"oracle\""},
		{"bad capability", "[mods.approved]\nfoo = [\"teleport\"]"},
		{"bad toml", "mods = ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.toml)); err == nil {
				t.Error("Load() accepted invalid config")
			}
		})
	}
}
