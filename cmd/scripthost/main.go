// Package main is the scripthost command: it runs sandboxed Lua scripts and
// mod directories against an in-memory game world.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/modforge/scripthost/config"
	"github.com/modforge/scripthost/copilot"
	"github.com/modforge/scripthost/hostapi"
	"github.com/modforge/scripthost/modpack"
	"github.com/modforge/scripthost/script"
	"github.com/modforge/scripthost/security"
	"github.com/modforge/scripthost/world"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

const tickInterval = time.Second / 60

type options struct {
	configPath string
	trust      string
	generate   string
	watch      bool
	files      []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	host := newWorldContext(logger)

	if opts.generate != "" {
		return runGenerate(cfg, logger, opts.generate)
	}
	if len(opts.files) > 0 {
		return runFiles(opts, cfg, host, logger)
	}
	return runMods(opts, cfg, host, logger)
}

// newWorldContext wires the in-memory world behind the script API.
func newWorldContext(logger *slog.Logger) *hostapi.Context {
	entities := world.NewEntityStore()
	store, _ := world.NewConfigStore("")

	return &hostapi.Context{
		Entities: entities,
		Audio:    world.NewAudioMixer(),
		Physics:  world.NewPhysicsWorld(entities),
		Input:    world.NewInputState(),
		Scene:    world.NewSceneLoader(),
		Config:   store,
		Logger:   logger,
	}
}

// runFiles executes each script file in its own engine at the requested
// trust level and prints the result value, if any.
func runFiles(opts options, cfg config.Config, host *hostapi.Context, logger *slog.Logger) int {
	level, ok := security.ParseTrustLevel(opts.trust)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown trust level %q\n", opts.trust)
		return 1
	}

	for _, path := range opts.files {
		source, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}

		engine, err := script.New(sandboxConfig(level, cfg.Limits), host, script.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}

		result, err := engine.EvalValue(string(source))
		usage := engine.Usage()
		engine.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			return 1
		}

		if result != nil {
			fmt.Println(result)
		}
		logger.Debug("script finished",
			"path", path,
			"steps", usage.Steps,
			"elapsed", usage.Elapsed)
	}
	return 0
}

// sandboxConfig maps the trust level onto its preset, with the limits
// section overriding the untrusted preset.
func sandboxConfig(level security.TrustLevel, limits config.LimitsConfig) script.SandboxConfig {
	var sc script.SandboxConfig
	switch level {
	case security.TrustTrusted:
		sc = script.TrustedConfig()
	case security.TrustVerified:
		sc = script.VerifiedConfig()
	default:
		sc = script.UntrustedConfig()
		if limits.InstructionLimit > 0 {
			sc.InstructionLimit = limits.InstructionLimit
		}
		if limits.MemoryLimitBytes > 0 {
			sc.MemoryLimit = limits.MemoryLimitBytes
		}
		if limits.Timeout > 0 {
			sc.Timeout = limits.Timeout
		}
		if limits.MaxStackDepth > 0 {
			sc.MaxStackDepth = limits.MaxStackDepth
		}
	}
	return sc
}

// runMods loads every discovered mod and ticks them until interrupted.
func runMods(opts options, cfg config.Config, host *hostapi.Context, logger *slog.Logger) int {
	manager := modpack.NewManager(modpack.ManagerConfig{
		ModPaths:         cfg.Mods.Paths,
		DataRoot:         cfg.Mods.DataRoot,
		FileOpsPerSecond: cfg.Mods.FileOpsPerSecond,
		AutoEnable:       cfg.Mods.AutoEnable,
		Approved:         cfg.Mods.Approved,
		Host:             host,
		Logger:           logger,
	})

	ctx := context.Background()
	if err := manager.LoadAll(ctx); err != nil {
		logger.Warn("some mods failed to load", "error", err)
	}
	if manager.Count() == 0 {
		fmt.Fprintln(os.Stderr, "No mods loaded; nothing to do")
		return 1
	}
	defer func() {
		if err := manager.UnloadAll(ctx); err != nil {
			logger.Warn("unload failed", "error", err)
		}
	}()

	if opts.watch || cfg.Mods.HotReload {
		watcher, err := modpack.NewWatcher(manager, logger)
		if err != nil {
			logger.Warn("hot reload unavailable", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("running", "mods", manager.Count())
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-signals:
			logger.Info("shutting down")
			return 0
		case now := <-ticker.C:
			manager.Update(now.Sub(last).Seconds())
			last = now
		}
	}
}

// runGenerate asks the configured copilot provider for a script and prints
// it to stdout.
func runGenerate(cfg config.Config, logger *slog.Logger, task string) int {
	apiKey := os.Getenv(cfg.Copilot.APIKeyEnv)
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "Error: %s is not set\n", cfg.Copilot.APIKeyEnv)
		return 1
	}

	var provider copilot.Provider
	switch cfg.Copilot.Provider {
	case "anthropic":
		provider = copilot.NewAnthropic(apiKey, cfg.Copilot.Model)
	case "openai":
		provider = copilot.NewOpenAI(apiKey, cfg.Copilot.Model)
	case "gemini":
		provider = copilot.NewGemini(apiKey, cfg.Copilot.Model)
	default:
		fmt.Fprintln(os.Stderr, "Error: no copilot provider configured")
		return 1
	}

	c, err := copilot.New(copilot.Config{
		Provider:    provider,
		MaxAttempts: cfg.Copilot.MaxAttempts,
		MaxTokens:   cfg.Copilot.MaxTokens,
		Temperature: cfg.Copilot.Temperature,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	result, err := c.Generate(context.Background(), task)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger.Info("script generated", "provider", result.Provider, "attempts", result.Attempts)
	fmt.Println(result.Source)
	return 0
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseFlags() options {
	var opts options
	var showVersion bool

	pflag.StringVarP(&opts.configPath, "config", "c", "scripthost.toml", "Path to configuration file")
	pflag.StringVarP(&opts.trust, "trust", "t", "untrusted", "Trust level for script files (untrusted, verified, trusted)")
	pflag.StringVarP(&opts.generate, "generate", "g", "", "Generate a mod script for the given task description")
	pflag.BoolVarP(&opts.watch, "watch", "w", false, "Reload mods when their sources change")
	pflag.BoolVarP(&showVersion, "version", "v", false, "Show version information")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "scripthost - sandboxed Lua mod runtime\n\n")
		fmt.Fprintf(os.Stderr, "Usage: scripthost [options] [script.lua...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scripthost                         Load and run mods from config\n")
		fmt.Fprintf(os.Stderr, "  scripthost script.lua              Run a script untrusted\n")
		fmt.Fprintf(os.Stderr, "  scripthost -t trusted script.lua   Run a script with no ceilings\n")
		fmt.Fprintf(os.Stderr, "  scripthost -g \"heal on pickup\"     Generate a mod script\n")
	}

	pflag.Parse()

	if showVersion {
		fmt.Printf("scripthost %s (%s)\n", version, commit)
		os.Exit(0)
	}

	opts.files = pflag.Args()
	return opts
}
