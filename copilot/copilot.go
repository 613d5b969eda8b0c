// Package copilot generates Lua mod scripts from natural-language task
// descriptions using an LLM provider, and refuses to hand back anything
// that does not compile in the sandbox.
package copilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modforge/scripthost/script"
)

// Request is one completion request to a provider.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is a pluggable LLM backend.
type Provider interface {
	// Name identifies the provider in results and logs.
	Name() string

	// Complete returns the raw model output for the request.
	Complete(ctx context.Context, req Request) (string, error)
}

// Config configures a Copilot.
type Config struct {
	Provider Provider

	// MaxAttempts bounds the generate-compile-feedback loop. Zero means
	// DefaultMaxAttempts.
	MaxAttempts int

	// MaxTokens per completion. Zero means DefaultMaxTokens.
	MaxTokens int

	// Temperature for sampling.
	Temperature float64

	// Logger for attempt tracing. Nil means slog.Default.
	Logger *slog.Logger
}

// Defaults.
const (
	DefaultMaxAttempts = 3
	DefaultMaxTokens   = 2048
)

// ErrNoProvider is returned by New when no provider is configured.
var ErrNoProvider = errors.New("copilot: no provider configured")

// Result is a validated generated script.
type Result struct {
	// Source is the generated Lua, guaranteed to compile.
	Source string

	// Provider that produced it.
	Provider string

	// Attempts used, including the successful one.
	Attempts int
}

// Copilot generates and validates mod scripts.
type Copilot struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Copilot.
func New(cfg Config) (*Copilot, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Copilot{cfg: cfg, logger: logger}, nil
}

// systemPrompt describes the sandboxed API surface the generated script may
// use. Kept in sync with the registered modules.
const systemPrompt = `You write Lua scripts for a sandboxed game engine.
Rules:
- Only plain Lua plus the engine.* API is available. There is no io, os,
  require, load or metatable access.
- Host functions live under engine: engine.log.{debug,info,warn,error},
  engine.time.now(), engine.math.{lerp,clamp}, engine.input.*,
  engine.entity.{create,get_position,set_position,move,get_rotation,set_rotation},
  engine.audio.{play,stop,set_volume}, engine.physics.{raycast,check_collision},
  engine.scene.{load,get_current}, engine.config.{get,set},
  engine.fs.{read,write,list}.
- Lifecycle hooks: define on_load, on_enable, on_disable, on_unload and
  on_update(dt) as needed.
- Respond with a single Lua code block and nothing else.`

// Generate produces a Lua script for the task. Each candidate is compiled
// in a throwaway sandbox; compile errors are fed back to the provider until
// a candidate compiles or attempts run out.
func (c *Copilot) Generate(ctx context.Context, task string) (*Result, error) {
	validator, err := script.New(script.UntrustedConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("copilot: building validator: %w", err)
	}
	defer validator.Close()

	prompt := "Task: " + task
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := c.cfg.Provider.Complete(ctx, Request{
			System:      systemPrompt,
			Prompt:      prompt,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("copilot: provider %s: %w", c.cfg.Provider.Name(), err)
		}

		source := ExtractLua(raw)
		if source == "" {
			lastErr = errors.New("response contained no Lua code")
		} else if cerr := validator.Compile(source); cerr != nil {
			lastErr = cerr
		} else {
			return &Result{
				Source:   source,
				Provider: c.cfg.Provider.Name(),
				Attempts: attempt,
			}, nil
		}

		c.logger.Debug("generated script rejected",
			"provider", c.cfg.Provider.Name(),
			"attempt", attempt,
			"error", lastErr)
		prompt = fmt.Sprintf("Task: %s\n\nYour previous script failed: %v\nReturn a corrected script.", task, lastErr)
	}

	return nil, fmt.Errorf("copilot: no valid script after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

// ExtractLua pulls the Lua source out of a model response: the first fenced
// code block if any, otherwise the whole trimmed response.
func ExtractLua(response string) string {
	s := response

	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		// Drop the info string ("lua") up to the first newline.
		if j := strings.IndexByte(s, '\n'); j >= 0 {
			info := strings.TrimSpace(s[:j])
			if info == "" || strings.EqualFold(info, "lua") {
				s = s[j+1:]
			}
		}
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}
