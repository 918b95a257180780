package compiler

import (
	"log"

	"github.com/xyproto/env/v2"
)

// Config sizes the regions one compilation may use.
type Config struct {
	TreeCapacity  int // syntax nodes
	ScopeCapacity int // scopes, excluding the global one
	InstrCapacity int // three-address instructions
	LabelCapacity int // labels
	MaxErrors     int // retained error diagnostics

	Filename string      // shown in diagnostics, optional
	Logger   *log.Logger // per-stage tracing, nil for none
}

// DefaultConfig returns capacities large enough for hand-written programs.
func DefaultConfig() Config {
	return Config{
		TreeCapacity:  1 << 16,
		ScopeCapacity: 1 << 14,
		InstrCapacity: 1 << 16,
		LabelCapacity: 1 << 10,
		MaxErrors:     10,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by PINAPL_* variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.TreeCapacity = env.Int("PINAPL_TREE_CAPACITY", cfg.TreeCapacity)
	cfg.ScopeCapacity = env.Int("PINAPL_SCOPE_CAPACITY", cfg.ScopeCapacity)
	cfg.InstrCapacity = env.Int("PINAPL_CODE_CAPACITY", cfg.InstrCapacity)
	cfg.LabelCapacity = env.Int("PINAPL_LABEL_CAPACITY", cfg.LabelCapacity)
	cfg.MaxErrors = env.Int("PINAPL_MAX_ERRORS", cfg.MaxErrors)
	return cfg
}

func (c Config) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
