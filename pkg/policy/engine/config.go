package engine

import (
	"fmt"
)

// Unlimited disables the hit limit in MatchOptions.MaxHits.
const Unlimited = -1

// EngineConfig contains configuration for the evaluation engine.
type EngineConfig struct {
	// MaxHitsPerKey bounds the evidence blocks returned for one pattern key.
	// Default: 8.
	MaxHitsPerKey int

	// ContextChars is the number of characters kept on each side of a match
	// in MatchDetail.Context.
	// Default: 100.
	ContextChars int

	// ExclusionMaxHits bounds the blocks examined per exclusion query key
	// before require_context_keys filtering.
	// Default: 50.
	ExclusionMaxHits int

	// DefaultAdmissionWindowHours applies when a contract leaves the
	// admission window unset.
	// Default: 24.
	DefaultAdmissionWindowHours int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxHitsPerKey:               8,
		ContextChars:                100,
		ExclusionMaxHits:            50,
		DefaultAdmissionWindowHours: 24,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.MaxHitsPerKey <= 0 {
		return fmt.Errorf("%w: max hits per key must be positive", ErrInvalidConfig)
	}
	if c.ContextChars < 0 {
		return fmt.Errorf("%w: context chars cannot be negative", ErrInvalidConfig)
	}
	if c.ExclusionMaxHits <= 0 {
		return fmt.Errorf("%w: exclusion max hits must be positive", ErrInvalidConfig)
	}
	if c.DefaultAdmissionWindowHours < 0 {
		return fmt.Errorf("%w: admission window cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// WithMaxHitsPerKey sets the per-key hit limit.
func (c *EngineConfig) WithMaxHitsPerKey(n int) *EngineConfig {
	c.MaxHitsPerKey = n
	return c
}

// WithContextChars sets the match-detail context width.
func (c *EngineConfig) WithContextChars(n int) *EngineConfig {
	c.ContextChars = n
	return c
}

// WithExclusionMaxHits sets the exclusion hit limit.
func (c *EngineConfig) WithExclusionMaxHits(n int) *EngineConfig {
	c.ExclusionMaxHits = n
	return c
}

// WithDefaultAdmissionWindowHours sets the fallback admission window.
func (c *EngineConfig) WithDefaultAdmissionWindowHours(n int) *EngineConfig {
	c.DefaultAdmissionWindowHours = n
	return c
}
