package config

import (
	"time"

	"careercoach/internal/types"
)

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global settings, used by every flow without an override
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          time.Duration        `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       int                  `mapstructure:"maxRetries"`
	Temperature      float32              `mapstructure:"temperature"`
	UseSystemPrompts bool                 `mapstructure:"useSystemPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	PromptReload     PromptReloadConfig   `mapstructure:"promptReload"`

	// Per-flow overrides keyed by flow name, e.g. ai.flows.cover-letter
	Flows map[string]OperationAIConfig `mapstructure:"flows"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// PromptReloadConfig controls hot reloading of prompt files
type PromptReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// OperationAIConfig holds AI configuration for one flow. Unset pointer
// fields fall back to the global values.
type OperationAIConfig struct {
	Provider         string                `mapstructure:"provider"`
	Model            string                `mapstructure:"model"`
	Timeout          *time.Duration        `mapstructure:"timeout"`
	APIKey           string                `mapstructure:"apiKey"`
	MaxRetries       *int                  `mapstructure:"maxRetries"`
	Temperature      *float32              `mapstructure:"temperature"`
	UseSystemPrompts *bool                 `mapstructure:"useSystemPrompts"`
	Prompts          PromptConfig          `mapstructure:"prompts"`
	CircuitBreaker   *CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds inline prompt overrides or paths to prompt files.
// A file takes precedence over the inline value.
type PromptConfig struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// applyOperationDefaults applies global defaults to flow-specific configuration
func (c *AIConfig) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.Model
	}
	if opCfg.Timeout == nil {
		timeout := c.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.Temperature
		opCfg.Temperature = &temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		useSystem := c.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystem
	}
	if opCfg.CircuitBreaker == nil {
		cb := c.CircuitBreaker
		opCfg.CircuitBreaker = &cb
	}
}

// FlowConfig returns the AI configuration for a flow with fallback to the
// global configuration. Every pointer field of the result is non-nil.
func (c *Config) FlowConfig(flow types.FlowName) OperationAIConfig {
	cfg := c.AI.Flows[string(flow)]
	c.AI.applyOperationDefaults(&cfg)
	return cfg
}
