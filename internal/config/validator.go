package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateProvider validates the provider name
func (v *Validator) ValidateProvider(name string) error {
	switch name {
	case "openai", "anthropic":
		return nil
	default:
		return fmt.Errorf("unsupported provider: %s (expected openai or anthropic)", name)
	}
}

// Validate checks a full configuration for consistency
func (v *Validator) Validate(cfg *Config) error {
	if err := v.ValidateProvider(cfg.Provider.Name); err != nil {
		return err
	}
	if err := v.ValidateAPIKey(cfg.Provider.APIKey, cfg.Provider.Name); err != nil {
		return err
	}
	if cfg.Provider.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if cfg.Router.MaxHandoffs <= 0 {
		return fmt.Errorf("router.max_handoffs must be positive, got %d", cfg.Router.MaxHandoffs)
	}
	if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be in 1-65535, got %d", cfg.Gateway.Port)
	}
	if cfg.Router.Retention.Enabled && cfg.Router.Retention.MaxAgeHours <= 0 {
		return fmt.Errorf("router.retention.max_age_hours must be positive when retention is enabled")
	}
	return nil
}

func marshalConfig(cfg *Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append(data, '\n'), nil
}
