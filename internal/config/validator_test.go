package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateAPIKey(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		key       string
		provider  string
		shouldErr bool
	}{
		{"valid openai", "sk-abc123", "openai", false},
		{"valid anthropic", "sk-ant-abc123", "anthropic", false},
		{"empty key", "", "openai", true},
		{"wrong openai prefix", "key-abc", "openai", true},
		{"wrong anthropic prefix", "sk-abc", "anthropic", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateAPIKey(tt.key, tt.provider)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateProvider(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateProvider("openai"))
	assert.NoError(t, v.ValidateProvider("anthropic"))
	assert.Error(t, v.ValidateProvider("gemini"))
	assert.Error(t, v.ValidateProvider(""))
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	cfg := DefaultConfig()
	cfg.Provider.APIKey = "sk-test"
	assert.NoError(t, v.Validate(cfg))

	bad := DefaultConfig()
	bad.Provider.APIKey = "sk-test"
	bad.Router.MaxHandoffs = 0
	assert.Error(t, v.Validate(bad))

	badPort := DefaultConfig()
	badPort.Provider.APIKey = "sk-test"
	badPort.Gateway.Port = 0
	assert.Error(t, v.Validate(badPort))

	badRetention := DefaultConfig()
	badRetention.Provider.APIKey = "sk-test"
	badRetention.Router.Retention.Enabled = true
	badRetention.Router.Retention.MaxAgeHours = 0
	assert.Error(t, v.Validate(badRetention))
}
