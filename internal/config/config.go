package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Switchboard configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// LLM provider
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// Router engine
	Router RouterConfig `json:"router" mapstructure:"router"`

	// Gateway server
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Shop tool backend
	Shop ShopConfig `json:"shop" mapstructure:"shop"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// ProviderConfig holds LLM provider configuration
type ProviderConfig struct {
	Name           string  `json:"name" mapstructure:"name"` // openai, anthropic
	APIKey         string  `json:"api_key" mapstructure:"api_key"`
	Model          string  `json:"model" mapstructure:"model"`
	Temperature    float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens      int     `json:"max_tokens" mapstructure:"max_tokens"`
	EmbeddingModel string  `json:"embedding_model" mapstructure:"embedding_model"`
}

// RouterConfig holds state machine engine configuration
type RouterConfig struct {
	// MaxHandoffs bounds chained in-turn handoffs before the turn fails.
	MaxHandoffs    int             `json:"max_handoffs" mapstructure:"max_handoffs"`
	DirectoryPath  string          `json:"directory_path" mapstructure:"directory_path"`
	CheckpointPath string          `json:"checkpoint_path" mapstructure:"checkpoint_path"`
	Retention      RetentionConfig `json:"retention" mapstructure:"retention"`
}

// RetentionConfig holds checkpoint retention sweeper configuration
type RetentionConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	Schedule    string `json:"schedule" mapstructure:"schedule"` // cron expression
	MaxAgeHours int    `json:"max_age_hours" mapstructure:"max_age_hours"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// ShopConfig holds the shop tool backend configuration
type ShopConfig struct {
	DBPath      string `json:"db_path" mapstructure:"db_path"`
	CatalogPath string `json:"catalog_path" mapstructure:"catalog_path"`
	Watch       bool   `json:"watch" mapstructure:"watch"`
}

// DefaultConfig returns a configuration with sane defaults
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Provider: ProviderConfig{
			Name:           "openai",
			Model:          "gpt-4o",
			Temperature:    0.2,
			MaxTokens:      1024,
			EmbeddingModel: "text-embedding-3-small",
		},
		Router: RouterConfig{
			MaxHandoffs: 10,
			Retention: RetentionConfig{
				Enabled:     false,
				Schedule:    "0 3 * * *",
				MaxAgeHours: 7 * 24,
			},
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8790,
		},
		Shop: ShopConfig{
			Watch: true,
		},
	}
}

// String returns the config as indented JSON with the API key masked
func (c *Config) String() string {
	masked := *c
	if masked.Provider.APIKey != "" {
		masked.Provider.APIKey = "****"
	}
	data, err := json.MarshalIndent(&masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("config (marshal error: %v)", err)
	}
	return string(data)
}
