package policy

import (
	"fmt"
)

// NewProvider creates a chat provider by name
func NewProvider(name, apiKey string) (ChatProvider, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
