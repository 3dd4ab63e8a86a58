package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harun/switchboard/internal/observability"
	"github.com/harun/switchboard/internal/tracing"
	"github.com/harun/switchboard/pkg/checkpoint"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// DefaultMaxToolRounds bounds provider round-trips within one decision
const DefaultMaxToolRounds = 8

// LLMModule is a language-model-backed policy module for one role. It
// drives a provider tool-call loop: domain capabilities are dispatched
// in-loop, a transfer tool call ends the decision as a handoff, and a plain
// assistant message ends it as a response.
type LLMModule struct {
	role          string
	systemPrompt  string
	transfers     []string
	caps          *CapabilitySet
	provider      ChatProvider
	model         string
	temperature   float64
	maxTokens     int
	maxToolRounds int
	logger        zerolog.Logger
}

// ModuleConfig configures an LLM-backed policy module
type ModuleConfig struct {
	Role          string
	SystemPrompt  string
	Transfers     []string
	Capabilities  *CapabilitySet
	Provider      ChatProvider
	Model         string
	Temperature   float64
	MaxTokens     int
	MaxToolRounds int
	Logger        zerolog.Logger
}

// NewLLMModule creates a policy module for one role
func NewLLMModule(cfg ModuleConfig) (*LLMModule, error) {
	observability.EnsureRegistered()

	if cfg.Role == "" {
		return nil, fmt.Errorf("role is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("chat provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	caps := cfg.Capabilities
	if caps == nil {
		empty, err := NewCapabilitySet(cfg.Logger)
		if err != nil {
			return nil, err
		}
		caps = empty
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = PromptFor(cfg.Role)
	}

	maxToolRounds := cfg.MaxToolRounds
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}

	return &LLMModule{
		role:          cfg.Role,
		systemPrompt:  systemPrompt,
		transfers:     cfg.Transfers,
		caps:          caps,
		provider:      cfg.Provider,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		maxToolRounds: maxToolRounds,
		logger:        cfg.Logger,
	}, nil
}

// Role returns the node name this module decides for
func (m *LLMModule) Role() string {
	return m.role
}

// Decide runs the provider loop until the model answers or hands off
func (m *LLMModule) Decide(ctx context.Context, state []checkpoint.Message) (Outcome, error) {
	logger := tracing.LoggerFromContext(ctx, m.logger).With().Str("role", m.role).Logger()
	start := time.Now()

	tools := m.toolDescriptors()

	// Working copy: the router owns the state slice.
	messages := make([]checkpoint.Message, len(state), len(state)+4)
	copy(messages, state)

	var delta []checkpoint.Message

	for round := 0; round < m.maxToolRounds; round++ {
		resp, err := m.provider.Chat(ctx, ChatRequest{
			Model:        m.model,
			SystemPrompt: m.systemPrompt,
			Messages:     messages,
			Tools:        tools,
			Temperature:  m.temperature,
			MaxTokens:    m.maxTokens,
		})
		if err != nil {
			observability.RecordPolicyDecision(m.role, "error", time.Since(start))
			return Outcome{}, fmt.Errorf("policy %s: provider call failed: %w", m.role, err)
		}

		if len(resp.ToolCalls) == 0 {
			reply := checkpoint.Message{
				ID:        newMessageID(),
				Role:      checkpoint.RoleAssistant,
				Content:   resp.Content,
				Timestamp: time.Now(),
			}
			delta = append(delta, reply)

			observability.RecordPolicyDecision(m.role, "respond", time.Since(start))
			logger.Debug().Int("rounds", round+1).Msg("Policy responded")

			return Outcome{Kind: OutcomeRespond, Delta: delta}, nil
		}

		assistant := checkpoint.Message{
			ID:        newMessageID(),
			Role:      checkpoint.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
			Timestamp: time.Now(),
		}
		delta = append(delta, assistant)
		messages = append(messages, assistant)

		for _, tc := range resp.ToolCalls {
			if target, ok := m.transferTarget(tc.Name); ok {
				ack := checkpoint.Message{
					ID:         newMessageID(),
					Role:       checkpoint.RoleTool,
					Content:    fmt.Sprintf("Successfully transferred to %s", target),
					Name:       tc.Name,
					ToolCallID: tc.ID,
					Timestamp:  time.Now(),
				}
				delta = append(delta, ack)

				observability.RecordPolicyDecision(m.role, "handoff", time.Since(start))
				logger.Info().Str("target", target).Msg("Policy handed off")

				return Outcome{Kind: OutcomeHandoff, Delta: delta, Target: target}, nil
			}

			output := m.caps.Dispatch(ctx, tc.Name, tc.Arguments)
			result := checkpoint.Message{
				ID:         newMessageID(),
				Role:       checkpoint.RoleTool,
				Content:    output,
				Name:       tc.Name,
				ToolCallID: tc.ID,
				Timestamp:  time.Now(),
			}
			delta = append(delta, result)
			messages = append(messages, result)
		}
	}

	observability.RecordPolicyDecision(m.role, "error", time.Since(start))
	return Outcome{}, fmt.Errorf("policy %s: no terminal outcome after %d tool rounds", m.role, m.maxToolRounds)
}

// toolDescriptors returns the capability descriptors plus one synthesized
// transfer tool per allowed target.
func (m *LLMModule) toolDescriptors() []ToolDescriptor {
	descriptors := m.caps.Descriptors()
	for _, target := range m.transfers {
		descriptors = append(descriptors, ToolDescriptor{
			Name:        TransferToolPrefix + target,
			Description: "Ask another agent for help.",
			InputSchema: map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		})
	}
	return descriptors
}

// transferTarget maps a transfer tool name to its target role, if the
// module is allowed to transfer there.
func (m *LLMModule) transferTarget(toolName string) (string, bool) {
	if !strings.HasPrefix(toolName, TransferToolPrefix) {
		return "", false
	}
	target := strings.TrimPrefix(toolName, TransferToolPrefix)
	for _, allowed := range m.transfers {
		if allowed == target {
			return target, true
		}
	}
	return "", false
}

func newMessageID() string {
	id, err := gonanoid.New()
	if err != nil {
		// nanoid only fails when the system RNG does
		return fmt.Sprintf("msg-%d", time.Now().UnixNano())
	}
	return id
}
