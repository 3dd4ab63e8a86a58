// Package policy implements the per-role decision modules the router
// invokes. A module owns nothing but its own decision: given the
// conversation so far it returns either a terminal response for this turn
// or a structured handoff naming the next role. All durable writes stay
// with the router.
package policy

import (
	"context"

	"github.com/harun/switchboard/pkg/checkpoint"
)

// OutcomeKind discriminates policy outcomes
type OutcomeKind string

const (
	// OutcomeRespond terminates the turn; the router parks the thread at
	// the human gate.
	OutcomeRespond OutcomeKind = "respond"
	// OutcomeHandoff transfers control to another role within the same
	// turn, without yielding to the caller.
	OutcomeHandoff OutcomeKind = "handoff"
)

// Outcome is a policy module's decision for one invocation
type Outcome struct {
	Kind OutcomeKind
	// Delta holds the messages produced while deciding, in order.
	Delta []checkpoint.Message
	// Target names the next role for OutcomeHandoff.
	Target string
}

// Module is a pluggable decision function for one agent role
type Module interface {
	// Role returns the node name this module decides for
	Role() string

	// Decide produces an outcome from the conversation state. The state
	// slice is owned by the router; implementations must not retain it.
	Decide(ctx context.Context, state []checkpoint.Message) (Outcome, error)
}

// ChatRequest is the provider-neutral completion request
type ChatRequest struct {
	Model        string
	SystemPrompt string
	Messages     []checkpoint.Message
	Tools        []ToolDescriptor
	Temperature  float64
	MaxTokens    int
}

// ChatResponse is the provider-neutral completion response
type ChatResponse struct {
	Content   string
	ToolCalls []checkpoint.ToolCall
}

// ChatProvider abstracts the language model behind a policy module
type ChatProvider interface {
	// Chat makes a completion call
	Chat(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// Name returns the provider name
	Name() string
}

// ToolDescriptor describes one callable capability to the model
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}
