// Package checkpoint persists conversation thread state between turns.
//
// The store is a last-snapshot-wins log keyed by thread ID: every completed
// turn appends a full snapshot, readers only ever see the latest one, and
// superseded snapshots are retained for audit until pruned.
package checkpoint

import (
	"errors"
	"time"
)

// ErrEmpty signals that a thread has no checkpoint yet. Callers treat this
// as fresh-thread semantics, not as a failure.
var ErrEmpty = errors.New("no checkpoint for thread")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// ToolCall records a tool invocation requested by an assistant message
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Message represents a single conversation message
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Checkpoint is a full snapshot of a thread as of its last completed turn
type Checkpoint struct {
	ThreadID string    `json:"thread_id"`
	Node     string    `json:"node"`
	TurnSeq  int64     `json:"turn_seq"`
	Messages []Message `json:"messages"`
	SavedAt  time.Time `json:"saved_at"`
}
