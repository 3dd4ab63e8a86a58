// Package router drives one turn of conversation through the agent graph.
// It owns every durable write: the policy modules only decide, the router
// loads the thread, walks handoffs along the edge allow-list, and
// checkpoints the result at the human gate.
package router

import (
	"context"

	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/harun/switchboard/pkg/directory"
	"github.com/harun/switchboard/pkg/policy"
)

// Node names. The agent nodes reuse the policy role names; human is the
// gate where every turn parks awaiting the next user input.
const (
	NodeTriage  = policy.RoleTriage
	NodeProduct = policy.RoleProduct
	NodeSales   = policy.RoleSales
	NodeRefunds = policy.RoleRefunds
	NodeHuman   = "human"
)

// DefaultMaxHandoffs bounds chained handoffs within one turn
const DefaultMaxHandoffs = 10

// allowedEdges is the static transition allow-list
var allowedEdges = map[string]map[string]bool{
	NodeTriage: {
		NodeProduct: true,
		NodeSales:   true,
		NodeRefunds: true,
		NodeHuman:   true,
	},
	NodeProduct: {
		NodeSales:   true,
		NodeRefunds: true,
		NodeTriage:  true,
		NodeHuman:   true,
	},
	NodeSales: {
		NodeSales:   true,
		NodeTriage:  true,
		NodeRefunds: true,
		NodeProduct: true,
		NodeHuman:   true,
	},
	NodeRefunds: {
		NodeSales: true,
		NodeHuman: true,
	},
	NodeHuman: {
		NodeTriage: true,
	},
}

// CanTransition reports whether the edge from one node to another is allowed
func CanTransition(from, to string) bool {
	return allowedEdges[from][to]
}

// IsAgentNode reports whether the node is a policy-backed agent
func IsAgentNode(node string) bool {
	switch node {
	case NodeTriage, NodeProduct, NodeSales, NodeRefunds:
		return true
	}
	return false
}

// isSticky reports whether the node owns the conversation across turns.
// Triage never sticks; a specialist does.
func isSticky(node string) bool {
	return node == NodeProduct || node == NodeSales || node == NodeRefunds
}

// TurnRequest is one unit of external input
type TurnRequest struct {
	// ThreadID identifies the conversation; empty means start a new one.
	ThreadID string `json:"thread_id"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	// SessionID defaults to the thread ID when empty.
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
	// Interactive marks a live conversation: specialist ownership is
	// recorded in the directory so the next turn routes straight back.
	Interactive bool `json:"interactive"`
}

// TurnResult is what one completed turn produced
type TurnResult struct {
	ThreadID string `json:"thread_id"`
	// Node is where the thread is parked; always the human gate on success.
	Node string `json:"node"`
	// Delta holds the messages appended this turn, the user input first.
	Delta []checkpoint.Message `json:"messages"`
}

// DirectoryStore is the session directory surface the engine needs
type DirectoryStore interface {
	Lookup(ctx context.Context, tenantID, userID, sessionID string) (*directory.SessionRecord, error)
	Upsert(ctx context.Context, rec *directory.SessionRecord) error
	PatchActiveAgent(ctx context.Context, tenantID, userID, sessionID, agentName string) error
}

// CheckpointStore is the checkpoint surface the engine needs
type CheckpointStore interface {
	LoadLatest(ctx context.Context, threadID string) (*checkpoint.Checkpoint, error)
	Save(ctx context.Context, cp *checkpoint.Checkpoint) error
}
