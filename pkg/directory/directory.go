// Package directory maintains the durable mapping from a session identity
// to the agent that currently owns the conversation.
//
// A record is keyed by (tenant, user, session); by convention the session ID
// equals the checkpointed thread ID, so one directory record corresponds to
// one thread. The router only ever mutates the active agent field; the
// profile fields ride along untouched.
package directory

import (
	"errors"
	"time"
)

// ErrNotFound signals that no record exists for the given identity
var ErrNotFound = errors.New("session record not found")

// ActiveAgentUnknown is the sentinel recorded before first routing
const ActiveAgentUnknown = "unknown"

// SessionIdentity is the composite key of a directory record
type SessionIdentity struct {
	TenantID  string `json:"tenantId"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// SessionRecord maps a session identity to its active agent plus opaque
// profile fields that the router never interprets.
type SessionRecord struct {
	SessionIdentity

	ActiveAgent string `json:"activeAgent"`

	// Profile fields, opaque to the router
	Name     string `json:"name,omitempty"`
	Age      string `json:"age,omitempty"`
	Address  string `json:"address,omitempty"`
	ChatName string `json:"chatName,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}
