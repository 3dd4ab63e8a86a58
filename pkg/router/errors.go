package router

import (
	"fmt"
	"strings"
)

// InvalidTransitionError reports a handoff target outside the edge
// allow-list. The turn fails and nothing is persisted.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// RoutingLoopError reports a turn that exceeded the handoff ceiling. Trail
// holds the transitions taken, in order.
type RoutingLoopError struct {
	ThreadID string
	Trail    []string
	Limit    int
}

func (e *RoutingLoopError) Error() string {
	return fmt.Sprintf("routing loop on thread %s: %d handoffs exceeded limit %d (%s)",
		e.ThreadID, len(e.Trail), e.Limit, strings.Join(e.Trail, ", "))
}

// StorageUnavailableError wraps a directory or checkpoint failure. The turn
// fails whole; retrying it is safe.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}
