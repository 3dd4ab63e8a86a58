package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harun/switchboard/internal/observability"
	"github.com/harun/switchboard/internal/tracing"
	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/harun/switchboard/pkg/directory"
	"github.com/harun/switchboard/pkg/policy"
	"github.com/rs/zerolog"
)

// Engine routes turns through the agent graph
type Engine struct {
	directory   DirectoryStore
	checkpoints CheckpointStore
	modules     map[string]policy.Module
	maxHandoffs int
	logger      zerolog.Logger

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

// EngineConfig holds engine construction parameters
type EngineConfig struct {
	Directory   DirectoryStore
	Checkpoints CheckpointStore
	// Modules maps agent node names to their policy modules.
	Modules     []policy.Module
	MaxHandoffs int
	Logger      zerolog.Logger
}

// NewEngine creates a routing engine
func NewEngine(cfg EngineConfig) (*Engine, error) {
	observability.EnsureRegistered()

	if cfg.Directory == nil {
		return nil, errors.New("directory store is required")
	}
	if cfg.Checkpoints == nil {
		return nil, errors.New("checkpoint store is required")
	}

	modules := make(map[string]policy.Module, len(cfg.Modules))
	for _, mod := range cfg.Modules {
		role := mod.Role()
		if !IsAgentNode(role) {
			return nil, fmt.Errorf("module role %q is not an agent node", role)
		}
		if _, dup := modules[role]; dup {
			return nil, fmt.Errorf("duplicate module for role %q", role)
		}
		modules[role] = mod
	}
	if _, ok := modules[NodeTriage]; !ok {
		return nil, errors.New("a triage module is required")
	}

	maxHandoffs := cfg.MaxHandoffs
	if maxHandoffs <= 0 {
		maxHandoffs = DefaultMaxHandoffs
	}

	return &Engine{
		directory:   cfg.Directory,
		checkpoints: cfg.Checkpoints,
		modules:     modules,
		maxHandoffs: maxHandoffs,
		logger:      cfg.Logger,
		threadLocks: make(map[string]*sync.Mutex),
	}, nil
}

// lockThread serializes overlapping turns for one thread
func (e *Engine) lockThread(threadID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		e.threadLocks[threadID] = lock
	}
	return lock
}

// Turn routes one unit of user input through the graph and checkpoints the
// result at the human gate. Any error before the save leaves the thread
// state untouched; retrying the same input is safe.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.TenantID == "" || req.UserID == "" {
		return nil, errors.New("tenant_id and user_id are required")
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = threadID
	}

	ctx = tracing.WithThreadID(ctx, threadID)
	logger := tracing.LoggerFromContext(ctx, e.logger)

	lock := e.lockThread(threadID)
	lock.Lock()
	defer lock.Unlock()

	observability.IncActiveThreads()
	defer observability.DecActiveThreads()
	start := time.Now()

	// Load the thread where the last turn parked it.
	var messages []checkpoint.Message
	var turnSeq int64
	cp, err := e.checkpoints.LoadLatest(ctx, threadID)
	switch {
	case errors.Is(err, checkpoint.ErrEmpty):
		// Brand-new thread.
	case err != nil:
		return nil, &StorageUnavailableError{Op: "checkpoint load", Err: err}
	default:
		messages = cp.Messages
		turnSeq = cp.TurnSeq
	}

	userMsg := checkpoint.Message{
		ID:        uuid.NewString(),
		Role:      checkpoint.RoleUser,
		Content:   req.Input,
		Timestamp: time.Now(),
	}
	messages = append(messages, userMsg)
	delta := []checkpoint.Message{userMsg}

	entry, err := e.entryNode(ctx, req.TenantID, req.UserID, sessionID)
	if err != nil {
		observability.RecordTurn(NodeTriage, time.Since(start), false)
		return nil, err
	}

	logger.Debug().
		Str("entry", entry).
		Int64("turn_seq", turnSeq+1).
		Msg("Turn started")

	current := entry
	handoffs := 0
	var trail []string

	for {
		if isSticky(current) && req.Interactive {
			err := e.directory.PatchActiveAgent(ctx, req.TenantID, req.UserID, sessionID, current)
			if err != nil {
				observability.RecordTurn(entry, time.Since(start), false)
				return nil, &StorageUnavailableError{Op: "directory patch", Err: err}
			}
		}

		mod, ok := e.modules[current]
		if !ok {
			observability.RecordTurn(entry, time.Since(start), false)
			return nil, fmt.Errorf("no policy module for node %s", current)
		}

		outcome, err := mod.Decide(tracing.WithNode(ctx, current), messages)
		if err != nil {
			observability.RecordTurn(entry, time.Since(start), false)
			return nil, fmt.Errorf("node %s failed to decide: %w", current, err)
		}

		messages = append(messages, outcome.Delta...)
		delta = append(delta, outcome.Delta...)

		if outcome.Kind == policy.OutcomeRespond {
			observability.RecordTransition(current, NodeHuman)
			break
		}

		target := outcome.Target
		if !CanTransition(current, target) {
			observability.RecordTurn(entry, time.Since(start), false)
			return nil, &InvalidTransitionError{From: current, To: target}
		}

		trail = append(trail, fmt.Sprintf("%s->%s", current, target))
		handoffs++
		if handoffs > e.maxHandoffs {
			observability.RecordTurn(entry, time.Since(start), false)
			return nil, &RoutingLoopError{ThreadID: threadID, Trail: trail, Limit: e.maxHandoffs}
		}

		observability.RecordTransition(current, target)
		logger.Debug().Str("from", current).Str("to", target).Msg("Handoff")
		current = target
	}

	saved := &checkpoint.Checkpoint{
		ThreadID: threadID,
		Node:     NodeHuman,
		TurnSeq:  turnSeq + 1,
		Messages: messages,
	}
	if err := e.checkpoints.Save(ctx, saved); err != nil {
		observability.RecordTurn(entry, time.Since(start), false)
		return nil, &StorageUnavailableError{Op: "checkpoint save", Err: err}
	}

	observability.RecordHandoffs(handoffs)
	observability.RecordTurn(entry, time.Since(start), true)

	logger.Info().
		Str("final", current).
		Int("handoffs", handoffs).
		Int("messages", len(delta)).
		Msg("Turn completed")

	return &TurnResult{
		ThreadID: threadID,
		Node:     NodeHuman,
		Delta:    delta,
	}, nil
}

// entryNode resolves where the turn enters the graph. A recorded specialist
// bypasses triage; anything else starts there.
func (e *Engine) entryNode(ctx context.Context, tenantID, userID, sessionID string) (string, error) {
	rec, err := e.directory.Lookup(ctx, tenantID, userID, sessionID)
	if errors.Is(err, directory.ErrNotFound) {
		fresh := &directory.SessionRecord{
			SessionIdentity: directory.SessionIdentity{
				TenantID:  tenantID,
				UserID:    userID,
				SessionID: sessionID,
			},
			ActiveAgent: directory.ActiveAgentUnknown,
		}
		if err := e.directory.Upsert(ctx, fresh); err != nil {
			return "", &StorageUnavailableError{Op: "directory upsert", Err: err}
		}
		return NodeTriage, nil
	}
	if err != nil {
		return "", &StorageUnavailableError{Op: "directory lookup", Err: err}
	}

	agent := rec.ActiveAgent
	if agent == directory.ActiveAgentUnknown || agent == NodeTriage || !IsAgentNode(agent) {
		return NodeTriage, nil
	}
	return agent, nil
}
