package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harun/switchboard/internal/observability"
	"github.com/harun/switchboard/internal/tracing"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store is a sqlite-backed checkpoint store
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the checkpoint database at the given path
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	observability.EnsureRegistered()

	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("Checkpoint store opened")

	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id TEXT NOT NULL,
			turn_seq  INTEGER NOT NULL,
			node      TEXT NOT NULL,
			messages  TEXT NOT NULL,
			saved_at  INTEGER NOT NULL,
			PRIMARY KEY (thread_id, turn_seq)
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_saved_at ON checkpoints(saved_at);
	`)
	return err
}

// Save durably persists a snapshot. The write is complete before Save
// returns; a snapshot with the same (thread, turn) is replaced.
func (s *Store) Save(ctx context.Context, cp *Checkpoint) error {
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() {
		observability.RecordCheckpointSave(time.Since(start))
	}()

	if cp.ThreadID == "" {
		return fmt.Errorf("thread ID cannot be empty")
	}
	if cp.Node == "" {
		return fmt.Errorf("node cannot be empty")
	}
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now()
	}

	payload, err := json.Marshal(cp.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoints (thread_id, turn_seq, node, messages, saved_at)
		VALUES (?, ?, ?, ?, ?)
	`, cp.ThreadID, cp.TurnSeq, cp.Node, string(payload), cp.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	logger.Debug().
		Str("thread_id", cp.ThreadID).
		Int64("turn_seq", cp.TurnSeq).
		Str("node", cp.Node).
		Int("messages", len(cp.Messages)).
		Msg("Checkpoint saved")

	return nil
}

// LoadLatest returns the most recent snapshot for a thread, or ErrEmpty
// for a thread that has never been checkpointed.
func (s *Store) LoadLatest(ctx context.Context, threadID string) (*Checkpoint, error) {
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() {
		observability.RecordCheckpointLoad(time.Since(start))
	}()

	if threadID == "" {
		return nil, fmt.Errorf("thread ID cannot be empty")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT turn_seq, node, messages, saved_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY turn_seq DESC
		LIMIT 1
	`, threadID)

	var (
		turnSeq int64
		node    string
		payload string
		savedAt int64
	)
	if err := row.Scan(&turnSeq, &node, &payload, &savedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(payload), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}

	logger.Debug().
		Str("thread_id", threadID).
		Int64("turn_seq", turnSeq).
		Str("node", node).
		Msg("Checkpoint loaded")

	return &Checkpoint{
		ThreadID: threadID,
		Node:     node,
		TurnSeq:  turnSeq,
		Messages: messages,
		SavedAt:  time.UnixMilli(savedAt),
	}, nil
}

// Prune deletes superseded snapshots older than the cutoff. The latest
// snapshot of every thread is always kept regardless of age.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM checkpoints
		WHERE saved_at < ?
		  AND turn_seq < (
			SELECT MAX(c2.turn_seq) FROM checkpoints c2
			WHERE c2.thread_id = checkpoints.thread_id
		  )
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune checkpoints: %w", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned checkpoints: %w", err)
	}

	if pruned > 0 {
		observability.RecordCheckpointsPruned(int(pruned))
		s.logger.Info().Int64("pruned", pruned).Msg("Checkpoints pruned")
	}

	return pruned, nil
}

// CountThreads returns the number of distinct checkpointed threads
func (s *Store) CountThreads(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT thread_id) FROM checkpoints`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count threads: %w", err)
	}
	return count, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
