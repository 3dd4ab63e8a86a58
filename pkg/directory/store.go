package directory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harun/switchboard/internal/observability"
	"github.com/harun/switchboard/internal/tracing"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store is a sqlite-backed session directory
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the directory database at the given path
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

	logger.Info().Str("path", dbPath).Msg("Session directory opened")

	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			tenant_id    TEXT NOT NULL,
			user_id      TEXT NOT NULL,
			session_id   TEXT NOT NULL,
			active_agent TEXT NOT NULL,
			name         TEXT NOT NULL DEFAULT '',
			age          TEXT NOT NULL DEFAULT '',
			address      TEXT NOT NULL DEFAULT '',
			chat_name    TEXT NOT NULL DEFAULT '',
			updated_at   INTEGER NOT NULL,
			PRIMARY KEY (tenant_id, user_id, session_id)
		);
	`)
	return err
}

// Lookup returns the record for a session identity, or ErrNotFound
func (s *Store) Lookup(ctx context.Context, tenantID, userID, sessionID string) (*SessionRecord, error) {
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()

	row := s.db.QueryRowContext(ctx, `
		SELECT active_agent, name, age, address, chat_name, updated_at
		FROM sessions
		WHERE tenant_id = ? AND user_id = ? AND session_id = ?
	`, tenantID, userID, sessionID)

	rec := &SessionRecord{
		SessionIdentity: SessionIdentity{TenantID: tenantID, UserID: userID, SessionID: sessionID},
	}
	var updatedAt int64
	err := row.Scan(&rec.ActiveAgent, &rec.Name, &rec.Age, &rec.Address, &rec.ChatName, &updatedAt)
	if err == sql.ErrNoRows {
		observability.RecordDirectoryOp("lookup", time.Since(start), true)
		return nil, ErrNotFound
	}
	if err != nil {
		observability.RecordDirectoryOp("lookup", time.Since(start), false)
		return nil, fmt.Errorf("failed to look up session record: %w", err)
	}
	rec.UpdatedAt = time.UnixMilli(updatedAt)

	observability.RecordDirectoryOp("lookup", time.Since(start), true)
	logger.Debug().
		Str("session_id", sessionID).
		Str("active_agent", rec.ActiveAgent).
		Msg("Session record found")

	return rec, nil
}

// Upsert creates or fully replaces a record. The operation is idempotent.
func (s *Store) Upsert(ctx context.Context, rec *SessionRecord) error {
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()

	if rec.TenantID == "" || rec.UserID == "" || rec.SessionID == "" {
		return fmt.Errorf("tenant, user and session IDs are all required")
	}
	if rec.ActiveAgent == "" {
		rec.ActiveAgent = ActiveAgentUnknown
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(tenant_id, user_id, session_id, active_agent, name, age, address, chat_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.TenantID, rec.UserID, rec.SessionID, rec.ActiveAgent,
		rec.Name, rec.Age, rec.Address, rec.ChatName, time.Now().UnixMilli())
	if err != nil {
		observability.RecordDirectoryOp("upsert", time.Since(start), false)
		return fmt.Errorf("failed to upsert session record: %w", err)
	}

	observability.RecordDirectoryOp("upsert", time.Since(start), true)
	logger.Debug().
		Str("session_id", rec.SessionID).
		Str("active_agent", rec.ActiveAgent).
		Msg("Session record upserted")

	return nil
}

// PatchActiveAgent atomically updates the active agent field of an existing
// record. Returns ErrNotFound when no record exists; the caller must Upsert
// before the first patch. The new value is visible to the next Lookup.
func (s *Store) PatchActiveAgent(ctx context.Context, tenantID, userID, sessionID, agentName string) error {
	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()

	if agentName == "" {
		return fmt.Errorf("agent name cannot be empty")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET active_agent = ?, updated_at = ?
		WHERE tenant_id = ? AND user_id = ? AND session_id = ?
	`, agentName, time.Now().UnixMilli(), tenantID, userID, sessionID)
	if err != nil {
		observability.RecordDirectoryOp("patch", time.Since(start), false)
		return fmt.Errorf("failed to patch active agent: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		observability.RecordDirectoryOp("patch", time.Since(start), false)
		return fmt.Errorf("failed to check patch result: %w", err)
	}
	if affected == 0 {
		observability.RecordDirectoryOp("patch", time.Since(start), true)
		return ErrNotFound
	}

	observability.RecordDirectoryOp("patch", time.Since(start), true)
	logger.Debug().
		Str("session_id", sessionID).
		Str("active_agent", agentName).
		Msg("Active agent patched")

	return nil
}

// Delete removes a record. Used for session teardown and tests; not on the
// turn-critical path.
func (s *Store) Delete(ctx context.Context, tenantID, userID, sessionID string) error {
	start := time.Now()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE tenant_id = ? AND user_id = ? AND session_id = ?
	`, tenantID, userID, sessionID)
	if err != nil {
		observability.RecordDirectoryOp("delete", time.Since(start), false)
		return fmt.Errorf("failed to delete session record: %w", err)
	}

	observability.RecordDirectoryOp("delete", time.Since(start), true)
	return nil
}

// ListByUser returns all records for a tenant/user pair. Administrative and
// debug path only; never used while routing a turn.
func (s *Store) ListByUser(ctx context.Context, tenantID, userID string) ([]*SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, active_agent, name, age, address, chat_name, updated_at
		FROM sessions
		WHERE tenant_id = ? AND user_id = ?
		ORDER BY updated_at DESC
	`, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	defer rows.Close()

	var records []*SessionRecord
	for rows.Next() {
		rec := &SessionRecord{
			SessionIdentity: SessionIdentity{TenantID: tenantID, UserID: userID},
		}
		var updatedAt int64
		if err := rows.Scan(&rec.SessionID, &rec.ActiveAgent, &rec.Name, &rec.Age,
			&rec.Address, &rec.ChatName, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session record: %w", err)
		}
		rec.UpdatedAt = time.UnixMilli(updatedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session records: %w", err)
	}

	return records, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
