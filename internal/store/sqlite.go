package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/fitcoach/internal/domain"
	"github.com/ashureev/fitcoach/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the sweeper purge while conversations append.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS visitors (
		visitor_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transcript_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		visitor_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		text TEXT NOT NULL,
		step TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_owner
		ON transcript_entries(visitor_id, session_id, conversation_id, seq);
	CREATE INDEX IF NOT EXISTS idx_transcript_created ON transcript_entries(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetVisitor retrieves a visitor by ID.
func (s *SQLiteStore) GetVisitor(ctx context.Context, visitorID string) (*domain.Visitor, error) {
	query := `
		SELECT visitor_id, display_name, last_seen_at, created_at, updated_at
		FROM visitors WHERE visitor_id = ?`

	var v domain.Visitor
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, visitorID).Scan(
		&v.VisitorID, &v.DisplayName, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan visitor row: %w", err)
	}

	v.LastSeenAt = time.Unix(lastSeen, 0)
	v.CreatedAt = time.Unix(createdAt, 0)
	v.UpdatedAt = time.Unix(updatedAt, 0)
	return &v, nil
}

// UpsertVisitor creates or updates a visitor record.
func (s *SQLiteStore) UpsertVisitor(ctx context.Context, v *domain.Visitor) error {
	query := `
	INSERT INTO visitors (visitor_id, display_name, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(visitor_id) DO UPDATE SET
		display_name = excluded.display_name,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return shared.RetryOnConflict(ctx, s.retry, "upsert visitor", func() error {
		_, err := s.db.ExecContext(ctx, query,
			v.VisitorID, v.DisplayName, v.LastSeenAt.Unix(),
			v.CreatedAt.Unix(), v.UpdatedAt.Unix(),
		)
		return err
	})
}

// TouchVisitor updates the last_seen_at timestamp for a visitor.
func (s *SQLiteStore) TouchVisitor(ctx context.Context, visitorID string, seen time.Time) error {
	query := `UPDATE visitors SET last_seen_at = ?, updated_at = ? WHERE visitor_id = ?`

	var rows int64
	err := shared.RetryOnConflict(ctx, s.retry, "touch visitor", func() error {
		result, err := s.db.ExecContext(ctx, query, seen.Unix(), time.Now().Unix(), visitorID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		slog.Warn("TouchVisitor affected 0 rows", "visitor_id", visitorID)
	}
	return nil
}

// AppendTranscript stores entries in one transaction.
func (s *SQLiteStore) AppendTranscript(ctx context.Context, entries []domain.TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return shared.RetryOnConflict(ctx, s.retry, "append transcript", func() error {
		return s.appendOnce(ctx, entries)
	})
}

func (s *SQLiteStore) appendOnce(ctx context.Context, entries []domain.TranscriptEntry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript_entries
			(visitor_id, session_id, conversation_id, seq, speaker, text, step, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err = stmt.ExecContext(ctx,
			e.VisitorID, e.SessionID, e.ConversationID, e.Seq,
			e.Speaker, e.Text, e.Step, created.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert entry %d: %w", e.Seq, err)
		}
	}
	return tx.Commit()
}

// ListTranscript returns matching entries oldest first.
func (s *SQLiteStore) ListTranscript(ctx context.Context, f domain.TranscriptFilter) ([]domain.TranscriptEntry, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, visitor_id, session_id, conversation_id, seq, speaker, text, step, created_at
		FROM transcript_entries WHERE visitor_id = ? AND session_id = ?`)
	args := []any{f.VisitorID, f.SessionID}
	if f.ConversationID != "" {
		b.WriteString(` AND conversation_id = ?`)
		args = append(args, f.ConversationID)
	}
	b.WriteString(` ORDER BY id ASC`)
	if f.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close transcript rows", "error", closeErr)
		}
	}()

	var out []domain.TranscriptEntry
	for rows.Next() {
		var e domain.TranscriptEntry
		var created int64
		if err := rows.Scan(
			&e.ID, &e.VisitorID, &e.SessionID, &e.ConversationID,
			&e.Seq, &e.Speaker, &e.Text, &e.Step, &created,
		); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return out, nil
}

// DeleteTranscriptsBefore removes entries created before cutoff.
func (s *SQLiteStore) DeleteTranscriptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := shared.RetryOnConflict(ctx, s.retry, "purge transcripts", func() error {
		result, err := s.db.ExecContext(ctx,
			`DELETE FROM transcript_entries WHERE created_at < ?`, cutoff.UnixMilli())
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
