// Package store keeps an audit trail of the replies the bot attempted.
// Nothing here is consulted when deciding whether to reply.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"jokebot/internal/domain"
)

// SQLiteStore implements domain.ReplyAuditor on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Stats summarises the audit table.
type Stats struct {
	Total  int `json:"total"`
	Posted int `json:"posted"`
	Failed int `json:"failed"`
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) RecordReply(ctx context.Context, rec domain.ReplyRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO replies (message_id, sender, trigger_kind, term, text, posted, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MessageID, rec.Sender, rec.Trigger, rec.Term, rec.Text, rec.Posted, rec.Source, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record reply %s: %w", rec.MessageID, err)
	}
	return nil
}

// RecentReplies returns up to limit rows, newest first.
func (s *SQLiteStore) RecentReplies(ctx context.Context, limit int) ([]domain.ReplyRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, sender, trigger_kind, term, text, posted, source, created_at
		 FROM replies ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReplyRecord
	for rows.Next() {
		var r domain.ReplyRecord
		if err := rows.Scan(&r.ID, &r.MessageID, &r.Sender, &r.Trigger, &r.Term, &r.Text, &r.Posted, &r.Source, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountReplies(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN posted THEN 1 ELSE 0 END), 0) FROM replies`,
	).Scan(&st.Total, &st.Posted)
	if err != nil {
		return Stats{}, err
	}
	st.Failed = st.Total - st.Posted
	return st, nil
}

// Prune deletes rows older than maxAge and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM replies WHERE created_at < ?`, time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
