package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// The agent is the only writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS approvals (
		id TEXT PRIMARY KEY,
		campaign TEXT NOT NULL,
		milestone INTEGER NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT '',
		nonce INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		block_number INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_lookup ON approvals(campaign, milestone, created_at);
	CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

// RecordApproval inserts a new approval attempt
func (s *SQLiteStore) RecordApproval(ctx context.Context, a *ApprovalRecord) error {
	if err := prepareRecord(a, s.now()); err != nil {
		return err
	}
	query := `
		INSERT INTO approvals (id, campaign, milestone, tx_hash, nonce, status, block_number, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Campaign, int64(a.Milestone), a.TxHash, int64(a.Nonce), a.Status,
		int64(a.BlockNumber), a.Error, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("recording approval: %w", err)
	}
	return nil
}

// UpdateApprovalStatus sets the outcome of an approval attempt
func (s *SQLiteStore) UpdateApprovalStatus(ctx context.Context, id, status string, blockNumber uint64, errMsg string) error {
	query := `UPDATE approvals SET status = ?, block_number = ?, error = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, status, int64(blockNumber), errMsg, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("updating approval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPendingApprovals returns unresolved approvals, oldest first
func (s *SQLiteStore) ListPendingApprovals(ctx context.Context) ([]ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE status = 'pending' ORDER BY created_at ASC`
	return s.queryApprovals(ctx, query)
}

// GetLatestApproval returns the most recent attempt for a milestone
func (s *SQLiteStore) GetLatestApproval(ctx context.Context, campaign string, milestone uint64) (*ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE campaign = ? AND milestone = ? ORDER BY created_at DESC LIMIT 1`
	rows, err := s.queryApprovals(ctx, query, normalizeAddress(campaign), int64(milestone))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// ListApprovals lists approvals newest first
func (s *SQLiteStore) ListApprovals(ctx context.Context, filter ApprovalFilter, limit int) ([]ApprovalRecord, error) {
	where, args := filterClause(filter, func(int) string { return "?" })
	query := `SELECT ` + approvalColumns + ` FROM approvals` + where + ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, clampLimit(limit))
	return s.queryApprovals(ctx, query, args...)
}

const approvalColumns = `id, campaign, milestone, tx_hash, nonce, status, block_number, error, created_at, updated_at`

func (s *SQLiteStore) queryApprovals(ctx context.Context, query string, args ...any) ([]ApprovalRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApprovalRecord
	for rows.Next() {
		var a ApprovalRecord
		var milestone, nonce, block int64
		var created, updated string
		if err := rows.Scan(&a.ID, &a.Campaign, &milestone, &a.TxHash, &nonce, &a.Status, &block, &a.Error, &created, &updated); err != nil {
			return nil, err
		}
		a.Milestone, a.Nonce, a.BlockNumber = uint64(milestone), uint64(nonce), uint64(block)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if a.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
