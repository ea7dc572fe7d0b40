package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS approvals (
		id UUID PRIMARY KEY,
		campaign TEXT NOT NULL,
		milestone BIGINT NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT '',
		nonce BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		block_number BIGINT NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
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
func (s *PostgresStore) RecordApproval(ctx context.Context, a *ApprovalRecord) error {
	if err := prepareRecord(a, s.now()); err != nil {
		return err
	}
	query := `
		INSERT INTO approvals (id, campaign, milestone, tx_hash, nonce, status, block_number, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Campaign, int64(a.Milestone), a.TxHash, int64(a.Nonce), a.Status,
		int64(a.BlockNumber), a.Error, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording approval: %w", err)
	}
	return nil
}

// UpdateApprovalStatus sets the outcome of an approval attempt
func (s *PostgresStore) UpdateApprovalStatus(ctx context.Context, id, status string, blockNumber uint64, errMsg string) error {
	query := `UPDATE approvals SET status = $1, block_number = $2, error = $3, updated_at = $4 WHERE id = $5`
	res, err := s.db.ExecContext(ctx, query, status, int64(blockNumber), errMsg, s.now().UTC(), id)
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
func (s *PostgresStore) ListPendingApprovals(ctx context.Context) ([]ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE status = 'pending' ORDER BY created_at ASC`
	return s.queryApprovals(ctx, query)
}

// GetLatestApproval returns the most recent attempt for a milestone
func (s *PostgresStore) GetLatestApproval(ctx context.Context, campaign string, milestone uint64) (*ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE campaign = $1 AND milestone = $2 ORDER BY created_at DESC LIMIT 1`
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
func (s *PostgresStore) ListApprovals(ctx context.Context, filter ApprovalFilter, limit int) ([]ApprovalRecord, error) {
	where, args := filterClause(filter, func(n int) string { return fmt.Sprintf("$%d", n) })
	query := fmt.Sprintf(`SELECT %s FROM approvals%s ORDER BY created_at DESC LIMIT $%d`, approvalColumns, where, len(args)+1)
	args = append(args, clampLimit(limit))
	return s.queryApprovals(ctx, query, args...)
}

func (s *PostgresStore) queryApprovals(ctx context.Context, query string, args ...any) ([]ApprovalRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApprovalRecord
	for rows.Next() {
		var a ApprovalRecord
		var milestone, nonce, block int64
		if err := rows.Scan(&a.ID, &a.Campaign, &milestone, &a.TxHash, &nonce, &a.Status, &block, &a.Error, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Milestone, a.Nonce, a.BlockNumber = uint64(milestone), uint64(nonce), uint64(block)
		a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
