package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pendergraft/codefund/internal/config"
)

// ApprovalStore records approval transactions submitted by the agent.
type ApprovalStore interface {
	RecordApproval(ctx context.Context, a *ApprovalRecord) error
	UpdateApprovalStatus(ctx context.Context, id, status string, blockNumber uint64, errMsg string) error
	ListPendingApprovals(ctx context.Context) ([]ApprovalRecord, error)
	GetLatestApproval(ctx context.Context, campaign string, milestone uint64) (*ApprovalRecord, error)
	ListApprovals(ctx context.Context, filter ApprovalFilter, limit int) ([]ApprovalRecord, error)
}

// Store combines the ledger with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	ApprovalStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}

// ApprovalRecord is one approveMilestone submission attempt.
type ApprovalRecord struct {
	ID          string
	Campaign    string // lowercase hex address
	Milestone   uint64
	TxHash      string // empty when the transaction was never signed
	Nonce       uint64
	Status      string
	BlockNumber uint64
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApprovalFilter contains filter options for listing approvals
type ApprovalFilter struct {
	Status   string
	Campaign string
}

// DefaultListLimit applies when ListApprovals is called with a non-positive limit.
const DefaultListLimit = 50

// MaxListLimit caps ListApprovals.
const MaxListLimit = 500

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
