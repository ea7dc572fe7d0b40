package domain

import (
	"time"

	"github.com/pendergraft/codefund/internal/storage"
)

// Config holds the agent's cycle settings.
type Config struct {
	// OracleHost is the host accepted in pull request verification URLs.
	OracleHost string
	// Interval is the delay between the end of one cycle and the start of the next.
	Interval time.Duration
	// PendingTTL is how long a submission may stay without a receipt before
	// it is marked dropped and the milestone becomes eligible again.
	PendingTTL time.Duration
}

// CycleReport summarizes one poll-verify-approve cycle.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Campaigns  int
	Milestones int
	Checked    int // oracle lookups that returned an answer
	Approved   int // submissions confirmed or still pending
	Skipped    int
	Errors     int
	Reconciled int // ledger entries resolved before the scan
	Aborted    bool
}

// Status describes the agent's recent activity for readiness probes.
type Status struct {
	LastCycleID       string
	LastCycleAt       time.Time
	LastSuccessAt     time.Time
	LastError         string
	CyclesRun         int64
	LastCycleDuration time.Duration
}

// Approval is one recorded approval attempt.
type Approval struct {
	ID          string
	Campaign    string
	Milestone   uint64
	TxHash      string
	Nonce       uint64
	Status      string
	BlockNumber uint64
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApprovalFilter selects ledger entries.
type ApprovalFilter struct {
	Status   string
	Campaign string
}

func approvalFromRecord(r storage.ApprovalRecord) Approval {
	return Approval{
		ID:          r.ID,
		Campaign:    r.Campaign,
		Milestone:   r.Milestone,
		TxHash:      r.TxHash,
		Nonce:       r.Nonce,
		Status:      r.Status,
		BlockNumber: r.BlockNumber,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
