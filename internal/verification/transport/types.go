package transport

import (
	"time"

	"github.com/pendergraft/codefund/internal/verification/domain"
)

// ApprovalResponse is one ledger entry.
type ApprovalResponse struct {
	ID          string    `json:"id"`
	Campaign    string    `json:"campaign_address"`
	Milestone   uint64    `json:"milestone_index"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Nonce       uint64    `json:"nonce"`
	Status      string    `json:"status"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListApprovalsResponse wraps a ledger listing.
type ListApprovalsResponse struct {
	Data  []ApprovalResponse `json:"data"`
	Count int                `json:"count"`
}

// StatusResponse reports recent agent activity.
type StatusResponse struct {
	LastCycleID       string     `json:"last_cycle_id,omitempty"`
	LastCycleAt       *time.Time `json:"last_cycle_at,omitempty"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	CyclesRun         int64      `json:"cycles_run"`
	LastCycleDuration float64    `json:"last_cycle_duration_seconds"`
}

// FromApprovals converts ledger entries.
func FromApprovals(approvals []domain.Approval) ListApprovalsResponse {
	data := make([]ApprovalResponse, len(approvals))
	for i, a := range approvals {
		data[i] = ApprovalResponse{
			ID:          a.ID,
			Campaign:    a.Campaign,
			Milestone:   a.Milestone,
			TxHash:      a.TxHash,
			Nonce:       a.Nonce,
			Status:      a.Status,
			BlockNumber: a.BlockNumber,
			Error:       a.Error,
			CreatedAt:   a.CreatedAt.UTC(),
			UpdatedAt:   a.UpdatedAt.UTC(),
		}
	}
	return ListApprovalsResponse{Data: data, Count: len(data)}
}

// FromStatus converts the agent status.
func FromStatus(s domain.Status) StatusResponse {
	return StatusResponse{
		LastCycleID:       s.LastCycleID,
		LastCycleAt:       optionalTime(s.LastCycleAt),
		LastSuccessAt:     optionalTime(s.LastSuccessAt),
		LastError:         s.LastError,
		CyclesRun:         s.CyclesRun,
		LastCycleDuration: s.LastCycleDuration.Seconds(),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
