// Package chains defines the contract read layer and the approval
// transaction submitter shared by the API server and the verification agent.
package chains

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotCampaign is returned when an address does not answer the Campaign ABI.
var ErrNotCampaign = errors.New("address is not a campaign contract")

// Reader reads factory and campaign state from the current chain head.
// Nothing is cached: every call is an RPC round trip.
type Reader interface {
	ListCampaigns(ctx context.Context) ([]common.Address, error)
	CampaignDetails(ctx context.Context, campaign common.Address) (*CampaignRecord, error)
	Milestones(ctx context.Context, campaign common.Address) ([]MilestoneRecord, error)
	Contribution(ctx context.Context, campaign, account common.Address) (*big.Int, error)
	ContributorCount(ctx context.Context, campaign common.Address) (uint64, error)
}

// Approver signs and submits milestone approvals with the agent account.
type Approver interface {
	Address() common.Address
	Approve(ctx context.Context, campaign common.Address, milestone uint64) Submission
	Receipt(ctx context.Context, txHash common.Hash) (*ReceiptInfo, error)
}

// CampaignRecord mirrors Campaign.getCampaignDetails().
type CampaignRecord struct {
	Name        string
	Description string
	GithubURL   string
	FundingGoal *big.Int // wei
	Deadline    *big.Int // unix seconds
	TotalRaised *big.Int // wei
	Developer   common.Address
}

// MilestoneRecord mirrors one element of Campaign.getMilestones().
type MilestoneRecord struct {
	Description     string
	Amount          *big.Int // wei
	VerificationURL string
	Verified        bool
	FundsReleased   bool
}

// Pending reports whether the milestone still awaits verification.
func (m MilestoneRecord) Pending() bool {
	return !m.Verified && !m.FundsReleased
}

// SubmissionStatus is the known outcome of an approval transaction.
type SubmissionStatus string

const (
	// StatusPending means the transaction was broadcast but no receipt was seen
	// before the wait bound expired. It may still confirm.
	StatusPending SubmissionStatus = "pending"
	// StatusConfirmed means the transaction was mined successfully.
	StatusConfirmed SubmissionStatus = "confirmed"
	// StatusReverted means the transaction was mined and reverted.
	StatusReverted SubmissionStatus = "reverted"
	// StatusFailed means the transaction never reached the network.
	StatusFailed SubmissionStatus = "failed"
	// StatusDropped means a pending transaction outlived the pending TTL without a receipt.
	StatusDropped SubmissionStatus = "dropped"
)

// Final reports whether no further reconciliation is needed.
func (s SubmissionStatus) Final() bool {
	return s != StatusPending
}

// Submission describes one approval attempt.
type Submission struct {
	Campaign    common.Address
	Milestone   uint64
	TxHash      common.Hash // zero when the transaction was never signed
	Nonce       uint64
	Status      SubmissionStatus
	BlockNumber uint64
	Err         error
}

// ReceiptInfo is the result of a one-shot receipt lookup.
type ReceiptInfo struct {
	Found       bool
	Status      SubmissionStatus // confirmed or reverted when Found
	BlockNumber uint64
}
