// Package domain contains the read model that turns on-chain campaign state
// into project views.
package domain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/codefund/internal/units"
)

// ProjectSummary is a campaign as shown in project listings.
type ProjectSummary struct {
	Address     common.Address
	Name        string
	Description string
	FundingGoal units.Ether
	TotalRaised units.Ether
	Developer   common.Address
	Deadline    Deadline
}

// ProjectDetail is a campaign with its milestones.
type ProjectDetail struct {
	ProjectSummary
	GithubURL        string
	ContributorCount uint64
	Milestones       []Milestone
}

// Milestone is one funded deliverable of a campaign.
type Milestone struct {
	Description     string
	Amount          units.Ether
	VerificationURL string
	Verified        bool
	FundsReleased   bool
}

// Deadline is a rendered campaign deadline.
type Deadline struct {
	Formatted string
	DaysLeft  int64
}
