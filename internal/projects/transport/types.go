package transport

import (
	"github.com/pendergraft/codefund/internal/projects/domain"
	"github.com/pendergraft/codefund/internal/units"
)

// ProjectSummaryResponse is a campaign in list endpoints.
type ProjectSummaryResponse struct {
	CampaignAddress   string      `json:"campaign_address"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	FundingGoalEth    units.Ether `json:"funding_goal_eth"`
	TotalRaisedEth    units.Ether `json:"total_raised_eth"`
	DeveloperAddress  string      `json:"developer_address"`
	DeadlineFormatted string      `json:"deadline_formatted"`
	DaysLeft          int64       `json:"days_left"`
}

// ProjectDetailResponse is a campaign with milestones.
type ProjectDetailResponse struct {
	ProjectSummaryResponse
	GithubURL        string              `json:"githubUrl"`
	ContributorCount uint64              `json:"contributor_count"`
	Milestones       []MilestoneResponse `json:"milestones"`
}

// MilestoneResponse is one milestone of a campaign.
type MilestoneResponse struct {
	Description     string      `json:"description"`
	AmountEth       units.Ether `json:"amount_eth"`
	Verified        bool        `json:"verified"`
	FundsReleased   bool        `json:"funds_released"`
	VerificationURL string      `json:"verificationUrl"`
}

// FromSummary converts a domain summary to its response form.
func FromSummary(p domain.ProjectSummary) ProjectSummaryResponse {
	return ProjectSummaryResponse{
		CampaignAddress:   p.Address.Hex(),
		Name:              p.Name,
		Description:       p.Description,
		FundingGoalEth:    p.FundingGoal,
		TotalRaisedEth:    p.TotalRaised,
		DeveloperAddress:  p.Developer.Hex(),
		DeadlineFormatted: p.Deadline.Formatted,
		DaysLeft:          p.Deadline.DaysLeft,
	}
}

// FromSummaries converts a list, always returning a non-nil slice.
func FromSummaries(ps []domain.ProjectSummary) []ProjectSummaryResponse {
	out := make([]ProjectSummaryResponse, len(ps))
	for i, p := range ps {
		out[i] = FromSummary(p)
	}
	return out
}

// FromDetail converts a domain detail to its response form.
func FromDetail(d *domain.ProjectDetail) ProjectDetailResponse {
	milestones := make([]MilestoneResponse, len(d.Milestones))
	for i, m := range d.Milestones {
		milestones[i] = MilestoneResponse{
			Description:     m.Description,
			AmountEth:       m.Amount,
			Verified:        m.Verified,
			FundsReleased:   m.FundsReleased,
			VerificationURL: m.VerificationURL,
		}
	}
	return ProjectDetailResponse{
		ProjectSummaryResponse: FromSummary(d.ProjectSummary),
		GithubURL:              d.GithubURL,
		ContributorCount:       d.ContributorCount,
		Milestones:             milestones,
	}
}
