package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/codefund/internal/chains"
	"github.com/pendergraft/codefund/internal/units"
	"github.com/pendergraft/codefund/internal/validation"
)

// Common errors returned by the project service.
var (
	ErrNotFound       = errors.New("project not found")
	ErrUpstream       = errors.New("blockchain read failed")
	ErrInvalidAddress = errors.New("invalid address")
	ErrTimeout        = errors.New("blockchain read timed out")
)

// Service defines the project read service.
type Service interface {
	// List returns every campaign, newest first.
	List(ctx context.Context) ([]ProjectSummary, error)

	// Get returns one campaign with milestones.
	Get(ctx context.Context, address string) (*ProjectDetail, error)

	// CreatedBy returns campaigns whose developer is user, newest first.
	CreatedBy(ctx context.Context, user string) ([]ProjectSummary, error)

	// ContributedBy returns campaigns user has contributed to, newest first.
	ContributedBy(ctx context.Context, user string) ([]ProjectSummary, error)
}

// service implements the Service interface.
type service struct {
	reader chains.Reader
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a project service rendering dates in loc (UTC when nil).
func NewService(reader chains.Reader, loc *time.Location) Service {
	return newService(reader, loc, time.Now)
}

func newService(reader chains.Reader, loc *time.Location, now func() time.Time) *service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{reader: reader, loc: loc, now: now}
}

// List returns every campaign, newest first.
func (s *service) List(ctx context.Context) ([]ProjectSummary, error) {
	addrs, err := s.reader.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing campaigns: %v", ErrUpstream, err)
	}

	now := s.now()
	out := make([]ProjectSummary, 0, len(addrs))
	for _, addr := range newestFirst(addrs) {
		rec, err := s.reader.CampaignDetails(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrUpstream, addr.Hex(), err)
		}
		out = append(out, s.summary(addr, rec, now))
	}
	return out, nil
}

// Get returns one campaign with milestones. Any failure to read the address
// as a campaign is reported as ErrNotFound.
func (s *service) Get(ctx context.Context, address string) (*ProjectDetail, error) {
	addr, err := validation.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	rec, err := s.reader.CampaignDetails(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: reading details: %v", ErrNotFound, err)
	}
	milestones, err := s.reader.Milestones(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: reading milestones: %v", ErrNotFound, err)
	}
	count, err := s.reader.ContributorCount(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: reading contributor count: %v", ErrNotFound, err)
	}

	detail := &ProjectDetail{
		ProjectSummary:   s.summary(addr, rec, s.now()),
		GithubURL:        rec.GithubURL,
		ContributorCount: count,
		Milestones:       make([]Milestone, len(milestones)),
	}
	for i, m := range milestones {
		detail.Milestones[i] = Milestone{
			Description:     m.Description,
			Amount:          units.FromWei(m.Amount),
			VerificationURL: m.VerificationURL,
			Verified:        m.Verified,
			FundsReleased:   m.FundsReleased,
		}
	}
	return detail, nil
}

// CreatedBy compares user with each developer address ignoring case. A user
// value that is not an address simply matches nothing.
func (s *service) CreatedBy(ctx context.Context, user string) ([]ProjectSummary, error) {
	addrs, err := s.reader.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing campaigns: %v", ErrUpstream, err)
	}

	want := strings.ToLower(strings.TrimSpace(user))
	now := s.now()
	out := []ProjectSummary{}
	for _, addr := range newestFirst(addrs) {
		rec, err := s.reader.CampaignDetails(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrUpstream, addr.Hex(), err)
		}
		if strings.ToLower(rec.Developer.Hex()) == want {
			out = append(out, s.summary(addr, rec, now))
		}
	}
	return out, nil
}

// ContributedBy returns campaigns where contributions(user) is positive.
func (s *service) ContributedBy(ctx context.Context, user string) ([]ProjectSummary, error) {
	account, err := validation.ParseAddress(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	addrs, err := s.reader.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing campaigns: %v", ErrUpstream, err)
	}

	now := s.now()
	out := []ProjectSummary{}
	for _, addr := range newestFirst(addrs) {
		amount, err := s.reader.Contribution(ctx, addr, account)
		if err != nil {
			return nil, fmt.Errorf("%w: reading contribution to %s: %v", ErrUpstream, addr.Hex(), err)
		}
		if amount == nil || amount.Sign() <= 0 {
			continue
		}
		rec, err := s.reader.CampaignDetails(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrUpstream, addr.Hex(), err)
		}
		out = append(out, s.summary(addr, rec, now))
	}
	return out, nil
}

func (s *service) summary(addr common.Address, rec *chains.CampaignRecord, now time.Time) ProjectSummary {
	return ProjectSummary{
		Address:     addr,
		Name:        rec.Name,
		Description: rec.Description,
		FundingGoal: units.FromWei(rec.FundingGoal),
		TotalRaised: units.FromWei(rec.TotalRaised),
		Developer:   rec.Developer,
		Deadline:    renderDeadline(rec.Deadline, now, s.loc),
	}
}

// newestFirst returns addrs in reverse discovery order without modifying addrs.
func newestFirst(addrs []common.Address) []common.Address {
	out := make([]common.Address, len(addrs))
	for i, a := range addrs {
		out[len(addrs)-1-i] = a
	}
	return out
}
