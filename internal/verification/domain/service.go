// Package domain contains the verification agent: it polls campaign
// milestones, checks the pull request oracle and submits approvals.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/pendergraft/codefund/internal/chains"
	"github.com/pendergraft/codefund/internal/events"
	"github.com/pendergraft/codefund/internal/observability/metrics"
	"github.com/pendergraft/codefund/internal/oracle"
	"github.com/pendergraft/codefund/internal/storage"
	"github.com/pendergraft/codefund/internal/validation"
)

// writeTimeout bounds ledger and event writes that must outlive a cancelled cycle.
const writeTimeout = 10 * time.Second

// Common errors returned by the verification service.
var (
	ErrEnumeration   = errors.New("campaign enumeration failed")
	ErrInvalidFilter = errors.New("invalid approval filter")
)

// Ledger defines the storage operations needed by the agent.
type Ledger interface {
	RecordApproval(ctx context.Context, a *storage.ApprovalRecord) error
	UpdateApprovalStatus(ctx context.Context, id, status string, blockNumber uint64, errMsg string) error
	ListPendingApprovals(ctx context.Context) ([]storage.ApprovalRecord, error)
	GetLatestApproval(ctx context.Context, campaign string, milestone uint64) (*storage.ApprovalRecord, error)
	ListApprovals(ctx context.Context, filter storage.ApprovalFilter, limit int) ([]storage.ApprovalRecord, error)
}

// Service defines the verification agent.
type Service interface {
	// RunCycle performs one poll-verify-approve pass. It returns an error only
	// when campaigns cannot be enumerated or ctx ends; per-milestone failures
	// are logged and counted in the report.
	RunCycle(ctx context.Context) (*CycleReport, error)

	// Run repeats RunCycle with a fixed delay until ctx is cancelled.
	Run(ctx context.Context) error

	// Status reports the outcome of recent cycles.
	Status() Status

	// Ready reports whether a cycle completed without aborting recently.
	Ready(now time.Time) bool

	// ListApprovals lists ledger entries, newest first.
	ListApprovals(ctx context.Context, filter ApprovalFilter, limit int) ([]Approval, error)
}

// Deps are the collaborators of the agent.
type Deps struct {
	Reader   chains.Reader
	Approver chains.Approver
	Oracle   oracle.Checker
	Ledger   Ledger
	Events   events.Publisher
	Logger   *slog.Logger
}

type milestoneKey struct {
	campaign common.Address
	index    uint64
}

// service implements the Service interface.
type service struct {
	reader   chains.Reader
	approver chains.Approver
	oracle   oracle.Checker
	ledger   Ledger
	events   events.Publisher
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time

	mu           sync.Mutex
	status       Status
	cycleRunning time.Time // start of the cycle in progress, zero when idle
}

// NewService creates a new verification service.
func NewService(deps Deps, cfg Config) Service {
	return newService(deps, cfg, time.Now)
}

func newService(deps Deps, cfg Config, now func() time.Time) *service {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.OracleHost == "" {
		cfg.OracleHost = "github.com"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 30 * time.Minute
	}
	return &service{
		reader:   deps.Reader,
		approver: deps.Approver,
		oracle:   deps.Oracle,
		ledger:   deps.Ledger,
		events:   deps.Events,
		logger:   deps.Logger,
		cfg:      cfg,
		now:      now,
	}
}

// Run repeats RunCycle until ctx is cancelled. The delay is measured from the
// end of a cycle, so a slow cycle pushes back the next one.
func (s *service) Run(ctx context.Context) error {
	s.logger.Info("agent started",
		"interval", s.cfg.Interval,
		"pending_ttl", s.cfg.PendingTTL,
		"agent_address", s.approver.Address().Hex(),
	)
	for {
		if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("cycle aborted", "error", err)
		}

		timer := time.NewTimer(s.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("agent stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle performs one poll-verify-approve pass.
func (s *service) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ID: uuid.New().String(), StartedAt: s.now()}
	logger := s.logger.With("cycle_id", report.ID)
	logger.Info("cycle started")
	s.startCycle(report.StartedAt)

	err := s.runCycle(ctx, logger, report)

	report.Duration = s.now().Sub(report.StartedAt)
	report.Aborted = err != nil
	s.finishCycle(report, err)

	status := "ok"
	if err != nil {
		status = "aborted"
	}
	metrics.AgentCycle(status, report.Duration)
	logger.Info("cycle finished",
		"status", status,
		"duration", report.Duration,
		"campaigns", report.Campaigns,
		"milestones", report.Milestones,
		"checked", report.Checked,
		"approved", report.Approved,
		"skipped", report.Skipped,
		"errors", report.Errors,
		"reconciled", report.Reconciled,
	)
	return report, err
}

func (s *service) runCycle(ctx context.Context, logger *slog.Logger, report *CycleReport) error {
	s.reconcile(ctx, logger, report)

	campaigns, err := s.reader.ListCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	report.Campaigns = len(campaigns)

	submitted := make(map[milestoneKey]struct{})
	for _, campaign := range campaigns {
		if err := ctx.Err(); err != nil {
			return err
		}

		milestones, err := s.reader.Milestones(ctx, campaign)
		if err != nil {
			logger.Warn("reading milestones failed", "campaign", campaign.Hex(), "error", err)
			report.Errors++
			continue
		}
		for i, m := range milestones {
			s.processMilestone(ctx, logger, report, submitted, campaign, uint64(i), m)
		}
	}
	return nil
}

// processMilestone evaluates one milestone. Every failure is logged and
// counted; none is returned.
func (s *service) processMilestone(
	ctx context.Context,
	logger *slog.Logger,
	report *CycleReport,
	submitted map[milestoneKey]struct{},
	campaign common.Address,
	index uint64,
	m chains.MilestoneRecord,
) {
	report.Milestones++
	logger = logger.With("campaign", campaign.Hex(), "milestone", index)

	skip := func(result string) {
		report.Skipped++
		metrics.AgentMilestone(result)
	}

	if !m.Pending() {
		skip("settled")
		return
	}

	ref, err := oracle.ParsePullRequestURL(m.VerificationURL, s.cfg.OracleHost)
	if err != nil {
		logger.Info("skipping milestone with malformed verification URL", "url", m.VerificationURL)
		skip("malformed_url")
		return
	}

	latest, err := s.ledger.GetLatestApproval(ctx, campaign.Hex(), index)
	switch {
	case err == nil && latest.Status == string(chains.StatusPending):
		logger.Info("skipping milestone with unresolved submission", "tx_hash", latest.TxHash)
		skip("awaiting_receipt")
		return
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		logger.Warn("reading approval ledger failed", "error", err)
		report.Errors++
		metrics.AgentMilestone("ledger_error")
		return
	}

	key := milestoneKey{campaign: campaign, index: index}
	if _, done := submitted[key]; done {
		skip("already_submitted")
		return
	}

	merged, err := s.oracle.IsMerged(ctx, ref)
	if err != nil {
		logger.Warn("oracle check failed", "pull_request", ref.String(), "error", err)
		report.Errors++
		metrics.AgentMilestone("oracle_error")
		return
	}
	report.Checked++
	if !merged {
		logger.Debug("pull request not merged yet", "pull_request", ref.String())
		metrics.AgentMilestone("not_merged")
		return
	}

	submitted[key] = struct{}{}
	logger.Info("pull request merged, submitting approval", "pull_request", ref.String())
	sub := s.approver.Approve(ctx, campaign, index)
	s.recordSubmission(ctx, logger, sub)

	switch sub.Status {
	case chains.StatusConfirmed, chains.StatusPending:
		report.Approved++
		metrics.AgentMilestone("approved")
	default:
		report.Errors++
		metrics.AgentMilestone("approval_failed")
	}
}

// recordSubmission writes the outcome to the ledger and publishes it.
func (s *service) recordSubmission(ctx context.Context, logger *slog.Logger, sub chains.Submission) {
	rec := &storage.ApprovalRecord{
		Campaign:    sub.Campaign.Hex(),
		Milestone:   sub.Milestone,
		Nonce:       sub.Nonce,
		Status:      string(sub.Status),
		BlockNumber: sub.BlockNumber,
	}
	if sub.TxHash != (common.Hash{}) {
		rec.TxHash = sub.TxHash.Hex()
	}
	if sub.Err != nil {
		rec.Error = sub.Err.Error()
	}

	logArgs := []any{"status", rec.Status, "tx_hash", rec.TxHash, "nonce", rec.Nonce, "block", rec.BlockNumber}
	switch sub.Status {
	case chains.StatusConfirmed:
		logger.Info("approval confirmed", logArgs...)
	case chains.StatusPending:
		logger.Warn("approval receipt not seen before timeout, outcome unknown", logArgs...)
	default:
		logger.Error("approval failed", append(logArgs, "error", rec.Error)...)
	}
	metrics.AgentApproval(rec.Status)

	// Once broadcast, the attempt is recorded even if shutdown cancelled ctx.
	wctx, cancel := detached(ctx)
	defer cancel()
	if err := s.ledger.RecordApproval(wctx, rec); err != nil {
		logger.Error("recording approval failed", "error", err)
	}
	s.publish(wctx, logger, rec.Campaign, rec.Milestone, rec.TxHash, rec.Status, rec.BlockNumber, rec.Error)
}

// reconcile resolves ledger entries left pending by earlier cycles or runs.
func (s *service) reconcile(ctx context.Context, logger *slog.Logger, report *CycleReport) {
	pending, err := s.ledger.ListPendingApprovals(ctx)
	if err != nil {
		logger.Warn("listing pending approvals failed", "error", err)
		report.Errors++
		return
	}

	for _, p := range pending {
		plog := logger.With("campaign", p.Campaign, "milestone", p.Milestone, "tx_hash", p.TxHash)

		status, block, errMsg := "", uint64(0), ""
		if p.TxHash != "" {
			info, err := s.approver.Receipt(ctx, common.HexToHash(p.TxHash))
			if err != nil {
				plog.Warn("receipt lookup failed", "error", err)
				report.Errors++
				continue
			}
			if info.Found {
				status, block = string(info.Status), info.BlockNumber
			}
		}
		if status == "" {
			if s.now().Sub(p.CreatedAt) < s.cfg.PendingTTL {
				continue
			}
			status, errMsg = string(chains.StatusDropped), "no receipt within pending TTL"
		}

		wctx, cancel := detached(ctx)
		err := s.ledger.UpdateApprovalStatus(wctx, p.ID, status, block, errMsg)
		if err != nil {
			cancel()
			plog.Error("updating approval failed", "error", err)
			report.Errors++
			continue
		}
		report.Reconciled++
		metrics.AgentApproval(status)
		plog.Info("pending approval resolved", "status", status, "block", block)
		s.publish(wctx, plog, p.Campaign, p.Milestone, p.TxHash, status, block, errMsg)
		cancel()
	}
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}

func (s *service) publish(ctx context.Context, logger *slog.Logger, campaign string, milestone uint64, txHash, status string, block uint64, errMsg string) {
	e := events.NewApprovalEvent(campaign, milestone, txHash, status, block, errMsg, s.now())
	if err := s.events.Publish(ctx, e); err != nil {
		logger.Warn("publishing approval event failed", "event_id", e.ID, "error", err)
	}
}

func (s *service) startCycle(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleRunning = at
}

func (s *service) finishCycle(report *CycleReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleRunning = time.Time{}
	s.status.LastCycleID = report.ID
	s.status.LastCycleAt = report.StartedAt.Add(report.Duration)
	s.status.LastCycleDuration = report.Duration
	s.status.CyclesRun++
	if err != nil {
		s.status.LastError = err.Error()
		return
	}
	s.status.LastError = ""
	s.status.LastSuccessAt = s.status.LastCycleAt
}

// Status reports the outcome of recent cycles.
func (s *service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Ready reports whether a cycle completed without aborting within three
// intervals. While a cycle runs, staleness is measured up to its start, so
// slow receipt waits inside the cycle do not count against it.
func (s *service) Ready(now time.Time) bool {
	s.mu.Lock()
	last, running := s.status.LastSuccessAt, s.cycleRunning
	s.mu.Unlock()
	if last.IsZero() {
		return false
	}
	ref := now
	if !running.IsZero() && running.Before(ref) {
		ref = running
	}
	return ref.Sub(last) <= 3*s.cfg.Interval
}

// ListApprovals lists ledger entries, newest first.
func (s *service) ListApprovals(ctx context.Context, filter ApprovalFilter, limit int) ([]Approval, error) {
	err := validation.ValidateOneOf("status", filter.Status,
		string(chains.StatusPending), string(chains.StatusConfirmed), string(chains.StatusReverted),
		string(chains.StatusFailed), string(chains.StatusDropped))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if filter.Campaign != "" {
		if err := validation.ValidateAddress(filter.Campaign); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}
	if limit == 0 {
		limit = storage.DefaultListLimit
	}
	if err := validation.ValidateLimit(limit, storage.MaxListLimit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	records, err := s.ledger.ListApprovals(ctx, storage.ApprovalFilter{Status: filter.Status, Campaign: filter.Campaign}, limit)
	if err != nil {
		return nil, fmt.Errorf("listing approvals: %w", err)
	}
	out := make([]Approval, len(records))
	for i, r := range records {
		out[i] = approvalFromRecord(r)
	}
	return out, nil
}
