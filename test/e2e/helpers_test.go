//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pendergraft/codefund/internal/chains"
	"github.com/pendergraft/codefund/internal/config"
	"github.com/pendergraft/codefund/internal/oracle"
	"github.com/pendergraft/codefund/internal/storage"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	Store             storage.Store
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("codefund"),
		postgres.WithUsername("codefund"),
		postgres.WithPassword("codefund"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	return container, connString, nil
}

// openStoreE opens the approval ledger against the container and migrates it
func openStoreE(ctx context.Context, connString string) (storage.Store, error) {
	store, err := storage.New(config.StorageConfig{
		Type:     "postgres",
		Postgres: config.PostgresConfig{URL: connString},
	}, discardLogger())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// uniqueCampaign returns an address no other test uses, so tests sharing the
// database don't see each other's rows.
func uniqueCampaign(t *testing.T) common.Address {
	t.Helper()
	return common.BytesToAddress([]byte(t.Name()))
}

// fakeChain is an in-memory factory with campaigns and milestones that
// flips a milestone to verified when its approval is "mined".
type fakeChain struct {
	mu         sync.Mutex
	campaigns  []common.Address
	details    map[common.Address]*chains.CampaignRecord
	milestones map[common.Address][]chains.MilestoneRecord
	approvals  []chains.Submission
	mineStatus chains.SubmissionStatus
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		details:    make(map[common.Address]*chains.CampaignRecord),
		milestones: make(map[common.Address][]chains.MilestoneRecord),
		mineStatus: chains.StatusConfirmed,
	}
}

func (f *fakeChain) addCampaign(addr common.Address, developer common.Address, urls ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns = append(f.campaigns, addr)
	f.details[addr] = &chains.CampaignRecord{
		Name:        "Campaign " + addr.Hex()[:8],
		Description: "e2e",
		GithubURL:   "https://github.com/acme/widgets",
		FundingGoal: big.NewInt(2e18),
		TotalRaised: big.NewInt(5e17),
		Deadline:    big.NewInt(time.Now().Add(72 * time.Hour).Unix()),
		Developer:   developer,
	}
	for _, u := range urls {
		f.milestones[addr] = append(f.milestones[addr], chains.MilestoneRecord{
			Description:     "milestone",
			Amount:          big.NewInt(1e18),
			VerificationURL: u,
		})
	}
}

func (f *fakeChain) ListCampaigns(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address(nil), f.campaigns...), nil
}

func (f *fakeChain) CampaignDetails(ctx context.Context, c common.Address) (*chains.CampaignRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.details[c]
	if !ok {
		return nil, chains.ErrNotCampaign
	}
	return rec, nil
}

func (f *fakeChain) Milestones(ctx context.Context, c common.Address) ([]chains.MilestoneRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chains.MilestoneRecord(nil), f.milestones[c]...), nil
}

func (f *fakeChain) Contribution(ctx context.Context, c, account common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeChain) ContributorCount(ctx context.Context, c common.Address) (uint64, error) {
	return 1, nil
}

func (f *fakeChain) Address() common.Address {
	return common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
}

func (f *fakeChain) Approve(ctx context.Context, c common.Address, milestone uint64) chains.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := chains.Submission{
		Campaign:  c,
		Milestone: milestone,
		TxHash:    common.BigToHash(big.NewInt(int64(len(f.approvals) + 1))),
		Nonce:     uint64(len(f.approvals)),
		Status:    f.mineStatus,
	}
	if f.mineStatus == chains.StatusConfirmed {
		sub.BlockNumber = uint64(1000 + len(f.approvals))
		f.milestones[c][milestone].Verified = true
	}
	f.approvals = append(f.approvals, sub)
	return sub
}

func (f *fakeChain) Receipt(ctx context.Context, txHash common.Hash) (*chains.ReceiptInfo, error) {
	return &chains.ReceiptInfo{Found: false}, nil
}

func (f *fakeChain) approvalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.approvals)
}

// fakeOracle reports merged pull requests by "owner/repo#n".
type fakeOracle struct {
	merged map[string]bool
}

func (o *fakeOracle) IsMerged(ctx context.Context, ref oracle.PullRequestRef) (bool, error) {
	return o.merged[strings.ToLower(ref.String())], nil
}
