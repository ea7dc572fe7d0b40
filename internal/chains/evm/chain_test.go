package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/codefund/internal/chains"
)

var (
	factoryAddr  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	campaignAddr = common.HexToAddress("0xa16E02E87b7454126E5E10d957A927A7F5B5d2be")
	devAddr      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	backerAddr   = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// setupClient returns a client whose fake backend serves one campaign.
func setupClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	c, err := New(backend, factoryAddr)
	require.NoError(t, err)

	pack := func(method string, values ...any) ([]byte, []byte) {
		var m = c.campaignABI.Methods[method]
		if method == "getDeployedCampaigns" {
			m = c.factoryABI.Methods[method]
		}
		out, err := m.Outputs.Pack(values...)
		require.NoError(t, err, method)
		return m.ID, out
	}

	sel, out := pack("getDeployedCampaigns", []common.Address{campaignAddr})
	backend.respond(factoryAddr, sel, out)

	sel, out = pack("getCampaignDetails",
		"CodeFund", "Open source funding", "https://github.com/codefund/app",
		ether(10), big.NewInt(1767225600), ether(3), devAddr)
	backend.respond(campaignAddr, sel, out)

	sel, out = pack("getMilestones", []milestoneTuple{
		{Description: "MVP", Amount: ether(4), VerificationUrl: "https://github.com/codefund/app/pull/1", Verified: true, FundsReleased: true},
		{Description: "Beta", Amount: ether(6), VerificationUrl: "https://github.com/codefund/app/pull/2"},
	})
	backend.respond(campaignAddr, sel, out)

	sel, out = pack("contributions", ether(1))
	backend.respond(campaignAddr, sel, out)

	sel, out = pack("contributorCount", big.NewInt(7))
	backend.respond(campaignAddr, sel, out)

	return c, backend
}

func TestClient_ListCampaigns(t *testing.T) {
	c, _ := setupClient(t)

	addrs, err := c.ListCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{campaignAddr}, addrs)
}

func TestClient_CampaignDetails(t *testing.T) {
	c, _ := setupClient(t)

	rec, err := c.CampaignDetails(context.Background(), campaignAddr)
	require.NoError(t, err)
	assert.Equal(t, "CodeFund", rec.Name)
	assert.Equal(t, "Open source funding", rec.Description)
	assert.Equal(t, "https://github.com/codefund/app", rec.GithubURL)
	assert.Equal(t, 0, rec.FundingGoal.Cmp(ether(10)))
	assert.Equal(t, int64(1767225600), rec.Deadline.Int64())
	assert.Equal(t, 0, rec.TotalRaised.Cmp(ether(3)))
	assert.Equal(t, devAddr, rec.Developer)
}

func TestClient_Milestones(t *testing.T) {
	c, _ := setupClient(t)

	ms, err := c.Milestones(context.Background(), campaignAddr)
	require.NoError(t, err)
	require.Len(t, ms, 2)

	assert.Equal(t, "MVP", ms[0].Description)
	assert.True(t, ms[0].Verified)
	assert.True(t, ms[0].FundsReleased)
	assert.False(t, ms[0].Pending())

	assert.Equal(t, "Beta", ms[1].Description)
	assert.Equal(t, 0, ms[1].Amount.Cmp(ether(6)))
	assert.Equal(t, "https://github.com/codefund/app/pull/2", ms[1].VerificationURL)
	assert.True(t, ms[1].Pending())
}

func TestClient_ContributionAndCount(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()

	amount, err := c.Contribution(ctx, campaignAddr, backerAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(ether(1)))

	count, err := c.ContributorCount(ctx, campaignAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), count)
}

func TestClient_NotCampaign(t *testing.T) {
	c, _ := setupClient(t)

	_, err := c.CampaignDetails(context.Background(), backerAddr)
	assert.ErrorIs(t, err, chains.ErrNotCampaign)
}

func TestClient_RPCError(t *testing.T) {
	c, backend := setupClient(t)
	backend.callErr = errors.New("connection refused")

	_, err := c.ListCampaigns(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotErrorIs(t, err, chains.ErrNotCampaign)
}

func TestClient_MalformedResponse(t *testing.T) {
	c, backend := setupClient(t)
	backend.respond(campaignAddr, c.campaignABI.Methods["getCampaignDetails"].ID, []byte{0x01, 0x02})

	_, err := c.CampaignDetails(context.Background(), campaignAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding getCampaignDetails")
}
