// Package evm implements the chain read layer and approval submission on
// top of go-ethereum's JSON-RPC client.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pendergraft/codefund/internal/chains"
	"github.com/pendergraft/codefund/internal/observability/metrics"
)

// Backend is the subset of *ethclient.Client used by this package.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client implements chains.Reader against a factory contract.
type Client struct {
	backend     Backend
	factory     common.Address
	factoryABI  abi.ABI
	campaignABI abi.ABI
	closeFn     func()
}

var _ chains.Reader = (*Client)(nil)

// New creates a client over an existing backend.
func New(backend Backend, factory common.Address) (*Client, error) {
	fABI, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, fmt.Errorf("parsing factory ABI: %w", err)
	}
	cABI, err := abi.JSON(strings.NewReader(campaignABI))
	if err != nil {
		return nil, fmt.Errorf("parsing campaign ABI: %w", err)
	}
	return &Client{
		backend:     backend,
		factory:     factory,
		factoryABI:  fABI,
		campaignABI: cABI,
		closeFn:     func() {},
	}, nil
}

// Dial connects to an RPC endpoint and creates a client for the factory.
func Dial(ctx context.Context, rpcURL string, factory common.Address) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
	}
	c, err := New(ec, factory)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closeFn = ec.Close
	return c, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.closeFn()
}

// Factory returns the factory contract address.
func (c *Client) Factory() common.Address {
	return c.factory
}

// ListCampaigns returns every campaign deployed by the factory, in discovery order.
func (c *Client) ListCampaigns(ctx context.Context) ([]common.Address, error) {
	out, err := c.call(ctx, &c.factoryABI, c.factory, "getDeployedCampaigns")
	if err != nil {
		return nil, err
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getDeployedCampaigns: unexpected result type %T", out[0])
	}
	return addrs, nil
}

// CampaignDetails reads the campaign header.
func (c *Client) CampaignDetails(ctx context.Context, campaign common.Address) (*chains.CampaignRecord, error) {
	out, err := c.call(ctx, &c.campaignABI, campaign, "getCampaignDetails")
	if err != nil {
		return nil, err
	}

	rec := &chains.CampaignRecord{}
	var ok [7]bool
	rec.Name, ok[0] = out[0].(string)
	rec.Description, ok[1] = out[1].(string)
	rec.GithubURL, ok[2] = out[2].(string)
	rec.FundingGoal, ok[3] = out[3].(*big.Int)
	rec.Deadline, ok[4] = out[4].(*big.Int)
	rec.TotalRaised, ok[5] = out[5].(*big.Int)
	rec.Developer, ok[6] = out[6].(common.Address)
	for i, good := range ok {
		if !good {
			return nil, fmt.Errorf("getCampaignDetails: unexpected type %T for output %d", out[i], i)
		}
	}
	return rec, nil
}

// Milestones reads the campaign's milestone list in index order.
func (c *Client) Milestones(ctx context.Context, campaign common.Address) ([]chains.MilestoneRecord, error) {
	out, err := c.call(ctx, &c.campaignABI, campaign, "getMilestones")
	if err != nil {
		return nil, err
	}

	tuples, err := convertMilestones(out[0])
	if err != nil {
		return nil, err
	}

	records := make([]chains.MilestoneRecord, len(tuples))
	for i, m := range tuples {
		records[i] = chains.MilestoneRecord{
			Description:     m.Description,
			Amount:          m.Amount,
			VerificationURL: m.VerificationUrl,
			Verified:        m.Verified,
			FundsReleased:   m.FundsReleased,
		}
	}
	return records, nil
}

// Contribution returns the amount account has contributed to campaign, in wei.
func (c *Client) Contribution(ctx context.Context, campaign, account common.Address) (*big.Int, error) {
	out, err := c.call(ctx, &c.campaignABI, campaign, "contributions", account)
	if err != nil {
		return nil, err
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("contributions: unexpected result type %T", out[0])
	}
	return amount, nil
}

// ContributorCount returns the number of distinct contributors.
func (c *Client) ContributorCount(ctx context.Context, campaign common.Address) (uint64, error) {
	out, err := c.call(ctx, &c.campaignABI, campaign, "contributorCount")
	if err != nil {
		return 0, err
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("contributorCount: unexpected result type %T", out[0])
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("contributorCount: value %s out of range", count)
	}
	return count.Uint64(), nil
}

// call packs, executes and unpacks a read-only contract call at the chain head.
func (c *Client) call(ctx context.Context, contract *abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		metrics.ChainRead(method, "error")
		return nil, fmt.Errorf("calling %s on %s: %w", method, to.Hex(), err)
	}
	if len(raw) == 0 {
		// Calls to accounts without code succeed with empty output.
		metrics.ChainRead(method, "error")
		return nil, fmt.Errorf("calling %s on %s: %w", method, to.Hex(), chains.ErrNotCampaign)
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		metrics.ChainRead(method, "error")
		return nil, fmt.Errorf("decoding %s from %s: %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		metrics.ChainRead(method, "error")
		return nil, fmt.Errorf("decoding %s from %s: no outputs", method, to.Hex())
	}
	metrics.ChainRead(method, "ok")
	return out, nil
}

// convertMilestones maps the decoder's anonymous struct slice onto milestoneTuple.
func convertMilestones(v any) (tuples []milestoneTuple, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("getMilestones: unexpected result type %T: %v", v, r)
		}
	}()
	converted, ok := abi.ConvertType(v, new([]milestoneTuple)).(*[]milestoneTuple)
	if !ok {
		return nil, errors.New("getMilestones: unexpected result shape")
	}
	return *converted, nil
}
