package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/codefund/internal/chains"
)

// Well-known development key (anvil/hardhat account 0).
const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newTestSigner(t *testing.T, cfg SignerConfig) (*Signer, *fakeBackend) {
	t.Helper()
	c, backend := setupClient(t)
	s, err := NewSigner(context.Background(), c, testKey, cfg)
	require.NoError(t, err)
	return s, backend
}

func TestAddressFromKey(t *testing.T) {
	addr, err := AddressFromKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testKeyAddr), addr)

	_, err = AddressFromKey("")
	assert.Error(t, err)

	_, err = AddressFromKey("0xnothex")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "nothex")
}

func TestNewSigner_ChainID(t *testing.T) {
	s, _ := newTestSigner(t, SignerConfig{})
	assert.Equal(t, int64(11155111), s.ChainID().Int64(), "asks the node when unset")
	assert.Equal(t, DefaultGasLimit, s.gasLimit)
	assert.Equal(t, DefaultReceiptTimeout, s.receiptTimeout)

	s, _ = newTestSigner(t, SignerConfig{ChainID: 31337, GasLimit: 150000})
	assert.Equal(t, int64(31337), s.ChainID().Int64())
	assert.Equal(t, uint64(150000), s.gasLimit)
}

func TestSigner_Approve_Confirmed(t *testing.T) {
	s, backend := newTestSigner(t, SignerConfig{ReceiptTimeout: 5 * time.Second})
	backend.nonce = 9
	backend.mineOnSend = true

	sub := s.Approve(context.Background(), campaignAddr, 1)
	require.NoError(t, sub.Err)
	assert.Equal(t, chains.StatusConfirmed, sub.Status)
	assert.Equal(t, uint64(4242), sub.BlockNumber)
	assert.Equal(t, uint64(9), sub.Nonce)
	assert.Equal(t, campaignAddr, sub.Campaign)
	assert.Equal(t, uint64(1), sub.Milestone)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, sub.TxHash, tx.Hash())
	assert.Equal(t, types.LegacyTxType, int(tx.Type()))
	assert.Equal(t, DefaultGasLimit, tx.Gas())
	assert.Equal(t, 0, tx.GasPrice().Cmp(big.NewInt(2_000_000_000)))
	assert.Equal(t, uint64(9), tx.Nonce())
	assert.Equal(t, campaignAddr, *tx.To())

	want, err := s.client.campaignABI.Pack("approveMilestone", big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, want, tx.Data())

	from, err := types.Sender(types.NewEIP155Signer(s.ChainID()), tx)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testKeyAddr), from)
}

func TestSigner_Approve_Reverted(t *testing.T) {
	s, backend := newTestSigner(t, SignerConfig{ReceiptTimeout: 5 * time.Second})
	backend.mineOnSend = true
	backend.mineStatus = types.ReceiptStatusFailed

	sub := s.Approve(context.Background(), campaignAddr, 0)
	assert.Equal(t, chains.StatusReverted, sub.Status)
	assert.Error(t, sub.Err)
}

func TestSigner_Approve_TimeoutIsPending(t *testing.T) {
	s, backend := newTestSigner(t, SignerConfig{ReceiptTimeout: 50 * time.Millisecond})

	sub := s.Approve(context.Background(), campaignAddr, 1)
	assert.Equal(t, chains.StatusPending, sub.Status)
	assert.NoError(t, sub.Err)
	assert.NotEqual(t, common.Hash{}, sub.TxHash)
	assert.Len(t, backend.sent, 1)
}

// rpcError is a JSON-RPC error reply from the node.
type rpcError struct {
	code int
	msg  string
}

func (e rpcError) Error() string  { return e.msg }
func (e rpcError) ErrorCode() int { return e.code }

func TestSigner_Approve_AmbiguousSendIsPending(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "transport timeout", err: context.DeadlineExceeded},
		{name: "connection reset", err: errors.New("Post \"http://node:8545\": read: connection reset by peer")},
		{name: "already in pool", err: rpcError{code: -32000, msg: "already known"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend := newTestSigner(t, SignerConfig{ReceiptTimeout: 50 * time.Millisecond})
			backend.nonce = 9
			backend.sendErr = tt.err

			sub := s.Approve(context.Background(), campaignAddr, 1)
			assert.Equal(t, chains.StatusPending, sub.Status)
			assert.ErrorIs(t, sub.Err, tt.err)
			assert.NotEqual(t, common.Hash{}, sub.TxHash, "hash is kept for reconciliation")
			assert.Equal(t, uint64(9), sub.Nonce)
		})
	}
}

func TestSigner_Approve_Failed(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*fakeBackend)
		signed bool
	}{
		{
			name:  "nonce lookup fails",
			setup: func(b *fakeBackend) { b.nonceErr = errors.New("rpc down") },
		},
		{
			name:   "send rejected",
			setup:  func(b *fakeBackend) { b.sendErr = rpcError{code: -32000, msg: "insufficient funds for gas * price + value"} },
			signed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend := newTestSigner(t, SignerConfig{})
			tt.setup(backend)

			sub := s.Approve(context.Background(), campaignAddr, 1)
			assert.Equal(t, chains.StatusFailed, sub.Status)
			assert.Error(t, sub.Err)
			assert.Equal(t, tt.signed, sub.TxHash != common.Hash{})
			assert.Empty(t, backend.sent)
		})
	}
}

func TestSigner_Receipt(t *testing.T) {
	s, backend := newTestSigner(t, SignerConfig{})
	ctx := context.Background()

	hash := common.HexToHash("0x01")
	info, err := s.Receipt(ctx, hash)
	require.NoError(t, err)
	assert.False(t, info.Found)

	backend.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7)}
	info, err = s.Receipt(ctx, hash)
	require.NoError(t, err)
	assert.True(t, info.Found)
	assert.Equal(t, chains.StatusConfirmed, info.Status)
	assert.Equal(t, uint64(7), info.BlockNumber)

	backend.receiptErr = errors.New("timeout")
	_, err = s.Receipt(ctx, hash)
	assert.Error(t, err)
}
