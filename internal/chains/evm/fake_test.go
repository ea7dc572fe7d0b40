package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend answers contract calls from canned, ABI-encoded responses keyed
// by target address and 4-byte selector.
type fakeBackend struct {
	mu sync.Mutex

	responses map[common.Address]map[string][]byte
	callErr   error

	nonce    uint64
	nonceErr error
	gasPrice *big.Int
	chainID  *big.Int
	sendErr  error

	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	// mineOnSend produces a receipt for every sent transaction.
	mineOnSend    bool
	mineStatus    uint64
	receiptErr    error
	receiptLookup int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses:  make(map[common.Address]map[string][]byte),
		gasPrice:   big.NewInt(2_000_000_000),
		chainID:    big.NewInt(11155111),
		receipts:   make(map[common.Hash]*types.Receipt),
		mineStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) respond(to common.Address, selector []byte, output []byte) {
	if f.responses[to] == nil {
		f.responses[to] = make(map[string][]byte)
	}
	f.responses[to][string(selector)] = output
}

func (f *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	if call.To == nil || len(call.Data) < 4 {
		return nil, errors.New("bad call")
	}
	byAddr, ok := f.responses[*call.To]
	if !ok {
		// No code at the address.
		return nil, nil
	}
	return byAddr[string(call.Data[:4])], nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptLookup++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, f.nonceErr
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	if f.mineOnSend {
		f.receipts[tx.Hash()] = &types.Receipt{
			Status:      f.mineStatus,
			TxHash:      tx.Hash(),
			BlockNumber: big.NewInt(4242),
		}
	}
	return nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}
