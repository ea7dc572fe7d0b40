package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pendergraft/codefund/internal/chains"
	"github.com/pendergraft/codefund/internal/observability/metrics"
)

// Defaults applied by NewSigner when SignerConfig leaves a field zero.
const (
	DefaultGasLimit       uint64 = 200000
	DefaultReceiptTimeout        = 3 * time.Minute
)

// SignerConfig configures approval submission.
type SignerConfig struct {
	// ChainID for EIP-155 signing. Zero asks the node.
	ChainID        int64
	GasLimit       uint64
	ReceiptTimeout time.Duration
}

// Signer submits approveMilestone transactions with the agent key.
type Signer struct {
	client         *Client
	key            *ecdsa.PrivateKey
	address        common.Address
	chainID        *big.Int
	gasLimit       uint64
	receiptTimeout time.Duration
}

var _ chains.Approver = (*Signer)(nil)

// NewSigner parses the hex private key and resolves the chain ID.
func NewSigner(ctx context.Context, client *Client, keyHex string, cfg SignerConfig) (*Signer, error) {
	key, err := parseKey(keyHex)
	if err != nil {
		return nil, err
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = client.backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching chain id: %w", err)
		}
	}

	s := &Signer{
		client:         client,
		key:            key,
		address:        crypto.PubkeyToAddress(key.PublicKey),
		chainID:        chainID,
		gasLimit:       cfg.GasLimit,
		receiptTimeout: cfg.ReceiptTimeout,
	}
	if s.gasLimit == 0 {
		s.gasLimit = DefaultGasLimit
	}
	if s.receiptTimeout <= 0 {
		s.receiptTimeout = DefaultReceiptTimeout
	}
	return s, nil
}

// AddressFromKey derives the account address of a hex private key.
func AddressFromKey(keyHex string) (common.Address, error) {
	key, err := parseKey(keyHex)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func parseKey(keyHex string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	if trimmed == "" {
		return nil, errors.New("private key is empty")
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		// The underlying error may echo key material.
		return nil, errors.New("private key is not a valid secp256k1 hex key")
	}
	return key, nil
}

// Address returns the agent account address.
func (s *Signer) Address() common.Address {
	return s.address
}

// ChainID returns the chain ID used for signing.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Approve submits approveMilestone(milestone) to campaign and waits for the
// receipt up to the receipt timeout. A timeout, or a send error that does not
// prove rejection, yields StatusPending.
func (s *Signer) Approve(ctx context.Context, campaign common.Address, milestone uint64) chains.Submission {
	sub := chains.Submission{Campaign: campaign, Milestone: milestone}
	fail := func(err error) chains.Submission {
		sub.Status = chains.StatusFailed
		sub.Err = err
		metrics.ChainSubmission(string(sub.Status))
		return sub
	}

	data, err := s.client.campaignABI.Pack("approveMilestone", new(big.Int).SetUint64(milestone))
	if err != nil {
		return fail(fmt.Errorf("packing approveMilestone: %w", err))
	}

	nonce, err := s.client.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return fail(fmt.Errorf("fetching nonce: %w", err))
	}
	gasPrice, err := s.client.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fail(fmt.Errorf("fetching gas price: %w", err))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      s.gasLimit,
		To:       &campaign,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), s.key)
	if err != nil {
		return fail(fmt.Errorf("signing transaction: %w", err))
	}
	sub.Nonce = nonce
	sub.TxHash = signed.Hash()

	if err := s.client.backend.SendTransaction(ctx, signed); err != nil {
		if !sendMayHaveBroadcast(err) {
			return fail(fmt.Errorf("sending transaction: %w", err))
		}
		// The node may hold the transaction; reconciliation looks up its receipt.
		sub.Status = chains.StatusPending
		sub.Err = fmt.Errorf("sending transaction: %w", err)
		metrics.ChainSubmission(string(sub.Status))
		return sub
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, s.client.backend, signed)
	if err != nil || receipt == nil {
		sub.Status = chains.StatusPending
		metrics.ChainSubmission(string(sub.Status))
		return sub
	}

	sub.Status, sub.BlockNumber = receiptOutcome(receipt)
	if sub.Status == chains.StatusReverted {
		sub.Err = fmt.Errorf("transaction %s reverted", sub.TxHash.Hex())
	}
	metrics.ChainSubmission(string(sub.Status))
	return sub
}

// sendMayHaveBroadcast reports whether a SendTransaction error leaves the
// transaction's fate unknown. A JSON-RPC error reply is a rejection, except
// "already known" which means the pool already holds it. Transport failures
// and timeouts are ambiguous.
func sendMayHaveBroadcast(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return strings.Contains(strings.ToLower(rpcErr.Error()), "already known")
	}
	return true
}

// Receipt performs a single receipt lookup.
func (s *Signer) Receipt(ctx context.Context, txHash common.Hash) (*chains.ReceiptInfo, error) {
	receipt, err := s.client.backend.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) || (err == nil && receipt == nil) {
		return &chains.ReceiptInfo{Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching receipt %s: %w", txHash.Hex(), err)
	}
	status, block := receiptOutcome(receipt)
	return &chains.ReceiptInfo{Found: true, Status: status, BlockNumber: block}, nil
}

func receiptOutcome(r *types.Receipt) (chains.SubmissionStatus, uint64) {
	var block uint64
	if r.BlockNumber != nil {
		block = r.BlockNumber.Uint64()
	}
	if r.Status == types.ReceiptStatusSuccessful {
		return chains.StatusConfirmed, block
	}
	return chains.StatusReverted, block
}
