// Package chaintest provides a configurable in-memory chain.Client for
// component tests. Unset function fields fall back to benign defaults.
package chaintest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/primeflash/flasharb/chain"
)

type Client struct {
	mu sync.Mutex

	BlockNumberFn        func(ctx context.Context) (uint64, error)
	HeaderByNumberFn     func(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	CallContractFn       func(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGasFn        func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPriceFn    func(ctx context.Context) (*big.Int, error)
	SuggestGasTipCapFn   func(ctx context.Context) (*big.Int, error)
	PendingNonceAtFn     func(ctx context.Context, account common.Address) (uint64, error)
	ChainIDFn            func(ctx context.Context) (*big.Int, error)
	SendTransactionFn    func(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceiptFn func(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	TransactionByHashFn  func(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)

	sent             []*ethtypes.Transaction
	pendingNonceHits int
}

var _ chain.Client = (*Client)(nil)

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if c.BlockNumberFn != nil {
		return c.BlockNumberFn(ctx)
	}
	return 0, nil
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	if c.HeaderByNumberFn != nil {
		return c.HeaderByNumberFn(ctx, number)
	}
	return &ethtypes.Header{BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if c.CallContractFn != nil {
		return c.CallContractFn(ctx, msg, blockNumber)
	}
	return nil, ethereum.NotFound
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if c.EstimateGasFn != nil {
		return c.EstimateGasFn(ctx, msg)
	}
	return 21000, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if c.SuggestGasPriceFn != nil {
		return c.SuggestGasPriceFn(ctx)
	}
	return big.NewInt(1_000_000_000), nil
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if c.SuggestGasTipCapFn != nil {
		return c.SuggestGasTipCapFn(ctx)
	}
	return big.NewInt(1_000_000_000), nil
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	c.pendingNonceHits++
	c.mu.Unlock()
	if c.PendingNonceAtFn != nil {
		return c.PendingNonceAtFn(ctx, account)
	}
	return 0, nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if c.ChainIDFn != nil {
		return c.ChainIDFn(ctx)
	}
	return big.NewInt(1), nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	c.mu.Lock()
	c.sent = append(c.sent, tx)
	c.mu.Unlock()
	if c.SendTransactionFn != nil {
		return c.SendTransactionFn(ctx, tx)
	}
	return nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	if c.TransactionReceiptFn != nil {
		return c.TransactionReceiptFn(ctx, txHash)
	}
	return &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusSuccessful,
		TxHash:      txHash,
		BlockNumber: big.NewInt(1),
	}, nil
}

func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	if c.TransactionByHashFn != nil {
		return c.TransactionByHashFn(ctx, hash)
	}
	return nil, false, ethereum.NotFound
}

// SentTransactions returns every transaction handed to SendTransaction.
func (c *Client) SentTransactions() []*ethtypes.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ethtypes.Transaction, len(c.sent))
	copy(out, c.sent)
	return out
}

// PendingNonceCalls counts how many times the pending count was fetched.
func (c *Client) PendingNonceCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingNonceHits
}
