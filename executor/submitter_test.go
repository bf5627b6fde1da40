package executor_test

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/primeflash/flasharb/chain"
	"github.com/primeflash/flasharb/chain/chaintest"
	"github.com/primeflash/flasharb/contract"
	"github.com/primeflash/flasharb/executor"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/types"
)

var (
	arbContract = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	weth        = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

func testOpportunity() *types.SimulationResult {
	return &types.SimulationResult{
		Pair: types.PairConfig{
			Name:       "BASE/SIDE",
			PathOut:    []common.Address{weth, arbContract},
			PathReturn: []common.Address{arbContract, weth},
		},
		AmountIn:  big.NewInt(1_000_000),
		NetProfit: big.NewInt(5000),
	}
}

func testQuote() *types.GasQuote {
	return &types.GasQuote{
		BaseFee:     big.NewInt(80_000_000_000),
		PriorityFee: big.NewInt(2_000_000_000),
		MaxFee:      big.NewInt(82_000_000_000),
	}
}

func newHarness(t *testing.T, client *chaintest.Client) (*executor.Submitter, *executor.ExecutionContext) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyHex := hex.EncodeToString(crypto.FromECDSA(key))

	binding, err := contract.NewBinding(arbContract, weth)
	require.NoError(t, err)

	ctx := context.Background()
	exec, err := executor.NewExecutionContext(ctx, client, binding, keyHex)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	revert, err := chain.NewRevertDecoder(client, logger)
	require.NoError(t, err)

	sub := executor.NewSubmitter(exec, executor.Config{
		GasBuffer:           1.2,
		DeadlineDelta:       time.Minute,
		ReceiptTimeout:      200 * time.Millisecond,
		ReceiptPollInterval: 20 * time.Millisecond,
	}, revert, notify.Nop{}, nil, logger)

	return sub, exec
}

func TestSubmitConfirmedAdvancesNonce(t *testing.T) {
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			return 5, nil
		},
	}
	sub, exec := newHarness(t, client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		outcome := sub.Submit(ctx, testOpportunity(), testQuote())
		assert.Equal(t, types.TxConfirmed, outcome.Status)
	}

	sent := client.SentTransactions()
	require.Len(t, sent, 3)
	for i, tx := range sent {
		assert.Equal(t, uint64(5+i), tx.Nonce())
	}

	held, ok := exec.Ledger.Held()
	require.True(t, ok)
	assert.Equal(t, uint64(7), held)
}

func TestSubmitRevertedRollsBackNonce(t *testing.T) {
	reverting := false
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			return 5, nil
		},
	}
	client.TransactionReceiptFn = func(_ context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
		status := ethtypes.ReceiptStatusSuccessful
		if reverting {
			status = ethtypes.ReceiptStatusFailed
		}
		return &ethtypes.Receipt{Status: status, TxHash: txHash, BlockNumber: big.NewInt(1)}, nil
	}

	sub, exec := newHarness(t, client)
	ctx := context.Background()

	outcome := sub.Submit(ctx, testOpportunity(), testQuote())
	require.Equal(t, types.TxConfirmed, outcome.Status)
	preAttempt, _ := exec.Ledger.Held()

	reverting = true
	outcome = sub.Submit(ctx, testOpportunity(), testQuote())
	assert.Equal(t, types.TxReverted, outcome.Status)
	assert.NotEmpty(t, outcome.Reason)

	// The decrement cancels the increment exactly.
	held, ok := exec.Ledger.Held()
	require.True(t, ok)
	assert.Equal(t, preAttempt, held)

	// The slot is retried on the next cycle.
	reverting = false
	outcome = sub.Submit(ctx, testOpportunity(), testQuote())
	require.Equal(t, types.TxConfirmed, outcome.Status)
	sent := client.SentTransactions()
	assert.Equal(t, sent[1].Nonce(), sent[2].Nonce())
}

func TestSubmitBroadcastFailureResyncsNonce(t *testing.T) {
	pending := uint64(5)
	failSend := true
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			return pending, nil
		},
		SendTransactionFn: func(context.Context, *ethtypes.Transaction) error {
			if failSend {
				return errors.New("broadcast refused")
			}
			return nil
		},
	}

	sub, exec := newHarness(t, client)
	ctx := context.Background()

	outcome := sub.Submit(ctx, testOpportunity(), testQuote())
	assert.Equal(t, types.TxSubmissionFailed, outcome.Status)

	// The next acquired nonce is the freshly fetched pending count.
	pending = 42
	failSend = false
	outcome = sub.Submit(ctx, testOpportunity(), testQuote())
	require.Equal(t, types.TxConfirmed, outcome.Status)

	sent := client.SentTransactions()
	assert.Equal(t, uint64(42), sent[len(sent)-1].Nonce())
	held, ok := exec.Ledger.Held()
	require.True(t, ok)
	assert.Equal(t, uint64(42), held)
}

func TestSubmitGasEstimationFailureAborts(t *testing.T) {
	client := &chaintest.Client{
		EstimateGasFn: func(context.Context, ethereum.CallMsg) (uint64, error) {
			return 0, errors.New("execution reverted")
		},
	}

	sub, _ := newHarness(t, client)
	outcome := sub.Submit(context.Background(), testOpportunity(), testQuote())

	assert.Equal(t, types.TxSubmissionFailed, outcome.Status)
	assert.Empty(t, client.SentTransactions())
}

func TestSubmitTimeoutKeepsNonce(t *testing.T) {
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			return 5, nil
		},
		TransactionReceiptFn: func(context.Context, common.Hash) (*ethtypes.Receipt, error) {
			return nil, ethereum.NotFound
		},
	}

	sub, exec := newHarness(t, client)
	outcome := sub.Submit(context.Background(), testOpportunity(), testQuote())

	assert.Equal(t, types.TxSent, outcome.Status)
	assert.NotEqual(t, common.Hash{}, outcome.TxHash)

	// Unresolved sends keep the slot; decrementing could collide with a
	// late inclusion.
	held, ok := exec.Ledger.Held()
	require.True(t, ok)
	assert.Equal(t, uint64(5), held)
}

func TestSubmitUsesQuoteFees(t *testing.T) {
	client := &chaintest.Client{}
	sub, _ := newHarness(t, client)

	outcome := sub.Submit(context.Background(), testOpportunity(), testQuote())
	require.Equal(t, types.TxConfirmed, outcome.Status)

	sent := client.SentTransactions()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, testQuote().MaxFee, tx.GasFeeCap())
	assert.Equal(t, testQuote().PriorityFee, tx.GasTipCap())
	assert.Equal(t, uint64(25200), tx.Gas()) // 21000 * 1.2
	assert.Equal(t, arbContract, *tx.To())
}
