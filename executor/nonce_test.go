package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeflash/flasharb/chain/chaintest"
	"github.com/primeflash/flasharb/executor"
)

var account = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestNonceLedgerSequence(t *testing.T) {
	pending := uint64(7)
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			return pending, nil
		},
	}

	ledger := executor.NewNonceLedger(client, account)
	ctx := context.Background()

	ledger.Lock()
	for i := uint64(0); i < 3; i++ {
		n, err := ledger.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, pending+i, n)
	}
	ledger.Unlock()

	// Only the first acquisition touches the network.
	assert.Equal(t, 1, client.PendingNonceCalls())

	held, ok := ledger.Held()
	require.True(t, ok)
	assert.Equal(t, pending+2, held)
}

func TestNonceLedgerRollback(t *testing.T) {
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			return 10, nil
		},
	}

	ledger := executor.NewNonceLedger(client, account)
	ctx := context.Background()

	ledger.Lock()
	_, err := ledger.Next(ctx) // 10
	require.NoError(t, err)
	n, err := ledger.Next(ctx) // 11
	require.NoError(t, err)
	require.Equal(t, uint64(11), n)

	ledger.Rollback()
	ledger.Unlock()

	held, ok := ledger.Held()
	require.True(t, ok)
	assert.Equal(t, uint64(10), held)

	// The rolled-back slot is handed out again next cycle.
	ledger.Lock()
	n, err = ledger.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), n)
	ledger.Unlock()
}

func TestNonceLedgerResync(t *testing.T) {
	pending := uint64(5)
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			return pending, nil
		},
	}

	ledger := executor.NewNonceLedger(client, account)
	ctx := context.Background()

	ledger.Lock()
	_, err := ledger.Next(ctx) // 5
	require.NoError(t, err)
	_, err = ledger.Next(ctx) // 6
	require.NoError(t, err)

	// The chain moved on while we were failing.
	pending = 42
	require.NoError(t, ledger.Resync(ctx))

	// The next acquired nonce is the freshly fetched pending count, not
	// preAttempt + 1.
	n, err := ledger.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	// And increments resume from there.
	n, err = ledger.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), n)
	ledger.Unlock()
}

func TestNonceLedgerResyncFailureDropsState(t *testing.T) {
	fail := false
	pending := uint64(3)
	client := &chaintest.Client{
		PendingNonceAtFn: func(context.Context, common.Address) (uint64, error) {
			if fail {
				return 0, errors.New("rpc down")
			}
			return pending, nil
		},
	}

	ledger := executor.NewNonceLedger(client, account)
	ctx := context.Background()

	ledger.Lock()
	_, err := ledger.Next(ctx)
	require.NoError(t, err)

	fail = true
	require.Error(t, ledger.Resync(ctx))
	ledger.Unlock()

	_, ok := ledger.Held()
	assert.False(t, ok)

	// Recovery refetches once the network is back.
	fail = false
	pending = 9
	ledger.Lock()
	n, err := ledger.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), n)
	ledger.Unlock()
}
