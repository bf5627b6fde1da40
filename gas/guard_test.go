package gas_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/primeflash/flasharb/chain/chaintest"
	"github.com/primeflash/flasharb/gas"
)

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func TestQuoteClampsPriorityFee(t *testing.T) {
	quote := gas.Quote(gwei(80), gwei(5), gwei(2))
	assert.Equal(t, gwei(80), quote.BaseFee)
	assert.Equal(t, gwei(2), quote.PriorityFee)
	assert.Equal(t, gwei(82), quote.MaxFee)

	quote = gas.Quote(gwei(80), gwei(1), gwei(2))
	assert.Equal(t, gwei(1), quote.PriorityFee)
	assert.Equal(t, gwei(81), quote.MaxFee)
}

func TestGuardCheck(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("accepts under the cap", func(t *testing.T) {
		client := &chaintest.Client{
			HeaderByNumberFn: func(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
				return &ethtypes.Header{BaseFee: gwei(80)}, nil
			},
			SuggestGasTipCapFn: func(ctx context.Context) (*big.Int, error) {
				return gwei(5), nil
			},
		}

		guard := gas.NewGuard(client, gwei(100), gwei(2), logger)
		quote, err := guard.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, gwei(82), quote.MaxFee)
	})

	t.Run("rejects over the cap", func(t *testing.T) {
		client := &chaintest.Client{
			HeaderByNumberFn: func(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
				return &ethtypes.Header{BaseFee: gwei(120)}, nil
			},
			SuggestGasTipCapFn: func(ctx context.Context) (*big.Int, error) {
				return gwei(5), nil
			},
		}

		guard := gas.NewGuard(client, gwei(100), gwei(2), logger)
		_, err := guard.Check(context.Background())
		require.Error(t, err)

		var capErr *gas.FeeCapExceededError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, gwei(122), capErr.Observed)
	})

	t.Run("propagates header failures", func(t *testing.T) {
		client := &chaintest.Client{
			HeaderByNumberFn: func(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
				return nil, errors.New("rpc down")
			},
		}

		guard := gas.NewGuard(client, gwei(100), gwei(2), logger)
		_, err := guard.Check(context.Background())
		require.Error(t, err)

		var capErr *gas.FeeCapExceededError
		assert.False(t, errors.As(err, &capErr))
	})
}

func TestBufferedCost(t *testing.T) {
	assert.Equal(t, uint64(120_000), gas.BufferedLimit(100_000, 1.2))

	cost := gas.BufferedCost(100_000, 1.2, gwei(50))
	expected := new(big.Int).Mul(big.NewInt(120_000), gwei(50))
	assert.Equal(t, expected, cost)
}
