package scanner_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeflash/flasharb/scanner"
	"github.com/primeflash/flasharb/types"
)

func result(name string, profitable bool, gross, net int64) types.SimulationResult {
	return types.SimulationResult{
		Pair:        types.PairConfig{Name: name},
		AmountIn:    big.NewInt(1),
		Profitable:  profitable,
		GrossProfit: big.NewInt(gross),
		FeeCost:     big.NewInt(0),
		GasCost:     big.NewInt(0),
		NetProfit:   big.NewInt(net),
	}
}

func TestSelectPicksGreatestNetProfit(t *testing.T) {
	threshold := big.NewInt(10)
	results := []types.SimulationResult{
		result("a", true, 100, 500),
		result("b", true, 100, 2000),
		result("c", true, 100, 1500),
	}

	best, ok := scanner.Select(results, threshold)
	require.True(t, ok)
	assert.Equal(t, "b", best.Pair.Name)
}

func TestSelectFiltering(t *testing.T) {
	threshold := big.NewInt(10)

	t.Run("skips unprofitable flags", func(t *testing.T) {
		results := []types.SimulationResult{
			result("a", false, 100, 2000),
			result("b", true, 100, 5),
		}
		best, ok := scanner.Select(results, threshold)
		require.True(t, ok)
		assert.Equal(t, "b", best.Pair.Name)
	})

	t.Run("skips gross profit below threshold", func(t *testing.T) {
		results := []types.SimulationResult{
			result("a", true, 9, 2000),
		}
		_, ok := scanner.Select(results, threshold)
		assert.False(t, ok)
	})

	t.Run("never returns non-positive net profit", func(t *testing.T) {
		results := []types.SimulationResult{
			result("a", true, 100, 0),
			result("b", true, 100, -5),
		}
		_, ok := scanner.Select(results, threshold)
		assert.False(t, ok)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := scanner.Select(nil, threshold)
		assert.False(t, ok)
	})
}

func TestSelectFirstSeenWinsTies(t *testing.T) {
	threshold := big.NewInt(10)
	results := []types.SimulationResult{
		result("first", true, 100, 1000),
		result("second", true, 100, 1000),
	}

	best, ok := scanner.Select(results, threshold)
	require.True(t, ok)
	assert.Equal(t, "first", best.Pair.Name)
}

func TestSelectTwoPairsTwoAmounts(t *testing.T) {
	// 0.002 vs 0.0005 ETH net, both profitable and above threshold.
	threshold := big.NewInt(1)
	results := []types.SimulationResult{
		result("weth-usdt@1", true, 3_000_000_000_000_000, 500_000_000_000_000),
		result("weth-usdt@10", false, 0, 0),
		result("usdc-weth@1", true, 4_000_000_000_000_000, 2_000_000_000_000_000),
		result("usdc-weth@10", false, 0, 0),
	}

	best, ok := scanner.Select(results, threshold)
	require.True(t, ok)
	assert.Equal(t, "usdc-weth@1", best.Pair.Name)
	assert.Equal(t, big.NewInt(2_000_000_000_000_000), best.NetProfit)
}
