package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/primeflash/flasharb/types"
)

// arbABIJson covers the two entry points the agent uses. simulateArbitrage
// is the authoritative profit oracle; executeArbitrage is the real thing.
const arbABIJson = `[
	{
		"name": "simulateArbitrage",
		"type": "function",
		"inputs": [
			{"name": "baseToken", "type": "address"},
			{"name": "poolA", "type": "address"},
			{"name": "poolB", "type": "address"},
			{"name": "pathOut", "type": "address[]"},
			{"name": "pathReturn", "type": "address[]"},
			{"name": "amountIn", "type": "uint256"}
		],
		"outputs": [
			{"name": "profitable", "type": "bool"},
			{"name": "estimatedProfit", "type": "uint256"}
		],
		"stateMutability": "view"
	},
	{
		"name": "executeArbitrage",
		"type": "function",
		"inputs": [
			{"name": "baseToken", "type": "address"},
			{"name": "poolA", "type": "address"},
			{"name": "poolB", "type": "address"},
			{"name": "pathOut", "type": "address[]"},
			{"name": "pathReturn", "type": "address[]"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "deadline", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	}
]`

// Binding wraps the deployed arbitrage contract: address, parsed ABI and
// the flashloan base token every route starts from.
type Binding struct {
	address   common.Address
	baseToken common.Address
	abi       abi.ABI
}

func NewBinding(address, baseToken common.Address) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(arbABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse arbitrage ABI: %w", err)
	}
	return &Binding{
		address:   address,
		baseToken: baseToken,
		abi:       parsed,
	}, nil
}

func (b *Binding) Address() common.Address {
	return b.address
}

// PackSimulate encodes a simulateArbitrage call for a (pair, amount) probe.
func (b *Binding) PackSimulate(pair types.PairConfig, amountIn *big.Int) ([]byte, error) {
	data, err := b.abi.Pack("simulateArbitrage",
		b.baseToken, pair.PoolA, pair.PoolB, pair.PathOut, pair.PathReturn, amountIn)
	if err != nil {
		return nil, fmt.Errorf("failed to pack simulateArbitrage: %w", err)
	}
	return data, nil
}

// UnpackSimulate decodes the (profitable, estimatedProfit) result.
func (b *Binding) UnpackSimulate(out []byte) (bool, *big.Int, error) {
	values, err := b.abi.Unpack("simulateArbitrage", out)
	if err != nil {
		return false, nil, fmt.Errorf("failed to unpack simulateArbitrage: %w", err)
	}
	if len(values) != 2 {
		return false, nil, fmt.Errorf("unexpected simulateArbitrage result length %d", len(values))
	}
	profitable, ok := values[0].(bool)
	if !ok {
		return false, nil, fmt.Errorf("unexpected simulateArbitrage profitable type %T", values[0])
	}
	profit, ok := values[1].(*big.Int)
	if !ok {
		return false, nil, fmt.Errorf("unexpected simulateArbitrage profit type %T", values[1])
	}
	return profitable, profit, nil
}

// PackExecute encodes the executeArbitrage call that actually moves funds.
func (b *Binding) PackExecute(pair types.PairConfig, amountIn, deadline *big.Int) ([]byte, error) {
	data, err := b.abi.Pack("executeArbitrage",
		b.baseToken, pair.PoolA, pair.PoolB, pair.PathOut, pair.PathReturn, amountIn, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to pack executeArbitrage: %w", err)
	}
	return data, nil
}
