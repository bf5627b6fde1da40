package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PairConfig describes one tradable arbitrage route between two DEX pools
// for the same token. Set at process start, never mutated.
type PairConfig struct {
	Name          string           `json:"name"`
	Token         common.Address   `json:"token"`
	TokenDecimals uint8            `json:"token_decimals"`
	PoolA         common.Address   `json:"pool_a"`
	PoolB         common.Address   `json:"pool_b"`
	PathOut       []common.Address `json:"path_out"`
	PathReturn    []common.Address `json:"path_return"`
}

// SimulationResult is the outcome of probing one (pair, amount) combination.
// All amounts are denominated in wei of the base asset.
type SimulationResult struct {
	Pair        PairConfig
	AmountIn    *big.Int
	Profitable  bool
	GrossProfit *big.Int
	FeeCost     *big.Int
	GasCost     *big.Int
	NetProfit   *big.Int
}

// GasQuote holds the fee components observed for one execution attempt.
// Quotes are read fresh per cycle and never cached.
type GasQuote struct {
	BaseFee     *big.Int
	PriorityFee *big.Int
	MaxFee      *big.Int
}

// TxStatus is the terminal state of a submission attempt.
type TxStatus int

const (
	TxSent TxStatus = iota
	TxConfirmed
	TxReverted
	TxSubmissionFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxSent:
		return "sent"
	case TxConfirmed:
		return "confirmed"
	case TxReverted:
		return "reverted"
	case TxSubmissionFailed:
		return "submission_failed"
	default:
		return "unknown"
	}
}

// TxOutcome is the terminal result of a submission attempt.
type TxOutcome struct {
	Status TxStatus
	TxHash common.Hash
	Reason string
}

// ScanErrorKind classifies failures of a single scan probe.
type ScanErrorKind int

const (
	QuoteFailure ScanErrorKind = iota
	SimulationRevert
	GasEstimationFailure
)

func (k ScanErrorKind) String() string {
	switch k {
	case QuoteFailure:
		return "quote_failure"
	case SimulationRevert:
		return "simulation_revert"
	case GasEstimationFailure:
		return "gas_estimation_failure"
	default:
		return "unknown"
	}
}

// ScanError records why a probe failed without aborting the scan.
type ScanError struct {
	Kind   ScanErrorKind
	Pair   string
	Reason string
	Err    error
}

func (e *ScanError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Pair, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Pair, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
