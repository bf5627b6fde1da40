package scanner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/primeflash/flasharb/chain"
	"github.com/primeflash/flasharb/contract"
	"github.com/primeflash/flasharb/gas"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/types"
	"github.com/primeflash/flasharb/utils"
	"github.com/primeflash/flasharb/utils/metrics"
)

// swapFeeNumerator/swapFeeDenominator encode the 0.3% pool fee applied
// at each swap leg.
const (
	swapFeeNumerator   = 3
	swapFeeDenominator = 1000
)

// Config carries the scanner's static parameters.
type Config struct {
	From            common.Address
	RouterA         common.Address
	RouterB         common.Address
	GasBuffer       float64
	FallbackGasCost *big.Int
	ProbeInterval   time.Duration
}

// Scanner probes every configured (pair, amount) combination against the
// arbitrage contract and prices each one net of fees and gas.
type Scanner struct {
	client   chain.Client
	binding  *contract.Binding
	cfg      Config
	notifier notify.Notifier
	metrics  *metrics.AgentMetrics
	logger   *zap.Logger
}

func New(client chain.Client, binding *contract.Binding, cfg Config, notifier notify.Notifier, m *metrics.AgentMetrics, logger *zap.Logger) *Scanner {
	return &Scanner{
		client:   client,
		binding:  binding,
		cfg:      cfg,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// throttle gates successive probes to a minimum interval so the scan
// stays under the RPC provider's rate limit. Each Scan call gets a
// fresh one, so the sequence is restartable.
type throttle struct {
	limiter *rate.Limiter
}

func newThrottle(interval time.Duration) *throttle {
	if interval <= 0 {
		return &throttle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	l := rate.NewLimiter(rate.Every(interval), 1)
	// Drain the initial burst token; the first probe waits like the rest.
	l.Allow()
	return &throttle{limiter: l}
}

func (t *throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Scan evaluates the cross product of pairs and amounts sequentially.
// A failed probe is reported as unprofitable and never aborts the rest;
// probe order is stable (pairs outer, amounts inner) because selection
// breaks ties on first-seen.
func (s *Scanner) Scan(ctx context.Context, pairs []types.PairConfig, amounts []*big.Int) ([]types.SimulationResult, error) {
	gate := newThrottle(s.cfg.ProbeInterval)
	results := make([]types.SimulationResult, 0, len(pairs)*len(amounts))

	for _, pair := range pairs {
		for _, amountIn := range amounts {
			if err := gate.Wait(ctx); err != nil {
				return results, fmt.Errorf("scan interrupted: %w", err)
			}

			result, scanErr := s.probe(ctx, pair, amountIn)
			if s.metrics != nil {
				s.metrics.ProbesTotal.Inc()
				if scanErr != nil {
					s.metrics.ProbeFailures.WithLabelValues(scanErr.Kind.String()).Inc()
				}
			}
			if scanErr != nil {
				s.logger.Error("Probe failed",
					zap.String("pair", pair.Name),
					zap.String("amount_eth", utils.WeiToEtherString(amountIn)),
					zap.String("kind", scanErr.Kind.String()),
					zap.String("reason", scanErr.Reason))
				s.notifier.Notify(ctx, fmt.Sprintf("Simulation failed (%s): %s", pair.Name, scanErr.Reason))
			}

			s.logger.Info("Probe result",
				zap.String("pair", pair.Name),
				zap.String("amount_eth", utils.WeiToEtherString(amountIn)),
				zap.Bool("profitable", result.Profitable),
				zap.String("gross_eth", utils.WeiToEtherString(result.GrossProfit)),
				zap.String("fees_eth", utils.WeiToEtherString(result.FeeCost)),
				zap.String("gas_eth", utils.WeiToEtherString(result.GasCost)),
				zap.String("net_eth", utils.WeiToEtherString(result.NetProfit)))
			s.notifier.Notify(ctx, fmt.Sprintf("Opportunity probe: %s, amount %s ETH, net profit %s ETH",
				pair.Name, utils.WeiToEtherString(amountIn), utils.WeiToEtherString(result.NetProfit)))

			results = append(results, result)
		}
	}

	return results, nil
}

// probe evaluates one (pair, amount) combination. The contract's
// simulateArbitrage call is the authoritative profit figure; the router
// quotes only feed the fee estimate.
func (s *Scanner) probe(ctx context.Context, pair types.PairConfig, amountIn *big.Int) (types.SimulationResult, *types.ScanError) {
	result := types.SimulationResult{
		Pair:        pair,
		AmountIn:    amountIn,
		GrossProfit: new(big.Int),
		FeeCost:     new(big.Int),
		GasCost:     new(big.Int),
		NetProfit:   new(big.Int),
	}

	// Leg 1: base asset through pathOut on exchange A.
	tokenOut, err := chain.AmountsOut(ctx, s.client, s.cfg.RouterA, amountIn, pair.PathOut)
	if err != nil {
		return result, &types.ScanError{Kind: types.QuoteFailure, Pair: pair.Name, Reason: err.Error(), Err: err}
	}

	// Leg 2: the resulting token back through pathReturn on exchange B.
	baseOut, err := chain.AmountsOut(ctx, s.client, s.cfg.RouterB, tokenOut, pair.PathReturn)
	if err != nil {
		return result, &types.ScanError{Kind: types.QuoteFailure, Pair: pair.Name, Reason: err.Error(), Err: err}
	}

	result.FeeCost = swapFees(tokenOut, baseOut, pair.TokenDecimals)

	// Authoritative profit from the contract's own simulation.
	simData, err := s.binding.PackSimulate(pair, amountIn)
	if err != nil {
		return result, &types.ScanError{Kind: types.SimulationRevert, Pair: pair.Name, Reason: err.Error(), Err: err}
	}
	msg := ethereum.CallMsg{
		From: s.cfg.From,
		To:   addrPtr(s.binding.Address()),
		Data: simData,
	}
	simOut, err := s.client.CallContract(ctx, msg, nil)
	if err != nil {
		reason := chain.RevertReasonFromError(err)
		return result, &types.ScanError{Kind: types.SimulationRevert, Pair: pair.Name, Reason: reason, Err: err}
	}
	profitable, grossProfit, err := s.binding.UnpackSimulate(simOut)
	if err != nil {
		return result, &types.ScanError{Kind: types.SimulationRevert, Pair: pair.Name, Reason: err.Error(), Err: err}
	}
	result.Profitable = profitable
	result.GrossProfit = grossProfit

	result.GasCost = s.estimateGasCost(ctx, msg, pair)

	result.NetProfit = new(big.Int).Sub(grossProfit, result.FeeCost)
	result.NetProfit.Sub(result.NetProfit, result.GasCost)

	return result, nil
}

// estimateGasCost prices the probe's gas. Estimation failures fall back
// to a fixed figure here; a scan probe never needs an exact limit.
func (s *Scanner) estimateGasCost(ctx context.Context, msg ethereum.CallMsg, pair types.PairConfig) *big.Int {
	units, err := s.client.EstimateGas(ctx, msg)
	if err == nil {
		var gasPrice *big.Int
		gasPrice, err = s.client.SuggestGasPrice(ctx)
		if err == nil {
			return gas.BufferedCost(units, s.cfg.GasBuffer, gasPrice)
		}
	}

	s.logger.Warn("Gas estimation failed, using fallback cost",
		zap.String("pair", pair.Name),
		zap.Error(err))
	if s.metrics != nil {
		s.metrics.ProbeFailures.WithLabelValues(types.GasEstimationFailure.String()).Inc()
	}
	return new(big.Int).Set(s.cfg.FallbackGasCost)
}

// swapFees sums the 0.3% pool fee over both legs, with the token leg
// rescaled to wei so the total is in the base asset's unit.
func swapFees(tokenOut, baseOut *big.Int, tokenDecimals uint8) *big.Int {
	legFee := func(amount *big.Int) *big.Int {
		fee := new(big.Int).Mul(amount, big.NewInt(swapFeeNumerator))
		return fee.Div(fee, big.NewInt(swapFeeDenominator))
	}
	total := utils.ScaleToWei(legFee(tokenOut), tokenDecimals)
	return total.Add(total, legFee(baseOut))
}

func addrPtr(a common.Address) *common.Address {
	return &a
}
