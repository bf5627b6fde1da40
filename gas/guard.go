package gas

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/primeflash/flasharb/chain"
	"github.com/primeflash/flasharb/types"
	"github.com/primeflash/flasharb/utils"
)

// FeeCapExceededError reports a rejection by the gas policy, carrying
// the fee actually observed for diagnostics.
type FeeCapExceededError struct {
	Observed *big.Int
	Cap      *big.Int
}

func (e *FeeCapExceededError) Error() string {
	return fmt.Sprintf("max fee %s gwei exceeds cap %s gwei",
		utils.WeiToGweiString(e.Observed), utils.WeiToGweiString(e.Cap))
}

// Guard admits or rejects submissions based on current network fees.
// It runs once per execution cycle, after selection and before
// submission, and always reads fresh fee data.
type Guard struct {
	client      chain.Client
	maxFeeCap   *big.Int
	priorityCap *big.Int
	logger      *zap.Logger
}

func NewGuard(client chain.Client, maxFeeCap, priorityCap *big.Int, logger *zap.Logger) *Guard {
	return &Guard{
		client:      client,
		maxFeeCap:   maxFeeCap,
		priorityCap: priorityCap,
		logger:      logger,
	}
}

// Check reads the latest base fee and suggested tip, clamps the tip to
// the configured priority cap, and rejects when base + priority exceeds
// the max fee cap.
func (g *Guard) Check(ctx context.Context) (*types.GasQuote, error) {
	header, err := g.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest header: %w", err)
	}
	if header.BaseFee == nil {
		return nil, fmt.Errorf("latest header carries no base fee")
	}

	suggested, err := g.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read suggested priority fee: %w", err)
	}

	quote := Quote(header.BaseFee, suggested, g.priorityCap)
	if quote.MaxFee.Cmp(g.maxFeeCap) > 0 {
		g.logger.Warn("Gas policy rejected submission",
			zap.String("max_fee_gwei", utils.WeiToGweiString(quote.MaxFee)),
			zap.String("cap_gwei", utils.WeiToGweiString(g.maxFeeCap)))
		return nil, &FeeCapExceededError{Observed: quote.MaxFee, Cap: g.maxFeeCap}
	}

	return quote, nil
}

// Quote computes the fee components from observed network values. Pure
// so the policy is testable without a client.
func Quote(baseFee, suggestedTip, priorityCap *big.Int) *types.GasQuote {
	priority := new(big.Int).Set(suggestedTip)
	if priority.Cmp(priorityCap) > 0 {
		priority.Set(priorityCap)
	}
	return &types.GasQuote{
		BaseFee:     new(big.Int).Set(baseFee),
		PriorityFee: priority,
		MaxFee:      new(big.Int).Add(baseFee, priority),
	}
}

// BufferedLimit inflates an estimated gas amount by the configured
// safety buffer.
func BufferedLimit(units uint64, buffer float64) uint64 {
	return uint64(float64(units) * buffer)
}

// BufferedCost prices a buffered gas amount at the given gas price,
// in wei.
func BufferedCost(units uint64, buffer float64, gasPrice *big.Int) *big.Int {
	limit := new(big.Int).SetUint64(BufferedLimit(units, buffer))
	return limit.Mul(limit, gasPrice)
}
