package scanner

import (
	"math/big"

	"github.com/primeflash/flasharb/types"
)

// Select reduces scan results to the single best candidate: the result
// with strictly greatest net profit among those that are profitable,
// clear the gross-profit threshold and net out positive. Ties keep the
// first-seen result, which is why probe order is stable. Returns false
// when nothing qualifies.
func Select(results []types.SimulationResult, minProfitThreshold *big.Int) (*types.SimulationResult, bool) {
	var best *types.SimulationResult

	for i := range results {
		r := &results[i]
		if !r.Profitable {
			continue
		}
		if r.GrossProfit == nil || r.GrossProfit.Cmp(minProfitThreshold) < 0 {
			continue
		}
		if r.NetProfit == nil || r.NetProfit.Sign() <= 0 {
			continue
		}
		if best == nil || r.NetProfit.Cmp(best.NetProfit) > 0 {
			best = r
		}
	}

	return best, best != nil
}
