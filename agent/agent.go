package agent

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/primeflash/flasharb/chain"
	"github.com/primeflash/flasharb/config"
	"github.com/primeflash/flasharb/contract"
	"github.com/primeflash/flasharb/executor"
	"github.com/primeflash/flasharb/gas"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/scanner"
	"github.com/primeflash/flasharb/types"
	"github.com/primeflash/flasharb/utils"
	"github.com/primeflash/flasharb/utils/metrics"
)

// Agent wires the scanner, selector, gas guard and submitter into the
// per-block execution cycle.
type Agent struct {
	cfg       *config.Config
	scanner   *scanner.Scanner
	guard     *gas.Guard
	submitter *executor.Submitter
	notifier  notify.Notifier
	metrics   *metrics.AgentMetrics
	logger    *zap.Logger
}

// New assembles the full decision-and-execution engine around one
// chain client and one execution context.
func New(cfg *config.Config, client chain.Client, exec *executor.ExecutionContext, notifier notify.Notifier, m *metrics.AgentMetrics, logger *zap.Logger) (*Agent, error) {
	revert, err := chain.NewRevertDecoder(client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create revert decoder: %w", err)
	}

	scan := scanner.New(client, exec.Binding, scanner.Config{
		From:            exec.From,
		RouterA:         cfg.RouterA,
		RouterB:         cfg.RouterB,
		GasBuffer:       cfg.GasBuffer,
		FallbackGasCost: cfg.FallbackGasCost,
		ProbeInterval:   cfg.ProbeInterval,
	}, notifier, m, logger)

	guard := gas.NewGuard(client, cfg.MaxFeeCap, cfg.BasePriorityFeeCap, logger)

	submitter := executor.NewSubmitter(exec, executor.Config{
		GasBuffer:      cfg.GasBuffer,
		DeadlineDelta:  cfg.DeadlineDelta,
		ReceiptTimeout: cfg.ReceiptTimeout,
	}, revert, notifier, m, logger)

	return &Agent{
		cfg:       cfg,
		scanner:   scan,
		guard:     guard,
		submitter: submitter,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
	}, nil
}

// NewFromConfig is the production constructor: dials the RPC endpoint,
// binds the contract and derives the execution context from secrets.
func NewFromConfig(ctx context.Context, cfg *config.Config, secrets *config.SecureConfig, notifier notify.Notifier, m *metrics.AgentMetrics, logger *zap.Logger) (*Agent, chain.Client, error) {
	client, err := chain.Dial(ctx, cfg.RPCEndpoint)
	if err != nil {
		return nil, nil, err
	}

	binding, err := contract.NewBinding(cfg.ContractAddress, cfg.BaseToken)
	if err != nil {
		return nil, nil, err
	}

	exec, err := executor.NewExecutionContext(ctx, client, binding, secrets.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create execution context: %w", err)
	}

	a, err := New(cfg, client, exec, notifier, m, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, client, nil
}

// Cycle runs one scan -> select -> guard -> submit pass. A nil return
// means the cycle completed, including the normal cases where nothing
// qualified or the gas policy abandoned the opportunity.
func (a *Agent) Cycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.CycleDuration.Observe(time.Since(start).Seconds())
		}
	}()

	results, err := a.scanner.Scan(ctx, a.cfg.Pairs, a.cfg.LoanAmounts)
	if err != nil {
		return err
	}

	best, ok := scanner.Select(results, a.cfg.MinProfitThreshold)
	if !ok {
		a.logger.Info("No profitable opportunity or net profit below threshold")
		return nil
	}

	a.logger.Info("Opportunity selected",
		zap.String("pair", best.Pair.Name),
		zap.String("amount_eth", utils.WeiToEtherString(best.AmountIn)),
		zap.String("net_profit_eth", utils.WeiToEtherString(best.NetProfit)))
	if a.metrics != nil {
		a.metrics.OpportunitiesFound.Inc()
		net, _ := new(big.Float).SetInt(best.NetProfit).Float64()
		a.metrics.NetProfitWei.Set(net)
	}

	quote, err := a.guard.Check(ctx)
	if err != nil {
		var capErr *gas.FeeCapExceededError
		if errors.As(err, &capErr) {
			// Selected but abandoned; the next block starts fresh.
			if a.metrics != nil {
				a.metrics.GasRejections.Inc()
			}
			return nil
		}
		return fmt.Errorf("gas policy check failed: %w", err)
	}

	outcome := a.submitter.Submit(ctx, best, quote)
	a.logger.Info("Submission outcome",
		zap.String("status", outcome.Status.String()),
		zap.String("tx_hash", outcome.TxHash.Hex()),
		zap.String("reason", outcome.Reason))
	return nil
}

// DryRun performs one scan and selection pass without touching the gas
// guard or submitting anything. Used by the simulate command.
func (a *Agent) DryRun(ctx context.Context) (*types.SimulationResult, error) {
	results, err := a.scanner.Scan(ctx, a.cfg.Pairs, a.cfg.LoanAmounts)
	if err != nil {
		return nil, err
	}
	best, ok := scanner.Select(results, a.cfg.MinProfitThreshold)
	if !ok {
		return nil, nil
	}
	return best, nil
}
