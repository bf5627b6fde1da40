package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/primeflash/flasharb/chain"
	"github.com/primeflash/flasharb/gas"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/types"
	"github.com/primeflash/flasharb/utils"
	"github.com/primeflash/flasharb/utils/metrics"
)

// errReceiptTimeout marks a bounded receipt wait that expired with the
// transaction still unresolved.
var errReceiptTimeout = errors.New("receipt wait timed out")

// Config carries the submitter's static parameters.
type Config struct {
	GasBuffer           float64
	DeadlineDelta       time.Duration
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
}

// Submitter drives one arbitrage transaction through
// build -> sign -> broadcast -> confirmation, reconciling the nonce
// ledger on every exit path.
type Submitter struct {
	exec     *ExecutionContext
	cfg      Config
	revert   *chain.RevertDecoder
	notifier notify.Notifier
	metrics  *metrics.AgentMetrics
	logger   *zap.Logger
}

func NewSubmitter(exec *ExecutionContext, cfg Config, revert *chain.RevertDecoder, notifier notify.Notifier, m *metrics.AgentMetrics, logger *zap.Logger) *Submitter {
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 2 * time.Second
	}
	return &Submitter{
		exec:     exec,
		cfg:      cfg,
		revert:   revert,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Submit executes the full submission state machine for a selected
// opportunity. The nonce lock is held from acquisition until the
// terminal outcome so no second transaction can interleave.
func (s *Submitter) Submit(ctx context.Context, opp *types.SimulationResult, quote *types.GasQuote) types.TxOutcome {
	ledger := s.exec.Ledger
	ledger.Lock()
	defer ledger.Unlock()

	nonce, err := ledger.Next(ctx)
	if err != nil {
		return s.submissionFailed(ctx, fmt.Errorf("nonce acquisition failed: %w", err))
	}

	deadline := big.NewInt(time.Now().Add(s.cfg.DeadlineDelta).Unix())
	data, err := s.exec.Binding.PackExecute(opp.Pair, opp.AmountIn, deadline)
	if err != nil {
		return s.submissionFailed(ctx, fmt.Errorf("build failed: %w", err))
	}

	contractAddr := s.exec.Binding.Address()
	msg := ethereum.CallMsg{
		From:      s.exec.From,
		To:        &contractAddr,
		GasFeeCap: quote.MaxFee,
		GasTipCap: quote.PriorityFee,
		Data:      data,
	}

	// Unlike scanning there is no fallback estimate here: a wrong gas
	// limit on a live transaction risks a stuck or failed send.
	units, err := s.exec.Client.EstimateGas(ctx, msg)
	if err != nil {
		return s.submissionFailed(ctx, fmt.Errorf("gas estimation failed: %w", err))
	}

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   s.exec.ChainID,
		Nonce:     nonce,
		GasTipCap: quote.PriorityFee,
		GasFeeCap: quote.MaxFee,
		Gas:       gas.BufferedLimit(units, s.cfg.GasBuffer),
		To:        &contractAddr,
		Value:     new(big.Int),
		Data:      data,
	})

	signer := ethtypes.LatestSignerForChainID(s.exec.ChainID)
	signedTx, err := ethtypes.SignTx(tx, signer, s.exec.Key)
	if err != nil {
		return s.submissionFailed(ctx, fmt.Errorf("signing failed: %w", err))
	}

	if err := s.exec.Client.SendTransaction(ctx, signedTx); err != nil {
		return s.submissionFailed(ctx, fmt.Errorf("broadcast failed: %w", err))
	}

	txHash := signedTx.Hash()
	s.logger.Info("Transaction sent",
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("nonce", nonce),
		zap.String("net_profit_eth", utils.WeiToEtherString(opp.NetProfit)))
	s.notifier.Notify(ctx, fmt.Sprintf("Transaction sent: %s", txHash.Hex()))
	if s.metrics != nil {
		s.metrics.SubmissionsTotal.Inc()
	}

	receipt, err := s.waitReceipt(ctx, txHash)
	if errors.Is(err, errReceiptTimeout) {
		// The transaction may still land; the nonce stays incremented
		// rather than risking a reuse collision with a late inclusion.
		s.logger.Warn("Confirmation timed out", zap.String("tx_hash", txHash.Hex()))
		s.notifier.Notify(ctx, fmt.Sprintf("Confirmation timed out: %s", txHash.Hex()))
		if s.metrics != nil {
			s.metrics.TxTimedOut.Inc()
		}
		return types.TxOutcome{Status: types.TxSent, TxHash: txHash, Reason: "confirmation timeout"}
	}
	if err != nil {
		return s.submissionFailed(ctx, fmt.Errorf("receipt wait failed: %w", err))
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		reason := s.revert.MinedReason(ctx, txHash, s.exec.From, receipt.BlockNumber)
		s.logger.Error("Transaction reverted",
			zap.String("tx_hash", txHash.Hex()),
			zap.String("reason", reason))
		s.notifier.Notify(ctx, fmt.Sprintf("Transaction failed: %s", reason))
		ledger.Rollback()
		if s.metrics != nil {
			s.metrics.TxReverted.Inc()
		}
		return types.TxOutcome{Status: types.TxReverted, TxHash: txHash, Reason: reason}
	}

	s.logger.Info("Arbitrage executed successfully", zap.String("tx_hash", txHash.Hex()))
	s.notifier.Notify(ctx, fmt.Sprintf("Arbitrage executed successfully: %s", txHash.Hex()))
	if s.metrics != nil {
		s.metrics.TxConfirmed.Inc()
	}
	return types.TxOutcome{Status: types.TxConfirmed, TxHash: txHash}
}

// submissionFailed reports an error anywhere in the submission span and
// resynchronizes the ledger from the network instead of guessing the
// next value.
func (s *Submitter) submissionFailed(ctx context.Context, err error) types.TxOutcome {
	s.logger.Error("Submission failed", zap.Error(err))
	s.notifier.Notify(ctx, fmt.Sprintf("Execution failed: %v", err))

	if resyncErr := s.exec.Ledger.Resync(ctx); resyncErr != nil {
		s.logger.Error("Nonce resync failed", zap.Error(resyncErr))
	}

	return types.TxOutcome{Status: types.TxSubmissionFailed, Reason: err.Error()}
}

// waitReceipt polls for the transaction receipt until the bounded wait
// expires.
func (s *Submitter) waitReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	timeout := time.After(s.cfg.ReceiptTimeout)
	ticker := time.NewTicker(s.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.exec.Client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, errReceiptTimeout
		case <-ticker.C:
		}
	}
}
