package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/primeflash/flasharb/chain"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/utils/metrics"
)

// CycleFunc runs one execution cycle (scan, select, guard, submit).
// A returned error means the cycle blew up and the loop should back off.
type CycleFunc func(ctx context.Context) error

// Config carries the watcher's timing parameters.
type Config struct {
	PollInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Watcher polls the chain head and triggers one execution cycle per
// height advance. Re-observing the same height is a no-op.
type Watcher struct {
	client   chain.Client
	cycle    CycleFunc
	cfg      Config
	notifier notify.Notifier
	metrics  *metrics.AgentMetrics
	logger   *zap.Logger

	lastBlock uint64
}

func New(client chain.Client, cycle CycleFunc, cfg Config, notifier notify.Notifier, m *metrics.AgentMetrics, logger *zap.Logger) *Watcher {
	return &Watcher{
		client:   client,
		cycle:    cycle,
		cfg:      cfg,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Run loops until the context is cancelled. Only the very first height
// read is fatal; later failures back off and resume. Cycle errors
// escalate the backoff exponentially up to the ceiling, and a clean
// cycle resets it.
func (w *Watcher) Run(ctx context.Context) error {
	last, err := w.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read initial block height: %w", err)
	}
	w.lastBlock = last
	w.logger.Info("Watching chain head", zap.Uint64("block", last))

	backoff := w.cfg.InitialBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		current, err := w.client.BlockNumber(ctx)
		if err != nil {
			w.logger.Error("Failed to read block height", zap.Error(err))
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = w.escalate(backoff)
			continue
		}

		if current > w.lastBlock {
			w.lastBlock = current
			if w.metrics != nil {
				w.metrics.BlocksSeen.Inc()
			}
			w.logger.Info("New block", zap.Uint64("block", current))

			if err := w.cycle(ctx); err != nil {
				w.logger.Error("Block handling error", zap.Error(err))
				w.notifier.Notify(ctx, fmt.Sprintf("Block handling error: %v", err))
				if w.metrics != nil {
					w.metrics.CycleErrors.Inc()
				}
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = w.escalate(backoff)
				continue
			}
			backoff = w.cfg.InitialBackoff
			continue
		}

		if err := sleep(ctx, w.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (w *Watcher) escalate(current time.Duration) time.Duration {
	next := current * 2
	if next > w.cfg.MaxBackoff {
		next = w.cfg.MaxBackoff
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
