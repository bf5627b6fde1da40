package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AgentMetrics tracks the trading loop end to end: probes, selected
// opportunities, admissions and submission outcomes.
type AgentMetrics struct {
	ProbesTotal        prometheus.Counter
	ProbeFailures      *prometheus.CounterVec
	OpportunitiesFound prometheus.Counter
	GasRejections      prometheus.Counter
	SubmissionsTotal   prometheus.Counter
	TxConfirmed        prometheus.Counter
	TxReverted         prometheus.Counter
	TxTimedOut         prometheus.Counter
	CycleErrors        prometheus.Counter
	CycleDuration      prometheus.Histogram
	BlocksSeen         prometheus.Counter
	NetProfitWei       prometheus.Gauge
}

// NewAgentMetrics registers the agent's metric set on reg. Tests pass a
// fresh registry so repeated construction never collides.
func NewAgentMetrics(namespace string, reg prometheus.Registerer) *AgentMetrics {
	factory := promauto.With(reg)
	return &AgentMetrics{
		ProbesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Total number of (pair, amount) probes evaluated",
		}),
		ProbeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Probe failures by kind",
		}, []string{"kind"}),
		OpportunitiesFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Opportunities that cleared the selection rule",
		}),
		GasRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_rejections_total",
			Help:      "Cycles abandoned by the gas policy guard",
		}),
		SubmissionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Arbitrage transactions broadcast",
		}),
		TxConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_confirmed_total",
			Help:      "Submitted transactions confirmed with success status",
		}),
		TxReverted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_reverted_total",
			Help:      "Submitted transactions mined with failure status",
		}),
		TxTimedOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_timed_out_total",
			Help:      "Receipt waits that hit the confirmation timeout",
		}),
		CycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_errors_total",
			Help:      "Execution cycles that failed and triggered backoff",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of one execution cycle",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		BlocksSeen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_seen_total",
			Help:      "New chain heads observed by the block watcher",
		}),
		NetProfitWei: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_net_profit_wei",
			Help:      "Net profit of the most recently selected opportunity",
		}),
	}
}
