package metrics

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

const (
	namespace = "amm"
	subsystem = "exchange"
)

// Metrics holds the Prometheus collectors for pool operations.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	LPTokenSupply     *prometheus.GaugeVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// serve them from promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Pool operations by outcome",
			},
			[]string{"op", "result"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Pool operation latency, ledger calls included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		LPTokenSupply: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lp_token_supply",
				Help:      "Outstanding liquidity shares per pool",
			},
			[]string{"pool"},
		),
	}
}

// Operation implements exchange.Observer. The result label is the error kind.
func (m *Metrics) Operation(op string, _ solana.PublicKey, err error, took time.Duration) {
	m.OperationsTotal.WithLabelValues(op, exchange.Kind(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) Supply(pool solana.PublicKey, total uint64) {
	m.LPTokenSupply.WithLabelValues(pool.String()).Set(float64(total))
}
