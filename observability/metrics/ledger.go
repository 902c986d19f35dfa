package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Johny-1992/TGST/core/events"
)

// LedgerMetrics aggregates the Prometheus instruments for the ledger engine.
type LedgerMetrics struct {
	transfers        prometheus.Counter
	burnedTotal      prometheus.Counter
	mintedTotal      *prometheus.CounterVec
	consumptionMints prometheus.Counter
	stakesActive     prometheus.Gauge
	poolBalance      *prometheus.GaugeVec
	supplyTotal      prometheus.Gauge
	anomalyCount     prometheus.Gauge
	paused           prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metric set, registering it on first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			transfers: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "tgst_transfers_total",
				Help: "Count of completed dynamic-fee transfers.",
			}),
			burnedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "tgst_burned_units_total",
				Help: "Cumulative burned supply in whole token units.",
			}),
			mintedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tgst_minted_units_total",
				Help: "Cumulative minted supply in whole token units by reason.",
			}, []string{"reason"}),
			consumptionMints: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "tgst_consumption_mints_total",
				Help: "Count of settled consumption vouchers.",
			}),
			stakesActive: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "tgst_stakes_active",
				Help: "Number of currently active stake positions.",
			}),
			poolBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "tgst_pool_balance_units",
				Help: "Named pool balance in whole token units.",
			}, []string{"pool"}),
			supplyTotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "tgst_supply_units",
				Help: "Current total supply in whole token units.",
			}),
			anomalyCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "tgst_oracle_anomaly_count",
				Help: "Running count of consecutive anomalous oracle pushes.",
			}),
			paused: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "tgst_paused",
				Help: "1 when the engine is paused, 0 otherwise.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.transfers,
			ledgerRegistry.burnedTotal,
			ledgerRegistry.mintedTotal,
			ledgerRegistry.consumptionMints,
			ledgerRegistry.stakesActive,
			ledgerRegistry.poolBalance,
			ledgerRegistry.supplyTotal,
			ledgerRegistry.anomalyCount,
			ledgerRegistry.paused,
		)
	})
	return ledgerRegistry
}

// unit converts a 1e18-scaled amount to whole token units for gauges; the
// precision loss is acceptable for monitoring.
func unit(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), big.NewFloat(1e18)).Float64()
	return f
}

// Emitter adapts the metric set to the engine's event stream.
type Emitter struct {
	metrics *LedgerMetrics
}

// NewEmitter wires the ledger metric set as an events.Emitter.
func NewEmitter() *Emitter {
	return &Emitter{metrics: Ledger()}
}

// Emit implements events.Emitter.
func (e *Emitter) Emit(evt events.Event) {
	switch v := evt.(type) {
	case events.TransferApplied:
		e.metrics.transfers.Inc()
		e.metrics.burnedTotal.Add(unit(v.Burned))
		if v.Minted != nil && v.Minted.Sign() > 0 {
			e.metrics.mintedTotal.WithLabelValues("transfer").Add(unit(v.Minted))
		}
	case events.ConsumptionMinted:
		e.metrics.consumptionMints.Inc()
		e.metrics.mintedTotal.WithLabelValues("consumption").Add(unit(v.MintAmount))
	case events.PoolFunded:
		e.metrics.poolBalance.WithLabelValues(v.Pool).Set(unit(v.Balance))
	case events.PoolDebited:
		e.metrics.poolBalance.WithLabelValues(v.Pool).Set(unit(v.Balance))
	case events.SupplyChanged:
		e.metrics.supplyTotal.Set(unit(v.Total))
	case events.StakeCreated:
		e.metrics.stakesActive.Inc()
	case events.StakeWithdrawn:
		e.metrics.stakesActive.Dec()
	case events.AnomalyRecorded:
		e.metrics.anomalyCount.Set(float64(v.Count))
	case events.OracleUpdated:
		if !v.Anomalous {
			e.metrics.anomalyCount.Set(0)
		}
	case events.AutoPaused:
		e.metrics.paused.Set(1)
	case events.Paused:
		e.metrics.paused.Set(1)
	case events.Unpaused:
		e.metrics.paused.Set(0)
		e.metrics.anomalyCount.Set(0)
	}
}
