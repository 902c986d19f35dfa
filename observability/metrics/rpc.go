package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RPCMetrics tracks request rejections surfaced by the HTTP layer.
type RPCMetrics struct {
	rejections *prometheus.CounterVec
}

var (
	rpcOnce     sync.Once
	rpcRegistry *RPCMetrics
)

// RPC returns the process-wide RPC metric set, registering it on first use.
func RPC() *RPCMetrics {
	rpcOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tgst_rpc_rejections_total",
				Help: "Count of rejected requests by error kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(rpcRegistry.rejections)
	})
	return rpcRegistry
}

// Rejection records a rejected request under its error kind.
func (m *RPCMetrics) Rejection(kind string) {
	m.rejections.WithLabelValues(kind).Inc()
}
