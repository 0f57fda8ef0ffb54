package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Persist outcomes
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// SyncMetrics instruments the order synchronization engine.
type SyncMetrics struct {
	PersistTotal     *prometheus.CounterVec
	PersistLatencyMs *prometheus.HistogramVec
	SnapshotsTotal   prometheus.Counter
	MalformedTotal   prometheus.Counter
	ActiveOrders     prometheus.Gauge
	SelectionCleared prometheus.Counter
}

// NewSyncMetrics creates the collectors and registers them with reg.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		PersistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: "sync",
			Name:      "persist_total",
			Help:      "Total store writes issued by the sync engine by operation and result.",
		}, []string{"op", "result"}),
		PersistLatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pos",
			Subsystem: "sync",
			Name:      "persist_latency_ms",
			Help:      "Store write latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"op"}),
		SnapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: "sync",
			Name:      "snapshots_total",
			Help:      "Remote snapshots applied to the active order list.",
		}),
		MalformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: "sync",
			Name:      "malformed_records_total",
			Help:      "Order documents that needed coercion while decoding.",
		}),
		ActiveOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pos",
			Subsystem: "sync",
			Name:      "active_orders",
			Help:      "Orders in the active working set.",
		}),
		SelectionCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: "sync",
			Name:      "selection_cleared_total",
			Help:      "Selections cleared because the order left the remote snapshot.",
		}),
	}

	reg.MustRegister(
		m.PersistTotal,
		m.PersistLatencyMs,
		m.SnapshotsTotal,
		m.MalformedTotal,
		m.ActiveOrders,
		m.SelectionCleared,
	)
	return m
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors next to whatever the caller registers.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
