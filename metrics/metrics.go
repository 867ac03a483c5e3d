// Package metrics defines the prometheus counters exposed by a running
// session (§2's ambient observability, no HTTP surface of its own —
// a caller registers these against whatever registry/exporter it
// already runs).
//
// Grounded on bsky.watch/labeler/server/metrics.go's promauto usage.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LabelsProcessed counts every successfully decoded label
	// assertion applied to the reducer.
	LabelsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labelclient_labels_processed_total",
		Help: "Total number of label assertions applied to the in-memory reducer.",
	})

	// ReconnectCount counts every time the session orchestrator
	// re-enters Connecting after a transport error or a closed
	// connection.
	ReconnectCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labelclient_reconnect_total",
		Help: "Total number of reconnection attempts made by the session orchestrator.",
	})

	// Cursor reports the most recently advanced sequence number.
	Cursor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "labelclient_cursor",
		Help: "Most recently advanced subscribeLabels sequence number.",
	})

	// StoreWriteLatency observes the duration of durable-store writes.
	StoreWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "labelclient_store_write_latency_seconds",
		Help:    "Latency of durable store insert calls.",
		Buckets: prometheus.DefBuckets,
	})
)
