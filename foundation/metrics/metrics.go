// Package metrics holds the prometheus collectors for mining, ledger
// operations and HTTP requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "utxochain"

var (
	blocksMinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "miner",
		Name:      "blocks_total",
		Help:      "Count of blocks mined.",
	})
	miningDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "miner",
		Name:      "duration_seconds",
		Help:      "Duration of the proof of work search.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	miningAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "miner",
		Name:      "attempts",
		Help:      "Number of hashes computed to solve a block.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
	})
	chainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "height",
		Help:      "Height of the tip of the chain.",
	})

	ledgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Count of ledger operations.",
	}, []string{"operation", "status"})
	ledgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of HTTP requests.",
	}, []string{"route", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})
	httpPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Count of panics recovered while handling requests.",
	})
)

// ObserveBlockMined records a solved block. The nonce search starts at zero
// so the number of hashes computed is the nonce plus one.
func ObserveBlockMined(height uint64, nonce uint64, started time.Time) {
	blocksMinedTotal.Inc()
	miningDuration.Observe(time.Since(started).Seconds())
	miningAttempts.Observe(float64(nonce + 1))
	chainHeight.Set(float64(height))
}

// ObserveLedger records a ledger operation.
func ObserveLedger(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ledgerOperationsTotal.WithLabelValues(operation, status).Inc()
	ledgerOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// ObserveRequest records a handled HTTP request.
func ObserveRequest(route string, statusCode int, started time.Time) {
	status := "success"
	switch {
	case statusCode >= 500:
		status = "error"
	case statusCode >= 400:
		status = "rejected"
	}

	httpRequestsTotal.WithLabelValues(route, status).Inc()
	httpRequestDuration.WithLabelValues(route, status).Observe(time.Since(started).Seconds())
}

// ObservePanic records a recovered panic.
func ObservePanic() {
	httpPanicsTotal.Inc()
}
