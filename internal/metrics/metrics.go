// Package metrics exposes the bridge's Prometheus instrumentation:
//   - okx_rate_wait_seconds{bucket}        – time spent blocked in a token bucket
//   - okx_checksum_mismatch_total{instId}  – ladder checksum failures
//   - okx_resync_total{instId}             – full-resync attempts triggered
//   - okx_dropped_events_total{key}        – synchronizer buffer overflow drops
//   - okx_ws_reconnect_total{channel}      – WebSocket reconnect attempts
//   - okx_orders_total{op,result}          – order operation outcomes
//
// Registered on a dedicated registry so multiple bridge instances in the
// same process (tests) don't collide on prometheus's default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Registry = prometheus.NewRegistry()

	RateWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "okx_rate_wait_seconds",
			Help:    "Time spent blocked waiting for a rate-limit token.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"bucket"},
	)

	ChecksumMismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "okx_checksum_mismatch_total",
			Help: "Order-book checksum mismatches detected.",
		},
		[]string{"instId"},
	)

	ResyncsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "okx_resync_total",
			Help: "Full order-book resynchronizations triggered.",
		},
		[]string{"instId"},
	)

	DroppedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "okx_dropped_events_total",
			Help: "Events dropped because a synchronizer's per-key buffer was full.",
		},
		[]string{"key"},
	)

	WSReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "okx_ws_reconnect_total",
			Help: "WebSocket session reconnect attempts.",
		},
		[]string{"channel"},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "okx_orders_total",
			Help: "Order placement/amend/cancel outcomes.",
		},
		[]string{"op", "result"},
	)
)

func init() {
	Registry.MustRegister(RateWaitSeconds, ChecksumMismatches, ResyncsTriggered, DroppedEvents, WSReconnects, OrdersTotal)
}

// ObserveRateWait records time spent blocked in the named bucket.
func ObserveRateWait(bucket string, seconds float64) {
	RateWaitSeconds.WithLabelValues(bucket).Observe(seconds)
}

// IncChecksumMismatch records one checksum failure for instId.
func IncChecksumMismatch(instID string) {
	ChecksumMismatches.WithLabelValues(instID).Inc()
}

// IncResync records one full-resync attempt for instId.
func IncResync(instID string) {
	ResyncsTriggered.WithLabelValues(instID).Inc()
}

// IncDropped records one dropped event for the given synchronizer key.
func IncDropped(key string) {
	DroppedEvents.WithLabelValues(key).Inc()
}

// IncWSReconnect records one reconnect attempt for the named channel family.
func IncWSReconnect(channel string) {
	WSReconnects.WithLabelValues(channel).Inc()
}

// IncOrder records one order-management outcome.
func IncOrder(op, result string) {
	OrdersTotal.WithLabelValues(op, result).Inc()
}
