package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// WatchMetrics tracks event subscriptions.
type WatchMetrics struct {
	deliveries *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	active     *prometheus.GaugeVec
}

var (
	watchMetricsOnce sync.Once
	watchRegistry    *WatchMetrics
)

// Drop reasons.
const (
	DropDecode   = "decode"
	DropFilter   = "filter"
	DropCanceled = "canceled"
)

// Watch returns the metrics registry tracking event subscriptions.
func Watch() *WatchMetrics {
	watchMetricsOnce.Do(func() {
		watchRegistry = &WatchMetrics{
			deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tip20",
				Subsystem: "watch",
				Name:      "deliveries_total",
				Help:      "Decoded events handed to subscriber callbacks.",
			}, []string{"event"}),
			dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tip20",
				Subsystem: "watch",
				Name:      "dropped_total",
				Help:      "Logs skipped by subscriptions segmented by reason.",
			}, []string{"event", "reason"}),
			active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "tip20",
				Subsystem: "watch",
				Name:      "active",
				Help:      "Currently active subscriptions per event kind.",
			}, []string{"event"}),
		}
		prometheus.MustRegister(watchRegistry.deliveries, watchRegistry.dropped, watchRegistry.active)
	})
	return watchRegistry
}

// RecordDelivery increments the delivery counter for event.
func (m *WatchMetrics) RecordDelivery(event string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(event)).Inc()
}

// RecordDrop counts a log that did not reach the callback.
func (m *WatchMetrics) RecordDrop(event, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(event), normalizeLabel(reason)).Inc()
}

// Started marks a subscription as active.
func (m *WatchMetrics) Started(event string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(normalizeLabel(event)).Inc()
}

// Stopped marks a subscription as finished.
func (m *WatchMetrics) Stopped(event string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(normalizeLabel(event)).Dec()
}
