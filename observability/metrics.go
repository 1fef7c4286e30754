package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TokenMetrics tracks client-side token actions.
type TokenMetrics struct {
	actions  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	reverts  *prometheus.CounterVec
	timeouts *prometheus.CounterVec
}

var (
	tokenMetricsOnce sync.Once
	tokenRegistry    *TokenMetrics
)

// Token returns the lazily-initialised registry for token actions.
func Token() *TokenMetrics {
	tokenMetricsOnce.Do(func() {
		tokenRegistry = &TokenMetrics{
			actions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tip20",
				Name:      "actions_total",
				Help:      "Total token actions segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tip20",
				Name:      "action_duration_seconds",
				Help:      "Time from submission to confirmed inclusion for token actions.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
			reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tip20",
				Name:      "action_reverts_total",
				Help:      "Reverted token actions segmented by decoded error name.",
			}, []string{"action", "reason"}),
			timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tip20",
				Name:      "action_timeouts_total",
				Help:      "Token actions whose receipt did not arrive in time.",
			}, []string{"action"}),
		}
		prometheus.MustRegister(
			tokenRegistry.actions,
			tokenRegistry.latency,
			tokenRegistry.reverts,
			tokenRegistry.timeouts,
		)
	})
	return tokenRegistry
}

// Outcome labels.
const (
	OutcomeSubmitted = "submitted"
	OutcomeConfirmed = "confirmed"
	OutcomeReverted  = "reverted"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
)

// RecordAction increments the action counter.
func (m *TokenMetrics) RecordAction(action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// ObserveConfirmation records the latency between submission and inclusion.
func (m *TokenMetrics) ObserveConfirmation(action string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(action)).Observe(d.Seconds())
}

// RecordRevert counts a revert under its decoded name. Undecodable reverts
// are recorded as "unknown".
func (m *TokenMetrics) RecordRevert(action, reason string) {
	if m == nil {
		return
	}
	m.reverts.WithLabelValues(normalizeLabel(action), normalizeLabel(reason)).Inc()
}

// RecordTimeout counts an action whose receipt wait expired.
func (m *TokenMetrics) RecordTimeout(action string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(normalizeLabel(action)).Inc()
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
