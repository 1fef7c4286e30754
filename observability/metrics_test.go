package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTokenMetricsRecord(t *testing.T) {
	m := Token()
	require.Same(t, m, Token())

	before := testutil.ToFloat64(m.actions.WithLabelValues("mint", OutcomeConfirmed))
	m.RecordAction("mint", OutcomeConfirmed)
	require.Equal(t, before+1, testutil.ToFloat64(m.actions.WithLabelValues("mint", OutcomeConfirmed)))

	m.RecordRevert("transfer", "")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.reverts.WithLabelValues("transfer", "unknown")), 1.0)

	m.RecordTimeout("burn")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.timeouts.WithLabelValues("burn")), 1.0)

	m.ObserveConfirmation("mint", 150*time.Millisecond)
	require.GreaterOrEqual(t, testutil.CollectAndCount(m.latency), 1)
}

func TestWatchMetricsRecord(t *testing.T) {
	m := Watch()
	m.Started("transfer")
	require.Equal(t, 1.0, testutil.ToFloat64(m.active.WithLabelValues("transfer")))
	m.RecordDelivery("transfer")
	m.RecordDrop("transfer", DropFilter)
	require.GreaterOrEqual(t, testutil.ToFloat64(m.dropped.WithLabelValues("transfer", DropFilter)), 1.0)
	m.Stopped("transfer")
	require.Equal(t, 0.0, testutil.ToFloat64(m.active.WithLabelValues("transfer")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var tm *TokenMetrics
	tm.RecordAction("mint", OutcomeError)
	tm.ObserveConfirmation("mint", time.Second)
	var wm *WatchMetrics
	wm.Started("mint")
	wm.RecordDrop("mint", DropDecode)
}
