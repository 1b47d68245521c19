package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("invoices:ingest").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("invoices:ingest").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("invoices:ingest", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("invoices:ingest", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("invoices:ingest")))
}

func TestNilMetricsTrackerIsNoop(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("analytics:warmup").End(nil))
}
