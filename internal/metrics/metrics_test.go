package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	t.Parallel()

	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveRun("ok", 0.5)
	m.ObserveRun("ok", 0.1)
	m.ObserveRun("network", 1)
	m.ObserveFetch(0.3)
	m.SetCleanRows(10, 2)
	m.SetCleanRows(8, 1)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("network")), 1e-9)
	assert.InDelta(t, 8.0, testutil.ToFloat64(m.CleanRows.WithLabelValues("kept")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.CleanRows.WithLabelValues("dropped")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("ok", 1)
		m.ObserveFetch(1)
		m.SetCleanRows(1, 0)
	})
}
