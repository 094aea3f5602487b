package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistryHasCoreMetrics(t *testing.T) {
	r := NewMetricsRegistry()

	require.NotNil(t, r.CoreMetrics())
	require.NotNil(t, r.PrometheusRegistry())

	// Core sink metrics are registered and gatherable.
	r.CoreMetrics().RecordAppend("test-sink", 42)
	r.CoreMetrics().RecordWriterOpened("test-sink")

	assert.Equal(t, float64(1),
		testutil.ToFloat64(r.CoreMetrics().EventsAppended.WithLabelValues("test-sink")))
	assert.Equal(t, float64(42),
		testutil.ToFloat64(r.CoreMetrics().BytesWritten.WithLabelValues("test-sink")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(r.CoreMetrics().WritersOpen.WithLabelValues("test-sink")))
}

func TestWriterGaugeTracksCloseAndEvict(t *testing.T) {
	r := NewMetricsRegistry()
	m := r.CoreMetrics()

	m.RecordWriterOpened("s")
	m.RecordWriterOpened("s")
	m.RecordWriterClosed("s")
	m.RecordWriterEvicted("s")

	assert.Equal(t, float64(0), testutil.ToFloat64(m.WritersOpen.WithLabelValues("s")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WritersClosed.WithLabelValues("s")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WritersEvicted.WithLabelValues("s")))
}

func TestRegisterDuplicateMetric(t *testing.T) {
	r := NewMetricsRegistry()

	c1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_total_a"})
	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_total_b"})

	require.NoError(t, r.RegisterCounter("comp", "custom", c1))
	assert.Error(t, r.RegisterCounter("comp", "custom", c2))
}

func TestUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_total"})
	require.NoError(t, r.RegisterCounter("comp", "custom", c))

	assert.True(t, r.Unregister("comp", "custom"))
	assert.False(t, r.Unregister("comp", "custom"))

	// The name is free again after unregistering.
	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_total"})
	assert.NoError(t, r.RegisterCounter("comp", "custom", c2))
}

func TestServerDefaults(t *testing.T) {
	s := NewServer(0, "", NewMetricsRegistry())
	assert.Equal(t, "http://localhost:9090/metrics", s.Address())
}
