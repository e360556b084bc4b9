package osc

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegister(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	// Double registration of the same collectors must fail.
	assert.Error(t, m.Register(reg))
}

func TestMetricsStreamVecs(t *testing.T) {
	m := NewMetrics()
	m.FramesDecoded.WithLabelValues("slip").Add(3)
	m.FramesDecoded.WithLabelValues("lengthprefix").Inc()
	m.FramingErrors.WithLabelValues("lengthprefix").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FramesDecoded.WithLabelValues("slip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesDecoded.WithLabelValues("lengthprefix")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramingErrors.WithLabelValues("lengthprefix")))
}
