package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg).(*PrometheusRecorder)

	rec.IncCounter("payment_attempt", map[string]string{"action": "premium", "outcome": "success"})
	rec.IncCounter("payment_attempt", map[string]string{"action": "premium", "outcome": "success"})
	rec.ObserveLatency("confirmation", 3*time.Second, map[string]string{"chain": "sepolia"})

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.counters.WithLabelValues("payment_attempt", "premium", "success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}
