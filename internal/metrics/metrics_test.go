package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ProviderCall("eth_getLogs", errors.New("boom"))
	m.Chunk("disputed", 3, time.Second)
	m.CacheRead("hit")
	m.CacheWrite("merge")
	m.Live("disputed", 1)
	m.WatchOpened()
	m.WatchClosed()
	m.Aggregate(false)
}

func TestProviderCallCountsErrors(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")

	m.ProviderCall("eth_getLogs", nil)
	m.ProviderCall("eth_getLogs", errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderCalls.WithLabelValues("eth_getLogs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("eth_getLogs")))
}

func TestChunkAddsRecords(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")

	m.Chunk("payment_released", 4, 10*time.Millisecond)
	m.Chunk("payment_released", 0, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChunksScanned.WithLabelValues("payment_released")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RecordsScanned.WithLabelValues("payment_released")))
}
