package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the indexer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ProviderCalls  *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	ChunksScanned  *prometheus.CounterVec
	ChunkDuration  prometheus.Histogram
	RecordsScanned *prometheus.CounterVec
	CacheReads     *prometheus.CounterVec
	CacheWrites    *prometheus.CounterVec
	LiveRecords    *prometheus.CounterVec
	LiveWatches    prometheus.Gauge
	AggregateFetch *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "escrow"
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Chain provider calls by method",
		}, []string{"method"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Failed chain provider calls by method",
		}, []string{"method"}),
		ChunksScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "chunks_total",
			Help:      "Block range chunks scanned by event kind",
		}, []string{"kind"}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "chunk_duration_seconds",
			Help:      "Time spent fetching and normalizing one chunk",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RecordsScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "records_total",
			Help:      "Event records produced by historical scans",
		}, []string{"kind"}),
		CacheReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "reads_total",
			Help:      "Event cache reads by result (hit, miss, corrupt)",
		}, []string{"result"}),
		CacheWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Event cache writes by operation (write, merge, rebase)",
		}, []string{"op"}),
		LiveRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "records_total",
			Help:      "Records delivered by live subscriptions",
		}, []string{"kind"}),
		LiveWatches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "watches",
			Help:      "Open provider-level log watches",
		}),
		AggregateFetch: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agreements",
			Name:      "fetch_total",
			Help:      "Aggregate state fetches by result (ok, failed)",
		}, []string{"result"}),
	}
}

func (m *Metrics) ProviderCall(method string, err error) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(method).Inc()
	if err != nil {
		m.ProviderErrors.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) Chunk(kind string, records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ChunksScanned.WithLabelValues(kind).Inc()
	m.RecordsScanned.WithLabelValues(kind).Add(float64(records))
	m.ChunkDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CacheRead(result string) {
	if m == nil {
		return
	}
	m.CacheReads.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheWrite(op string) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(op).Inc()
}

func (m *Metrics) Live(kind string, records int) {
	if m == nil {
		return
	}
	m.LiveRecords.WithLabelValues(kind).Add(float64(records))
}

func (m *Metrics) WatchOpened() {
	if m == nil {
		return
	}
	m.LiveWatches.Inc()
}

func (m *Metrics) WatchClosed() {
	if m == nil {
		return
	}
	m.LiveWatches.Dec()
}

func (m *Metrics) Aggregate(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.AggregateFetch.WithLabelValues("ok").Inc()
		return
	}
	m.AggregateFetch.WithLabelValues("failed").Inc()
}
