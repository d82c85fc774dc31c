package translation

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	Coalesced     prometheus.Counter
	ExternalCalls prometheus.Counter
	Failures      prometheus.Counter
	QueueDepth    prometheus.Gauge
}

// NewMetrics регистрирует счётчики в reg; при reg == nil они просто не экспортируются
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "translation_cache_hits_total",
			Help: "Translation requests answered from cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "translation_cache_misses_total",
			Help: "Translation requests that scheduled a new job.",
		}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "translation_requests_coalesced_total",
			Help: "Translation requests attached to an in-flight job.",
		}),
		ExternalCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "translation_external_calls_total",
			Help: "Calls issued to the external translator.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "translation_failures_total",
			Help: "External translation calls that failed.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "translation_queue_depth",
			Help: "Translation jobs waiting for a worker.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.CacheHits, m.CacheMisses, m.Coalesced, m.ExternalCalls, m.Failures, m.QueueDepth)
	}
	return m
}
