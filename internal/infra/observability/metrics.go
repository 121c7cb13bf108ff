package observability

import (
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the comparison service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	computations     *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	tableLoads       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tributario_compute_duration_seconds",
				Help:    "Duration of engine computations by operation.",
				Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"operation"},
		),
		computations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tributario_computations_total",
				Help: "Total computations by selected Simples Nacional anexo.",
			},
			[]string{"anexo"},
		),
		validationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tributario_validation_errors_total",
				Help: "Total rejected requests by offending field.",
			},
			[]string{"field"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tributario_external_errors_total",
				Help: "Total errors from external table sources.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tributario_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tributario_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tributario_requests_total",
				Help: "Total comparison requests processed.",
			},
			[]string{"status"},
		),
		tableLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tributario_table_loads_total",
				Help: "Total rate table loads by source kind.",
			},
			[]string{"source"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrComputation counts a computation under its selected anexo.
func (m *Metrics) IncrComputation(anexo string) {
	m.computations.WithLabelValues(anexo).Inc()
}

// IncrValidationError counts a rejected request.
func (m *Metrics) IncrValidationError(field string) {
	m.validationErrors.WithLabelValues(field).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrTableLoad counts a successful table load.
func (m *Metrics) IncrTableLoad(source string) {
	m.tableLoads.WithLabelValues(source).Inc()
}

// GetEngineSnapshot returns a snapshot suitable for GET /metrics/engine.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	byAnexo := make(map[string]int64, len(domain.AnexoNames))
	var total float64
	for _, name := range domain.AnexoNames {
		v := getCounterValue(m.computations, name)
		total += v
		if v > 0 {
			byAnexo[name] = int64(v)
		}
	}

	success := getCounterValue(m.requestsTotal, "success")
	rejected := getCounterValue(m.requestsTotal, "rejected")
	failed := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "result")
	cacheMisses := getCounterValue(m.cacheMisses, "result")

	validationErrorRate := float64(0)
	if requests := success + rejected + failed; requests > 0 {
		validationErrorRate = rejected / requests
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	var tableLoads float64
	for _, src := range []string{"embedded", "file", "url"} {
		tableLoads += getCounterValue(m.tableLoads, src)
	}

	return &domain.EngineMetrics{
		TotalComputations:   int64(total),
		ComputationsByAnexo: byAnexo,
		AvgComputeMs:        getHistogramMean(m.requestDuration, "compute") * 1000,
		ValidationErrors:    int64(rejected),
		ValidationErrorRate: validationErrorRate,
		CacheHitRate:        cacheHitRate,
		TableLoads:          int64(tableLoads),
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// getHistogramMean returns sum/count of a histogram series, in seconds.
func getHistogramMean(hv *prometheus.HistogramVec, label string) float64 {
	h := hv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := h.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Histogram == nil || m.Histogram.GetSampleCount() == 0 {
		return 0
	}
	return m.Histogram.GetSampleSum() / float64(m.Histogram.GetSampleCount())
}
