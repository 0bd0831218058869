package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service records.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Ranking engine
	RankingsTotal      CounterVec
	RankingDuration    HistogramVec
	RankingRows        HistogramVec
	RankingRowsDropped CounterVec

	// Dataset lifecycle
	DatasetUploadsTotal CounterVec
	DatasetSizeRows     HistogramVec

	// Polygon metrics endpoint
	PolygonRequestsTotal CounterVec

	// Infrastructure
	CacheHitsTotal        CounterVec
	CacheMissesTotal      CounterVec
	MessagesProducedTotal CounterVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRankingDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120}
	DefaultRowCountBuckets        = []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000}
)

// NewAppMetrics registers the full metric set against the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.RankingsTotal = collector.RegisterCounter("rankings_total", "Pareto ranking runs", "status")
	m.RankingDuration = collector.RegisterHistogram("ranking_duration_seconds", "Pareto ranking duration", DefaultRankingDurationBuckets, "source")
	m.RankingRows = collector.RegisterHistogram("ranking_rows", "Rows per ranking run", DefaultRowCountBuckets, "source")
	m.RankingRowsDropped = collector.RegisterCounter("ranking_rows_dropped_total", "Rows excluded for missing objective data")

	m.DatasetUploadsTotal = collector.RegisterCounter("dataset_uploads_total", "Dataset uploads", "status")
	m.DatasetSizeRows = collector.RegisterHistogram("dataset_size_rows", "Rows per uploaded dataset", DefaultRowCountBuckets)

	m.PolygonRequestsTotal = collector.RegisterCounter("polygon_requests_total", "Polygon metric computations", "metric", "status")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagesProducedTotal = collector.RegisterCounter("messages_produced_total", "Kafka messages produced", "topic", "status")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Component health (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component", "component", "code")

	return m
}

// RecordHTTPRequest records the standard per-request metrics.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRanking records one ranking run.
func RecordRanking(m *AppMetrics, source string, rows, dropped int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.RankingsTotal.WithLabelValues(status).Inc()
	m.RankingDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.RankingRows.WithLabelValues(source).Observe(float64(rows))
	if dropped > 0 {
		m.RankingRowsDropped.WithLabelValues().Add(float64(dropped))
	}
}

// RecordDatasetUpload records one dataset upload attempt.
func RecordDatasetUpload(m *AppMetrics, rows int, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.DatasetUploadsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.DatasetSizeRows.WithLabelValues().Observe(float64(rows))
	}
}

// RecordPolygonRequest records one polygon metric computation.
func RecordPolygonRequest(m *AppMetrics, metric string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.PolygonRequestsTotal.WithLabelValues(metric, status).Inc()
}

// RecordMessageProduced records one Kafka publish attempt.
func RecordMessageProduced(m *AppMetrics, topic string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.MessagesProducedTotal.WithLabelValues(topic, status).Inc()
}

// RecordHealthCheck sets a component's health gauge.
func RecordHealthCheck(m *AppMetrics, component string, up bool) {
	if m == nil {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordCacheAccess records one cache lookup.
func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordError counts one error against a component.
func RecordError(m *AppMetrics, component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
