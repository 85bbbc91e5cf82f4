package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// HTTP метрики
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Бизнес-метрики
	ValidationsTotal *prometheus.CounterVec
	MinimizerRuns    *prometheus.CounterVec
	MinimizerSeconds *prometheus.HistogramVec
	ActiveSetSize    *prometheus.HistogramVec
	Compression      *prometheus.GaugeVec
	PathsFound       *prometheus.HistogramVec
	InstanceSensors  prometheus.Histogram
	InstancePOIs     prometheus.Histogram

	// Кэш
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	defaultMu      sync.Mutex
)

// InitMetrics инициализирует метрики в реестре по умолчанию
func InitMetrics(namespace, subsystem string) *Metrics {
	m := NewMetrics(prometheus.DefaultRegisterer, namespace, subsystem)

	defaultMu.Lock()
	defaultMetrics = m
	defaultMu.Unlock()
	return m
}

// NewMetrics регистрирует метрики в переданном реестре
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "validations_total",
				Help:      "Total number of K-coverage and M-connectivity checks",
			},
			[]string{"property", "result"},
		),

		MinimizerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "minimizer_runs_total",
				Help:      "Total number of minimizer runs",
			},
			[]string{"method", "status"},
		),

		MinimizerSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "minimizer_duration_seconds",
				Help:      "Duration of minimizer runs",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
			[]string{"method"},
		),

		ActiveSetSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active_set_size",
				Help:      "Number of active sensors returned by a minimizer",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"method"},
		),

		Compression: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compression_ratio",
				Help:      "Fraction of sensors turned off by the last run of a minimizer",
			},
			[]string{"method"},
		),

		PathsFound: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "paths_found",
				Help:      "Number of POI-to-sink paths committed to by a run",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"method"},
		),

		InstanceSensors: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "instance_sensors",
				Help:      "Number of sensors in processed instances",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
		),

		InstancePOIs: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "instance_pois",
				Help:      "Number of POIs in processed instances",
				Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
			},
		),

		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Result cache hits",
			},
			[]string{"cache"},
		),

		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Result cache misses",
			},
			[]string{"cache"},
		),

		ServiceInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	defaultMu.Lock()
	m := defaultMetrics
	defaultMu.Unlock()

	if m == nil {
		return InitMetrics("kcmc", "")
	}
	return m
}

// RecordHTTPRequest записывает метрики HTTP запроса
func (m *Metrics) RecordHTTPRequest(route, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordValidation записывает результат проверки свойства
func (m *Metrics) RecordValidation(property string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.ValidationsTotal.WithLabelValues(property, result).Inc()
}

// RecordMinimizerRun записывает метрики прогона минимизатора
func (m *Metrics) RecordMinimizerRun(method string, success bool, duration time.Duration, active, paths int, compression float64) {
	status := "success"
	if !success {
		status = "error"
	}

	m.MinimizerRuns.WithLabelValues(method, status).Inc()
	m.MinimizerSeconds.WithLabelValues(method).Observe(duration.Seconds())
	if success {
		m.ActiveSetSize.WithLabelValues(method).Observe(float64(active))
		m.PathsFound.WithLabelValues(method).Observe(float64(paths))
		m.Compression.WithLabelValues(method).Set(compression)
	}
}

// RecordInstanceSize записывает размер экземпляра
func (m *Metrics) RecordInstanceSize(pois, sensors int) {
	m.InstancePOIs.Observe(float64(pois))
	m.InstanceSensors.Observe(float64(sensors))
}

// RecordCache записывает попадание или промах кэша
func (m *Metrics) RecordCache(cache string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor возвращает handler для отдельного реестра
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
