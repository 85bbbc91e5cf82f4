package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeCollector собирает метрики runtime
type RuntimeCollector struct {
	goroutines *prometheus.Desc
	heapAlloc  *prometheus.Desc
	heapObjs   *prometheus.Desc
	gcRuns     *prometheus.Desc
	gcPause    *prometheus.Desc
}

// NewRuntimeCollector создаёт новый коллектор runtime метрик
func NewRuntimeCollector(namespace, subsystem string) *RuntimeCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
	}
	return &RuntimeCollector{
		goroutines: desc("runtime_goroutines", "Number of goroutines"),
		heapAlloc:  desc("runtime_heap_alloc_bytes", "Bytes of allocated heap objects"),
		heapObjs:   desc("runtime_heap_objects", "Number of allocated heap objects"),
		gcRuns:     desc("runtime_gc_runs_total", "Total number of completed GC cycles"),
		gcPause:    desc("runtime_gc_pause_seconds", "Last GC pause duration"),
	}
}

// Describe implements prometheus.Collector
func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.goroutines
	ch <- c.heapAlloc
	ch <- c.heapObjs
	ch <- c.gcRuns
	ch <- c.gcPause
}

// Collect implements prometheus.Collector
func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	ch <- prometheus.MustNewConstMetric(c.goroutines, prometheus.GaugeValue, float64(runtime.NumGoroutine()))
	ch <- prometheus.MustNewConstMetric(c.heapAlloc, prometheus.GaugeValue, float64(stats.HeapAlloc))
	ch <- prometheus.MustNewConstMetric(c.heapObjs, prometheus.GaugeValue, float64(stats.HeapObjects))
	ch <- prometheus.MustNewConstMetric(c.gcRuns, prometheus.CounterValue, float64(stats.NumGC))

	if stats.NumGC > 0 {
		ch <- prometheus.MustNewConstMetric(c.gcPause, prometheus.GaugeValue, float64(stats.PauseNs[(stats.NumGC+255)%256])/1e9)
	}
}

// InFlight считает выполняющиеся запросы по маршрутам
type InFlight struct {
	mu     sync.Mutex
	active map[string]int
	gauge  prometheus.Gauge
}

// NewInFlight создаёт трекер поверх gauge
func NewInFlight(gauge prometheus.Gauge) *InFlight {
	return &InFlight{active: make(map[string]int), gauge: gauge}
}

// Start отмечает начало запроса и возвращает функцию завершения
func (f *InFlight) Start(route string) func() {
	f.mu.Lock()
	f.active[route]++
	f.gauge.Inc()
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.active[route]--
			f.gauge.Dec()
		})
	}
}

// Active возвращает число активных запросов маршрута
func (f *InFlight) Active(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[route]
}

// Timer для измерения времени выполнения
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer создаёт новый таймер
func NewTimer(histogram *prometheus.HistogramVec, labels ...string) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram.WithLabelValues(labels...),
	}
}

// ObserveDuration записывает длительность
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	t.observer.Observe(duration.Seconds())
	return duration
}
