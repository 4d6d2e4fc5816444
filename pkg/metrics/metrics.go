// Package metrics exposes prometheus instrumentation for the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/process"
)

const namespace = "flow_runner"

// Collector owns every metric the service records. Pass nil to New to
// register on the default prometheus registry.
type Collector struct {
	executionsTotal     *prometheus.CounterVec
	executionDuration   *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	running             prometheus.GaugeFunc
	reg                 prometheus.Registerer
}

// New builds and registers the collector.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		reg: reg,
		executionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of finished flow executions",
			},
			[]string{"status"},
		),
		executionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Flow execution duration in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordExecution counts one finished flow run.
func (c *Collector) RecordExecution(status core.FlowStatus, duration time.Duration) {
	c.executionsTotal.WithLabelValues(string(status)).Inc()
	c.executionDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// RecordHTTPRequest counts one served request. Status codes collapse to
// their class so label cardinality stays bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RegisterRunning exposes the supervisor's live execution count as a gauge.
func (c *Collector) RegisterRunning(count func() int) {
	c.running = promauto.With(c.reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_flows",
			Help:      "Number of flow executions currently running",
		},
		func() float64 { return float64(count()) },
	)
}

// WrapSink returns a sink that records each execution before forwarding it
// to next. The run is counted even when persistence fails.
func (c *Collector) WrapSink(next process.Sink) process.Sink {
	return recordingSink{next: next, collector: c}
}

type recordingSink struct {
	next      process.Sink
	collector *Collector
}

func (s recordingSink) SaveExecution(rec process.Record) error {
	s.collector.RecordExecution(rec.Status, time.Duration(rec.DurationMs)*time.Millisecond)
	return s.next.SaveExecution(rec)
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
