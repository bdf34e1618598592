package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factory_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "factory_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Planning
var (
	PlansCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factory_plans_created_total",
		Help: "Production plans created",
	})

	ProductionRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factory_production_recorded_total",
		Help: "Production records booked against plan items",
	})

	MaterialShortagesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factory_material_shortages_detected_total",
		Help: "Shortage entries returned by plan create/update projections",
	})

	AlertDispatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factory_alert_dispatch_failures_total",
		Help: "Shortage alerts that could not be delivered",
	})

	ProjectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "factory_projection_duration_seconds",
		Help:    "Time spent projecting raw-material demand",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	TransactionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factory_transaction_failures_total",
		Help: "Store transactions that failed, by operation",
	}, []string{"operation"})
)

// Runtime and pool gauges, refreshed by Collector
var (
	CPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factory_cpu_percent",
		Help: "Host CPU utilisation",
	})

	MemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factory_memory_percent",
		Help: "Host memory utilisation",
	})

	MemoryUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factory_memory_used_bytes",
		Help: "Host memory in use",
	})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factory_db_active_connections",
		Help: "Acquired database pool connections",
	})

	IdleConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factory_db_idle_connections",
		Help: "Idle database pool connections",
	})

	TotalConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factory_db_total_connections",
		Help: "Open database pool connections",
	})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factory_websocket_clients",
		Help: "Connected plan event subscribers",
	})
)
