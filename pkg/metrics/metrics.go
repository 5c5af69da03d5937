package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry           *prometheus.Registry
	registryOnce       sync.Once
	defaultMetricsPath = "/metrics"
	metricsEnabled     = true

	// Simulation metrics
	ActiveCalls        prometheus.Gauge
	CallsStarted       *prometheus.CounterVec
	CallsEnded         *prometheus.CounterVec
	UtterancesTotal    *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	AdvancementFaults  *prometheus.CounterVec
	AlertsRaised       *prometheus.CounterVec
	SummarizerOutcomes *prometheus.CounterVec

	// Delivery metrics
	EventsPublished       *prometheus.CounterVec
	EventsDropped         *prometheus.CounterVec
	WebSocketClients      prometheus.Gauge
	AMQPPublishedMessages *prometheus.CounterVec
	AMQPConnectionStatus  prometheus.Gauge
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		ActiveCalls = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "callmonitor_active_calls",
			Help: "Number of calls currently in progress",
		})

		CallsStarted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_calls_started_total",
				Help: "Total number of simulated calls started",
			},
			[]string{"scenario"},
		)

		CallsEnded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_calls_ended_total",
				Help: "Total number of calls ended by resolution type",
			},
			[]string{"resolution"},
		)

		UtterancesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_utterances_total",
				Help: "Total number of analyzed utterances",
			},
			[]string{"speaker", "intent"},
		)

		CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callmonitor_cycle_duration_seconds",
			Help:    "Time taken by one advancement cycle",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		})

		AdvancementFaults = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_advancement_faults_total",
				Help: "Faults isolated while advancing or creating calls",
			},
			[]string{"stage"},
		)

		AlertsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_alerts_raised_total",
				Help: "Total number of alerts raised",
			},
			[]string{"alert_type", "severity"},
		)

		SummarizerOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_summarizer_outcomes_total",
				Help: "Final call summaries by source",
			},
			[]string{"source"},
		)

		EventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_events_published_total",
				Help: "Events accepted by the broker",
			},
			[]string{"event_type"},
		)

		EventsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_events_dropped_total",
				Help: "Events dropped because a subscriber queue was full",
			},
			[]string{"subscriber"},
		)

		WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "callmonitor_websocket_clients",
			Help: "Connected live dashboard clients",
		})

		AMQPPublishedMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmonitor_amqp_published_messages_total",
				Help: "Events published to AMQP",
			},
			[]string{"routing_key", "status"},
		)

		AMQPConnectionStatus = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "callmonitor_amqp_connection_status",
			Help: "AMQP connection status (1 connected, 0 disconnected)",
		})

		registry.MustRegister(
			ActiveCalls,
			CallsStarted,
			CallsEnded,
			UtterancesTotal,
			CycleDuration,
			AdvancementFaults,
			AlertsRaised,
			SummarizerOutcomes,
			EventsPublished,
			EventsDropped,
			WebSocketClients,
			AMQPPublishedMessages,
			AMQPConnectionStatus,
		)

		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// SetMetricsPath sets the HTTP path for metrics endpoint
func SetMetricsPath(path string) {
	defaultMetricsPath = path
}

// EnableMetrics enables or disables metrics collection
func EnableMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IsMetricsEnabled returns whether metrics are enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

func active() bool {
	return metricsEnabled && registry != nil
}

// RegisterHandler registers the metrics HTTP handler
func RegisterHandler(mux *http.ServeMux) {
	if !active() {
		return
	}
	handler := promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			Registry:          registry,
		},
	)
	mux.Handle(defaultMetricsPath, handler)
}

// StartMetrics initializes the metrics service
func StartMetrics(logger *logrus.Logger, enabled bool) {
	if !enabled {
		EnableMetrics(false)
		logger.Info("Metrics collection is disabled")
		return
	}

	Init(logger)
	EnableMetrics(true)
	logger.WithField("metrics_path", defaultMetricsPath).Info("Metrics endpoint initialized")
}

// SetActiveCalls sets the active call gauge
func SetActiveCalls(n int) {
	if active() {
		ActiveCalls.Set(float64(n))
	}
}

// RecordCallStarted counts a new call for its scenario
func RecordCallStarted(scenario string) {
	if active() {
		CallsStarted.WithLabelValues(scenario).Inc()
	}
}

// RecordCallEnded counts an ended call by resolution type
func RecordCallEnded(resolution string) {
	if active() {
		CallsEnded.WithLabelValues(resolution).Inc()
	}
}

// RecordUtterance counts an analyzed line
func RecordUtterance(speaker, intent string) {
	if active() {
		UtterancesTotal.WithLabelValues(speaker, intent).Inc()
	}
}

// ObserveCycle returns a function that records the cycle duration when called
func ObserveCycle() func() {
	if !active() {
		return func() {}
	}

	start := time.Now()
	return func() {
		CycleDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordFault counts an isolated fault at the given stage
func RecordFault(stage string) {
	if active() {
		AdvancementFaults.WithLabelValues(stage).Inc()
	}
}

// RecordAlert counts a raised alert
func RecordAlert(alertType, severity string) {
	if active() {
		AlertsRaised.WithLabelValues(alertType, severity).Inc()
	}
}

// RecordSummary counts a final summary by its source, "llm" or "fallback"
func RecordSummary(source string) {
	if active() {
		SummarizerOutcomes.WithLabelValues(source).Inc()
	}
}

// RecordEventPublished counts an event handed to the broker
func RecordEventPublished(eventType string) {
	if active() {
		EventsPublished.WithLabelValues(eventType).Inc()
	}
}

// RecordEventDropped counts an event a subscriber could not accept
func RecordEventDropped(subscriber string) {
	if active() {
		EventsDropped.WithLabelValues(subscriber).Inc()
	}
}

// SetWebSocketClients sets the connected client gauge
func SetWebSocketClients(n int) {
	if active() {
		WebSocketClients.Set(float64(n))
	}
}

// RecordAMQPPublish records metrics for an AMQP publish
func RecordAMQPPublish(routingKey, status string) {
	if active() {
		AMQPPublishedMessages.WithLabelValues(routingKey, status).Inc()
	}
}

// SetAMQPConnectionStatus sets the AMQP connection status
func SetAMQPConnectionStatus(connected bool) {
	if !active() {
		return
	}
	if connected {
		AMQPConnectionStatus.Set(1)
	} else {
		AMQPConnectionStatus.Set(0)
	}
}
