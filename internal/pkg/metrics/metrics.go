package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ConnectionStatus records the state of the vehicle link
	// (1 = connected, 0 = not connected).
	ConnectionStatus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "airlink_connection_status",
			Help: "The vehicle link status (1=connected, 0=not connected).",
		},
	)

	// CommandsTotal counts commands sent over the link by verb and outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlink_commands_total",
			Help: "Total number of commands sent to the vehicle.",
		},
		[]string{"verb", "status"}, // status: ok/rejected/timeout/transport_error/canceled
	)

	// CommandLatency records command round-trip time in seconds.
	CommandLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airlink_command_latency_seconds",
			Help:    "Round-trip latency of synchronous commands.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// TelemetryRecordsTotal counts decoded telemetry datagrams.
	TelemetryRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airlink_telemetry_records_total",
			Help: "Total number of decoded telemetry records.",
		},
	)

	// SafetyEventsTotal counts safety events raised by the policy loop.
	SafetyEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlink_safety_events_total",
			Help: "Total number of safety events raised.",
		},
		[]string{"level"},
	)

	// AutoLandsTotal counts safety-triggered automatic landings.
	AutoLandsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airlink_auto_lands_total",
			Help: "Total number of safety-triggered automatic landings.",
		},
	)

	// EmergencyStopsTotal counts emergency motor cuts.
	EmergencyStopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "airlink_emergency_stops_total",
			Help: "Total number of emergency stops.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ConnectionStatus,
		CommandsTotal,
		CommandLatency,
		TelemetryRecordsTotal,
		SafetyEventsTotal,
		AutoLandsTotal,
		EmergencyStopsTotal,
	)
}
