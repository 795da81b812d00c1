// Package metrics implements Prometheus metrics for the ingestion daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ObservationsInsertedTotal counts observations successfully inserted
	// into the sinks, by connector and station.
	ObservationsInsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodata_observations_inserted_total",
			Help: "Total number of observations successfully inserted",
		},
		[]string{"connector", "station"},
	)

	// ObservationsRejectedTotal counts observations dropped by the
	// ingestion pipeline, by connector and reason.
	ObservationsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodata_observations_rejected_total",
			Help: "Total number of observations rejected by the ingestion pipeline",
		},
		[]string{"connector", "reason"},
	)

	// SinkInsertLatencySeconds measures sink insert latency.
	SinkInsertLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteodata_sink_insert_latency_seconds",
			Help:    "Latency of observation sink inserts in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"sink"},
	)

	// ConnectorState tracks the current state of each connector
	// (0=stopped, 1=starting, 2=running, 3=stopping).
	ConnectorState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meteodata_connector_state",
			Help: "Current state of each connector",
		},
		[]string{"connector"},
	)

	// MQTTGroupsActive tracks the number of live MQTT broker group sessions.
	MQTTGroupsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meteodata_mqtt_groups_active",
			Help: "Number of active MQTT broker group sessions",
		},
	)

	// PollDownloadsTotal counts periodic-poll download attempts by
	// downloader and outcome.
	PollDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodata_poll_downloads_total",
			Help: "Total number of periodic-poll download attempts",
		},
		[]string{"downloader", "outcome"},
	)

	// ControlCommandsTotal counts control-plane commands handled by
	// category and verb.
	ControlCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteodata_control_commands_total",
			Help: "Total number of control-plane commands handled",
		},
		[]string{"category", "verb"},
	)
)

// ConnectorStateValue maps connector.State to the numeric gauge value.
const (
	StateStopped  = 0
	StateStarting = 1
	StateRunning  = 2
	StateStopping = 3
)
