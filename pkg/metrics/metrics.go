package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersSubmitted counts accepted transfer requests by priority
	TransfersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_transfers_submitted_total",
			Help: "Total number of transfer requests accepted into the queue",
		},
		[]string{"priority"},
	)

	// TransfersRejected counts submissions refused by validation or the health gate
	TransfersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_transfers_rejected_total",
			Help: "Total number of transfer requests rejected at submission",
		},
		[]string{"reason"},
	)

	// TransfersFinished counts transfers reaching a terminal status
	TransfersFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_transfers_finished_total",
			Help: "Total number of transfers that reached a terminal status",
		},
		[]string{"status"},
	)

	// TransferDuration observes wall time from start of processing to a terminal status
	TransferDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groundlink_transfer_duration_seconds",
			Help:    "Duration of transfer processing in seconds",
			Buckets: []float64{0.1, 1, 5, 10, 30, 60, 300},
		},
		[]string{"status"},
	)

	// QueueDepth tracks transfers waiting to be drained
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundlink_transfer_queue_depth",
			Help: "Number of transfers waiting in the queue",
		},
	)

	// TransfersProcessing tracks transfers currently in flight
	TransfersProcessing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundlink_transfers_processing",
			Help: "Number of transfers currently being processed",
		},
	)

	// StationUptime is the latest uptime fraction per station
	StationUptime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groundlink_station_uptime_ratio",
			Help: "Latest observed uptime fraction per station",
		},
		[]string{"station"},
	)

	// StationConsensusRate is the latest validator agreement fraction per station
	StationConsensusRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groundlink_station_consensus_ratio",
			Help: "Latest observed validator agreement fraction per station",
		},
		[]string{"station"},
	)

	// StationLatency is the latest round-trip latency per station
	StationLatency = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groundlink_station_latency_milliseconds",
			Help: "Latest observed round-trip latency per station in milliseconds",
		},
		[]string{"station"},
	)

	// StationThroughput is the latest throughput per station
	StationThroughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groundlink_station_throughput_bytes",
			Help: "Latest observed throughput per station in bytes per second",
		},
		[]string{"station"},
	)

	// StationHealthy is 1 when the station passes the admission gate
	StationHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groundlink_station_healthy",
			Help: "Whether the station currently passes the transfer admission gate",
		},
		[]string{"station"},
	)

	// HealthProbeFailures counts failed health probes per station
	HealthProbeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_health_probe_failures_total",
			Help: "Total number of failed station health probes",
		},
		[]string{"station"},
	)
)

// RecordSubmitted counts an accepted transfer and grows the queue gauge
func RecordSubmitted(priority string) {
	TransfersSubmitted.WithLabelValues(priority).Inc()
	QueueDepth.Inc()
}

// RecordRejected counts a refused submission
func RecordRejected(reason string) {
	TransfersRejected.WithLabelValues(reason).Inc()
}

// RecordDequeued shrinks the queue gauge
func RecordDequeued() {
	QueueDepth.Dec()
}

// RecordStarted marks a transfer as in flight
func RecordStarted() {
	TransfersProcessing.Inc()
}

// RecordFinished counts a terminal transfer; a non-zero started time also
// releases the in-flight gauge and observes the processing duration
func RecordFinished(status string, started time.Time) {
	TransfersFinished.WithLabelValues(status).Inc()
	if started.IsZero() {
		return
	}
	TransfersProcessing.Dec()
	TransferDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// SetStationHealth publishes the latest station metrics
func SetStationHealth(station string, uptime, consensus, latencyMs, throughput float64, healthy bool) {
	StationUptime.WithLabelValues(station).Set(uptime)
	StationConsensusRate.WithLabelValues(station).Set(consensus)
	StationLatency.WithLabelValues(station).Set(latencyMs)
	StationThroughput.WithLabelValues(station).Set(throughput)
	if healthy {
		StationHealthy.WithLabelValues(station).Set(1)
	} else {
		StationHealthy.WithLabelValues(station).Set(0)
	}
}

// RecordProbeFailure counts a failed health probe for station
func RecordProbeFailure(station string) {
	HealthProbeFailures.WithLabelValues(station).Inc()
}
