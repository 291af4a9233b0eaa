// Package metrics exposes Prometheus instrumentation for the bridge: poll
// ticks, job deliveries, license state, update checks and remote calls.
// The collectors register with the default registry and are served by the
// status API at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes.
const (
	OutcomeDelivered  = "delivered"
	OutcomeSkipped    = "skipped"
	OutcomeWriteError = "write_error"
	OutcomeAckError   = "ack_error"
)

var (
	PollTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_poll_ticks_total",
			Help: "Job poll ticks by result",
		},
		[]string{"result"}, // "unauthenticated", "license_inactive", "fetched", "fetch_error"
	)

	JobsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_jobs_fetched_total",
			Help: "Jobs returned by the server across all polls",
		},
	)

	JobDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_job_deliveries_total",
			Help: "Job delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridge_job_delivery_duration_seconds",
			Help:    "Time to write and acknowledge one job",
			Buckets: prometheus.DefBuckets,
		},
	)

	LicenseActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_license_active",
			Help: "1 when the last license check reported an active license",
		},
	)

	LicenseChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_license_checks_total",
			Help: "License checks by resulting status",
		},
		[]string{"status"},
	)

	UpdateChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_update_checks_total",
			Help: "Update checks by result",
		},
		[]string{"result"}, // "current", "available", "error"
	)

	DeviceSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_device_syncs_total",
			Help: "Device syncs by result",
		},
		[]string{"result"},
	)

	Polling = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_polling",
			Help: "1 while the job poller timer is running",
		},
	)
)

// RecordDelivery counts one delivery attempt.
func RecordDelivery(outcome string, duration time.Duration) {
	JobDeliveries.WithLabelValues(outcome).Inc()
	if outcome == OutcomeDelivered {
		DeliveryDuration.Observe(duration.Seconds())
	}
}

// RecordLicense records the status of a completed license check.
func RecordLicense(status string, active bool) {
	LicenseChecks.WithLabelValues(status).Inc()
	LicenseActive.Set(boolValue(active))
}

// SetPolling flips the poller gauge.
func SetPolling(running bool) {
	Polling.Set(boolValue(running))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
