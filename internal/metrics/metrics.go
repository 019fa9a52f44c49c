// Package metrics defines the Prometheus instruments exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tomato_build_info",
			Help: "Build information",
		},
		[]string{"version", "sha", "date"},
	)

	heartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tomato_heartbeats_total",
			Help: "Number of heartbeats received from the browser tab",
		},
	)

	departureNotices = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tomato_departure_notices_total",
			Help: "Number of going-away notices received from the browser tab",
		},
	)

	watchdogPhase = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tomato_watchdog_phase",
			Help: "Current watchdog phase (0=warmup, 1=monitoring, 2=terminating)",
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, heartbeats, departureNotices, watchdogPhase)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(version, sha, date).Set(1)
}

// RecordHeartbeat increments the heartbeat counter.
func RecordHeartbeat() {
	heartbeats.Inc()
}

// RecordDepartureNotice increments the departure notice counter.
func RecordDepartureNotice() {
	departureNotices.Inc()
}

// SetWatchdogPhase records the watchdog phase as a numeric gauge.
func SetWatchdogPhase(phase float64) {
	watchdogPhase.Set(phase)
}
