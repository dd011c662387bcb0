package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/speakup-platform/speakup-backend/internal/infrastructure/database"
)

var (
	complaintsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "speakup",
			Subsystem: "analytics",
			Name:      "complaints_ingested_total",
			Help:      "Complaint events accepted by the intake hooks",
		},
	)

	verdictsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "speakup",
			Subsystem: "analytics",
			Name:      "verdicts_ingested_total",
			Help:      "Verdict events accepted by the intake hooks",
		},
		[]string{"outcome"},
	)

	clustersFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "speakup",
			Subsystem: "suspicion",
			Name:      "clusters_flagged_total",
			Help:      "Suspicious clusters created or merged",
		},
	)

	schemaCapability = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "speakup",
			Subsystem: "schema",
			Name:      "capability_enabled",
			Help:      "Optional schema capabilities resolved at startup (1 enabled)",
		},
		[]string{"capability"},
	)
)

// promEventMetrics bridges the intake hooks to Prometheus.
type promEventMetrics struct{}

func (promEventMetrics) ComplaintIngested() {
	complaintsIngested.Inc()
}

func (promEventMetrics) VerdictIngested(outcome string) {
	verdictsIngested.WithLabelValues(outcome).Inc()
}

func (promEventMetrics) ClusterFlagged() {
	clustersFlagged.Inc()
}

// observeCapabilities exports the startup capability descriptor so
// dashboards can tell a disabled feature from a broken one.
func observeCapabilities(caps *database.Capabilities) {
	set := func(name string, enabled bool) {
		v := 0.0
		if enabled {
			v = 1.0
		}
		schemaCapability.WithLabelValues(name).Set(v)
	}
	set("department_metrics", caps.DepartmentMetrics)
	set("cluster_storage", caps.ClusterStorage)
	set("weekly_rollup", caps.WeeklyRollup)
	set("evidence_tracking", caps.EvidenceTracking)
}
