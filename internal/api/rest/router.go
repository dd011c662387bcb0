package rest

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every endpoint onto a ServeMux.
func NewRouter(h *Handler, events *EventHandler, health *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/analytics/overview", h.GetOverview)
	mux.HandleFunc("GET /api/v1/analytics/repeat-offenders", h.GetRepeatOffenders)
	mux.HandleFunc("GET /api/v1/analytics/targeting-alerts", h.GetTargetingAlerts)
	mux.HandleFunc("GET /api/v1/analytics/department-risk", h.GetDepartmentRisk)
	mux.HandleFunc("GET /api/v1/analytics/time-trends", h.GetTimeTrends)
	mux.HandleFunc("GET /api/v1/analytics/suspicious-complainants", h.GetSuspiciousComplainants)
	mux.HandleFunc("GET /api/v1/analytics/risk-acceleration", h.GetRiskAcceleration)
	mux.HandleFunc("GET /api/v1/analytics/suspicious-clusters", h.GetSuspiciousClusters)
	mux.HandleFunc("GET /api/v1/analytics/accused/{key}/breakdown", h.GetAccusedBreakdown)
	mux.HandleFunc("GET /api/v1/analytics/insights", h.GetInsights)

	mux.HandleFunc("GET /api/v1/profiles/{key}", h.GetAccusedProfile)
	mux.HandleFunc("POST /api/v1/profiles/rebuild", h.RebuildProfiles)

	mux.HandleFunc("POST /internal/events/complaint", events.HandleComplaintEvent)
	mux.HandleFunc("POST /internal/events/verdict", events.HandleVerdictEvent)

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
