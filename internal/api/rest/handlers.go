package rest

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/config"
	"github.com/speakup-platform/speakup-backend/internal/service/insights"
	"github.com/speakup-platform/speakup-backend/internal/service/overview"
	"github.com/speakup-platform/speakup-backend/internal/service/profiles"
	"github.com/speakup-platform/speakup-backend/internal/service/signals"
	"github.com/speakup-platform/speakup-backend/internal/service/suspicion"
)

// Services bundles everything the API serves.
type Services struct {
	Overview  overview.Service
	Signals   signals.Service
	Insights  insights.Service
	Profiles  profiles.Service
	Suspicion suspicion.Engine
}

// Handler serves the analytics reporting surface.
type Handler struct {
	*BaseHandler
	services  Services
	analytics config.AnalyticsConfig
}

// NewHandler creates the API handler.
func NewHandler(services Services, analytics config.AnalyticsConfig) *Handler {
	return &Handler{
		BaseHandler: NewBaseHandler(),
		services:    services,
		analytics:   analytics,
	}
}

// limitParam reads ?limit= and clamps it into the configured range.
func (h *Handler) limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.analytics.DefaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return h.analytics.DefaultLimit
	}
	return h.analytics.ClampLimit(n)
}

// writeListOrEmpty converts a schema-unavailable failure into an empty
// 200 with a feature marker header; anything else is a real error.
func writeListOrEmpty[T any](h *Handler, w http.ResponseWriter, r *http.Request, list []T, err error) {
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeSchemaUnavailable) {
			w.Header().Set("X-Feature-Unavailable", "true")
			h.writeSuccess(w, r, []T{})
			return
		}
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []T{}
	}
	h.writeSuccess(w, r, list)
}

// GetOverview serves the cached dashboard summary.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/overview")
	defer span.End()

	ov, err := h.services.Overview.GetOverview(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, ov)
}

// GetRepeatOffenders serves the repeat-offender list.
func (h *Handler) GetRepeatOffenders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/repeat-offenders")
	defer span.End()

	list, err := h.services.Signals.RepeatOffenders(ctx, h.limitParam(r))
	writeListOrEmpty(h, w, r, list, err)
}

// GetTargetingAlerts serves possible coordinated-targeting alerts.
func (h *Handler) GetTargetingAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/targeting-alerts")
	defer span.End()

	list, err := h.services.Signals.TargetingAlerts(ctx, h.limitParam(r))
	writeListOrEmpty(h, w, r, list, err)
}

// GetDepartmentRisk serves the latest department risk snapshots.
func (h *Handler) GetDepartmentRisk(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/department-risk")
	defer span.End()

	list, err := h.services.Signals.DepartmentRisk(ctx, h.limitParam(r))
	writeListOrEmpty(h, w, r, list, err)
}

// GetTimeTrends serves the 12-week complaint trend.
func (h *Handler) GetTimeTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/time-trends")
	defer span.End()

	buckets, err := h.services.Signals.TimeTrends(ctx)
	writeListOrEmpty(h, w, r, buckets, err)
}

// GetSuspiciousComplainants serves the suspicious reporter list.
func (h *Handler) GetSuspiciousComplainants(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/suspicious-complainants")
	defer span.End()

	list, err := h.services.Signals.SuspiciousComplainants(ctx, h.limitParam(r))
	writeListOrEmpty(h, w, r, list, err)
}

// GetRiskAcceleration serves accused entities gaining complaints fast.
func (h *Handler) GetRiskAcceleration(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/risk-acceleration")
	defer span.End()

	list, err := h.services.Signals.RiskAcceleration(ctx, h.limitParam(r))
	writeListOrEmpty(h, w, r, list, err)
}

// GetSuspiciousClusters serves the cluster review list.
func (h *Handler) GetSuspiciousClusters(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/suspicious-clusters")
	defer span.End()

	list, err := h.services.Suspicion.ListClusters(ctx, h.limitParam(r))
	writeListOrEmpty(h, w, r, list, err)
}

// GetAccusedBreakdown serves one accused entity's breakdown document.
func (h *Handler) GetAccusedBreakdown(w http.ResponseWriter, r *http.Request) {
	accusedKey := r.PathValue("key")
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/accused/{key}/breakdown",
		trace.WithAttributes(attribute.String("accused.key", accusedKey)))
	defer span.End()

	if accusedKey == "" {
		h.writeError(w, r, apperrors.NewValidationError("MISSING_KEY", "accused key is required"))
		return
	}

	breakdown, err := h.services.Signals.AccusedBreakdown(ctx, accusedKey)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, breakdown)
}

// GetInsights serves the composed rule-engine findings.
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/analytics/insights")
	defer span.End()

	report, err := h.services.Insights.Generate(ctx, h.limitParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, report)
}

// GetAccusedProfile serves one materialized profile row.
func (h *Handler) GetAccusedProfile(w http.ResponseWriter, r *http.Request) {
	accusedKey := r.PathValue("key")
	ctx, span := h.tracer.Start(r.Context(), "GET /api/v1/profiles/{key}",
		trace.WithAttributes(attribute.String("accused.key", accusedKey)))
	defer span.End()

	profile, err := h.services.Profiles.GetProfile(ctx, accusedKey)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, profile)
}

// RebuildProfiles triggers a full profile rebuild.
func (h *Handler) RebuildProfiles(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "POST /api/v1/profiles/rebuild")
	defer span.End()

	count, err := h.services.Profiles.RebuildAll(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, map[string]int{"rebuilt": count})
}
