package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/speakup-platform/speakup-backend/internal/domain/complaint"
	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/service/overview"
	"github.com/speakup-platform/speakup-backend/internal/service/profiles"
	"github.com/speakup-platform/speakup-backend/internal/service/suspicion"
)

// ComplaintStore is the write surface the event hooks need.
type ComplaintStore interface {
	Create(ctx context.Context, c *complaint.Complaint) error
	GetByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status complaint.Status) error
	SaveVerdict(ctx context.Context, v *complaint.Verdict) error
	VerdictFor(ctx context.Context, complaintID uuid.UUID) (*complaint.Verdict, error)
}

// ReporterStore is the reporter write surface.
type ReporterStore interface {
	Touch(ctx context.Context, reporterKey string) error
}

// EventMetrics receives intake counters. All methods must be cheap
// and non-blocking.
type EventMetrics interface {
	ComplaintIngested()
	VerdictIngested(outcome string)
	ClusterFlagged()
}

// EventHandler serves the lifecycle event hooks that feed the
// analytics core.
type EventHandler struct {
	*BaseHandler
	complaints ComplaintStore
	reporters  ReporterStore
	profiles   profiles.Service
	suspicion  suspicion.Engine
	overview   overview.Service
	metrics    EventMetrics
	logger     *slog.Logger
}

// SetMetrics attaches intake instrumentation.
func (h *EventHandler) SetMetrics(m EventMetrics) {
	h.metrics = m
}

// NewEventHandler creates the event hook handler.
func NewEventHandler(
	complaints ComplaintStore,
	reporters ReporterStore,
	profileSvc profiles.Service,
	engine suspicion.Engine,
	overviewSvc overview.Service,
	logger *slog.Logger,
) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		BaseHandler: NewBaseHandler(),
		complaints:  complaints,
		reporters:   reporters,
		profiles:    profileSvc,
		suspicion:   engine,
		overview:    overviewSvc,
		logger:      logger,
	}
}

// ComplaintEventRequest is the intake payload from the complaint
// lifecycle system.
type ComplaintEventRequest struct {
	ComplaintID       string  `json:"complaint_id" validate:"omitempty,uuid4"`
	AccusedKey        string  `json:"accused_key" validate:"required,max=128"`
	ReporterKey       string  `json:"reporter_key" validate:"required,max=128"`
	Severity          float64 `json:"severity" validate:"gte=0,lte=100"`
	HasEvidence       bool    `json:"has_evidence"`
	Department        string  `json:"department" validate:"max=128"`
	DeviceFingerprint string  `json:"device_fingerprint" validate:"max=256"`
}

// VerdictEventRequest is the decision payload.
type VerdictEventRequest struct {
	ComplaintID string `json:"complaint_id" validate:"required,uuid4"`
	Outcome     string `json:"outcome" validate:"required,oneof=guilty not_guilty insufficient_evidence"`
}

// ComplaintEventResponse acknowledges intake and carries the
// evaluation outcome when one ran.
type ComplaintEventResponse struct {
	ComplaintID uuid.UUID         `json:"complaint_id"`
	RiskLevel   string            `json:"risk_level"`
	Suspicion   *suspicion.Result `json:"suspicion,omitempty"`
}

// HandleComplaintEvent records a new complaint and fans it into the
// profile counters and the suspicion evaluation.
func (h *EventHandler) HandleComplaintEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "POST /internal/events/complaint")
	defer span.End()

	var req ComplaintEventRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := complaint.NewComplaint(req.AccusedKey, req.ReporterKey, req.Severity)
	if err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_COMPLAINT", err.Error()))
		return
	}
	if req.ComplaintID != "" {
		id, perr := uuid.Parse(req.ComplaintID)
		if perr != nil {
			h.writeError(w, r, apperrors.NewValidationError("INVALID_COMPLAINT", "complaint_id is not a UUID"))
			return
		}
		c.ID = id
	}
	c.HasEvidence = req.HasEvidence
	c.Department = req.Department
	span.SetAttributes(attribute.String("complaint.id", c.ID.String()))

	if err := h.complaints.Create(ctx, c); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.reporters.Touch(ctx, c.ReporterKey); err != nil {
		h.writeError(w, r, err)
		return
	}

	profile, err := h.profiles.IncrementComplaintCount(ctx, c.AccusedKey)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ComplaintEventResponse{
		ComplaintID: c.ID,
		RiskLevel:   profile.RiskLevel.String(),
	}

	// Evaluation problems never fail intake.
	result, evalErr := h.suspicion.Evaluate(ctx, c.ID, c.AccusedKey, req.DeviceFingerprint)
	if evalErr != nil {
		h.logger.WarnContext(ctx, "suspicion evaluation failed",
			"complaint_id", c.ID.String(), "error", evalErr)
	} else {
		resp.Suspicion = result
	}

	if h.metrics != nil {
		h.metrics.ComplaintIngested()
		if result != nil && result.ClusterID != nil {
			h.metrics.ClusterFlagged()
		}
	}
	h.invalidateOverview(ctx)
	h.writeSuccess(w, r, resp)
}

// HandleVerdictEvent records a decision, closes the complaint and
// bumps the guilty counter when the outcome warrants it.
func (h *EventHandler) HandleVerdictEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "POST /internal/events/verdict")
	defer span.End()

	var req VerdictEventRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	complaintID, err := uuid.Parse(req.ComplaintID)
	if err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_COMPLAINT", "complaint_id is not a UUID"))
		return
	}
	outcome, err := complaint.ParseOutcome(req.Outcome)
	if err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_OUTCOME", err.Error()))
		return
	}
	span.SetAttributes(
		attribute.String("complaint.id", complaintID.String()),
		attribute.String("verdict.outcome", outcome.String()),
	)

	c, err := h.complaints.GetByID(ctx, complaintID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Saving is an upsert, so the guilty counter must track the
	// transition, not the delivery: a re-delivered or re-decided guilty
	// verdict must not bump it again.
	prior, err := h.complaints.VerdictFor(ctx, complaintID)
	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		h.writeError(w, r, err)
		return
	}
	alreadyGuilty := prior != nil && prior.Outcome == complaint.OutcomeGuilty

	verdict, err := complaint.NewVerdict(complaintID, outcome)
	if err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_VERDICT", err.Error()))
		return
	}
	if err := h.complaints.SaveVerdict(ctx, verdict); err != nil {
		h.writeError(w, r, err)
		return
	}

	status := complaint.StatusResolved
	if outcome != complaint.OutcomeGuilty {
		status = complaint.StatusRejected
	}
	if err := h.complaints.UpdateStatus(ctx, complaintID, status); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]string{
		"complaint_id": complaintID.String(),
		"outcome":      outcome.String(),
	}
	if outcome == complaint.OutcomeGuilty && !alreadyGuilty {
		profile, incErr := h.profiles.IncrementGuiltyCount(ctx, c.AccusedKey)
		if incErr != nil {
			h.writeError(w, r, incErr)
			return
		}
		resp["risk_level"] = profile.RiskLevel.String()
	}

	if h.metrics != nil {
		h.metrics.VerdictIngested(outcome.String())
	}
	h.invalidateOverview(ctx)
	h.writeSuccess(w, r, resp)
}

// invalidateOverview drops the cached dashboard after a write; a
// failed invalidation only shortens cache freshness, so it is logged
// and ignored.
func (h *EventHandler) invalidateOverview(ctx context.Context) {
	if h.overview == nil {
		return
	}
	if err := h.overview.Invalidate(ctx); err != nil {
		h.logger.WarnContext(ctx, "overview cache invalidation failed", "error", err)
	}
}
