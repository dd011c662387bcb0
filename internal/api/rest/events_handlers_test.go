package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
	"github.com/speakup-platform/speakup-backend/internal/domain/complaint"
	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
	domainsuspicion "github.com/speakup-platform/speakup-backend/internal/domain/suspicion"
	"github.com/speakup-platform/speakup-backend/internal/service/suspicion"
	"github.com/speakup-platform/speakup-backend/internal/testutil/fixtures"
)

type mockComplaintStore struct {
	mock.Mock
}

func (m *mockComplaintStore) Create(ctx context.Context, c *complaint.Complaint) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockComplaintStore) GetByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.Complaint), args.Error(1)
}

func (m *mockComplaintStore) UpdateStatus(ctx context.Context, id uuid.UUID, status complaint.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockComplaintStore) SaveVerdict(ctx context.Context, v *complaint.Verdict) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockComplaintStore) VerdictFor(ctx context.Context, complaintID uuid.UUID) (*complaint.Verdict, error) {
	args := m.Called(ctx, complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*complaint.Verdict), args.Error(1)
}

type mockReporterStore struct {
	mock.Mock
}

func (m *mockReporterStore) Touch(ctx context.Context, reporterKey string) error {
	return m.Called(ctx, reporterKey).Error(0)
}

type mockProfileService struct {
	mock.Mock
}

func (m *mockProfileService) IncrementComplaintCount(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	args := m.Called(ctx, accusedKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accused.Profile), args.Error(1)
}

func (m *mockProfileService) IncrementGuiltyCount(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	args := m.Called(ctx, accusedKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accused.Profile), args.Error(1)
}

func (m *mockProfileService) GetProfile(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	args := m.Called(ctx, accusedKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accused.Profile), args.Error(1)
}

func (m *mockProfileService) RebuildAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Evaluate(ctx context.Context, complaintID uuid.UUID, accusedKey, deviceFingerprint string) (*suspicion.Result, error) {
	args := m.Called(ctx, complaintID, accusedKey, deviceFingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*suspicion.Result), args.Error(1)
}

func (m *mockEngine) ListClusters(ctx context.Context, limit int) ([]*domainsuspicion.SuspiciousCluster, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainsuspicion.SuspiciousCluster), args.Error(1)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleComplaintEvent_FansIntoCountersAndEvaluation(t *testing.T) {
	complaints := new(mockComplaintStore)
	reporters := new(mockReporterStore)
	profileSvc := new(mockProfileService)
	engine := new(mockEngine)

	complaints.On("Create", mock.Anything, mock.MatchedBy(func(c *complaint.Complaint) bool {
		return c.AccusedKey == "acc-1" && c.ReporterKey == "rep-1" && c.Department == "logistics"
	})).Return(nil)
	reporters.On("Touch", mock.Anything, "rep-1").Return(nil)
	profileSvc.On("IncrementComplaintCount", mock.Anything, "acc-1").
		Return(&accused.Profile{AccusedKey: "acc-1", TotalComplaints: 3, RiskLevel: accused.RiskMedium}, nil)
	engine.On("Evaluate", mock.Anything, mock.Anything, "acc-1", "device-a").
		Return(&suspicion.Result{SuspicionScore: 60, FlaggedAs: domainsuspicion.FlagMedium}, nil)

	h := NewEventHandler(complaints, reporters, profileSvc, engine, nil, nil)

	rec := postJSON(t, h.HandleComplaintEvent, "/internal/events/complaint", ComplaintEventRequest{
		AccusedKey:        "acc-1",
		ReporterKey:       "rep-1",
		Severity:          70,
		HasEvidence:       false,
		Department:        "logistics",
		DeviceFingerprint: "device-a",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)

	data := env.Data.(map[string]interface{})
	assert.Equal(t, "medium", data["risk_level"])
	assert.NotNil(t, data["suspicion"])
	complaints.AssertExpectations(t)
	profileSvc.AssertExpectations(t)
}

func TestHandleComplaintEvent_EvaluationFailureStillAccepts(t *testing.T) {
	complaints := new(mockComplaintStore)
	reporters := new(mockReporterStore)
	profileSvc := new(mockProfileService)
	engine := new(mockEngine)

	complaints.On("Create", mock.Anything, mock.Anything).Return(nil)
	reporters.On("Touch", mock.Anything, mock.Anything).Return(nil)
	profileSvc.On("IncrementComplaintCount", mock.Anything, "acc-1").
		Return(&accused.Profile{AccusedKey: "acc-1", RiskLevel: accused.RiskLow}, nil)
	engine.On("Evaluate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	h := NewEventHandler(complaints, reporters, profileSvc, engine, nil, nil)

	rec := postJSON(t, h.HandleComplaintEvent, "/internal/events/complaint", ComplaintEventRequest{
		AccusedKey:  "acc-1",
		ReporterKey: "rep-1",
		Severity:    10,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var env ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	data := env.Data.(map[string]interface{})
	assert.Nil(t, data["suspicion"])
}

func TestHandleComplaintEvent_RejectsInvalidPayload(t *testing.T) {
	h := NewEventHandler(new(mockComplaintStore), new(mockReporterStore), new(mockProfileService), new(mockEngine), nil, nil)

	rec := postJSON(t, h.HandleComplaintEvent, "/internal/events/complaint", map[string]interface{}{
		"reporter_key": "rep-1",
		"severity":     150,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVerdictEvent_GuiltyBumpsCounterAndResolves(t *testing.T) {
	complaints := new(mockComplaintStore)
	profileSvc := new(mockProfileService)
	complaintID := uuid.New()

	complaints.On("GetByID", mock.Anything, complaintID).
		Return(fixtures.NewComplaintBuilder(t).WithID(complaintID).WithAccusedKey("acc-1").Build(), nil)
	complaints.On("VerdictFor", mock.Anything, complaintID).
		Return(nil, apperrors.NewNotFoundError("verdict"))
	complaints.On("SaveVerdict", mock.Anything, mock.MatchedBy(func(v *complaint.Verdict) bool {
		return v.ComplaintID == complaintID && v.Outcome == complaint.OutcomeGuilty
	})).Return(nil)
	complaints.On("UpdateStatus", mock.Anything, complaintID, complaint.StatusResolved).Return(nil)
	profileSvc.On("IncrementGuiltyCount", mock.Anything, "acc-1").
		Return(&accused.Profile{AccusedKey: "acc-1", GuiltyCount: 2, RiskLevel: accused.RiskHigh}, nil)

	h := NewEventHandler(complaints, new(mockReporterStore), profileSvc, new(mockEngine), nil, nil)

	rec := postJSON(t, h.HandleVerdictEvent, "/internal/events/verdict", VerdictEventRequest{
		ComplaintID: complaintID.String(),
		Outcome:     "guilty",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "high", data["risk_level"])
	complaints.AssertExpectations(t)
	profileSvc.AssertExpectations(t)
}

func TestHandleVerdictEvent_NotGuiltySkipsGuiltyCounter(t *testing.T) {
	complaints := new(mockComplaintStore)
	profileSvc := new(mockProfileService)
	complaintID := uuid.New()

	complaints.On("GetByID", mock.Anything, complaintID).
		Return(fixtures.NewComplaintBuilder(t).WithID(complaintID).WithAccusedKey("acc-2").Build(), nil)
	complaints.On("VerdictFor", mock.Anything, complaintID).
		Return(nil, apperrors.NewNotFoundError("verdict"))
	complaints.On("SaveVerdict", mock.Anything, mock.Anything).Return(nil)
	complaints.On("UpdateStatus", mock.Anything, complaintID, complaint.StatusRejected).Return(nil)

	h := NewEventHandler(complaints, new(mockReporterStore), profileSvc, new(mockEngine), nil, nil)

	rec := postJSON(t, h.HandleVerdictEvent, "/internal/events/verdict", VerdictEventRequest{
		ComplaintID: complaintID.String(),
		Outcome:     "not_guilty",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	profileSvc.AssertNotCalled(t, "IncrementGuiltyCount", mock.Anything, mock.Anything)
}

func TestHandleVerdictEvent_RedeliveredGuiltyCountsOnce(t *testing.T) {
	complaints := new(mockComplaintStore)
	profileSvc := new(mockProfileService)
	complaintID := uuid.New()

	prior, err := complaint.NewVerdict(complaintID, complaint.OutcomeGuilty)
	require.NoError(t, err)

	complaints.On("GetByID", mock.Anything, complaintID).
		Return(fixtures.NewComplaintBuilder(t).WithID(complaintID).WithAccusedKey("acc-3").Build(), nil)
	complaints.On("VerdictFor", mock.Anything, complaintID).Return(prior, nil)
	complaints.On("SaveVerdict", mock.Anything, mock.Anything).Return(nil)
	complaints.On("UpdateStatus", mock.Anything, complaintID, complaint.StatusResolved).Return(nil)

	h := NewEventHandler(complaints, new(mockReporterStore), profileSvc, new(mockEngine), nil, nil)

	rec := postJSON(t, h.HandleVerdictEvent, "/internal/events/verdict", VerdictEventRequest{
		ComplaintID: complaintID.String(),
		Outcome:     "guilty",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profileSvc.AssertNotCalled(t, "IncrementGuiltyCount", mock.Anything, mock.Anything)
}
