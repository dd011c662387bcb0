package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
	"github.com/speakup-platform/speakup-backend/internal/domain/complaint"
	"github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/domain/reporter"
	"github.com/speakup-platform/speakup-backend/internal/testutil/fixtures"
)

type mockComplaintReader struct{ mock.Mock }

func (m *mockComplaintReader) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}

func (m *mockComplaintReader) EvidenceStats(ctx context.Context) (EvidenceCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(EvidenceCounts), args.Error(1)
}

func (m *mockComplaintReader) EvidenceStatsBetween(ctx context.Context, from, to time.Time) (EvidenceCounts, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(EvidenceCounts), args.Error(1)
}

func (m *mockComplaintReader) AccusedEvidenceStats(ctx context.Context, accusedKey string) (EvidenceCounts, error) {
	args := m.Called(ctx, accusedKey)
	return args.Get(0).(EvidenceCounts), args.Error(1)
}

func (m *mockComplaintReader) ComplaintTimes(ctx context.Context, accusedKey string) ([]time.Time, error) {
	args := m.Called(ctx, accusedKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *mockComplaintReader) StatusCounts(ctx context.Context, accusedKey string) (map[complaint.Status]int, error) {
	args := m.Called(ctx, accusedKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[complaint.Status]int), args.Error(1)
}

func (m *mockComplaintReader) AccusedWeeklyStats(ctx context.Context, accusedKey string, since time.Time) ([]WeekStat, error) {
	args := m.Called(ctx, accusedKey, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WeekStat), args.Error(1)
}

func (m *mockComplaintReader) RecentAccusedCounts(ctx context.Context, since time.Time, minCount, limit int) ([]AccusedRecentCount, error) {
	args := m.Called(ctx, since, minCount, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AccusedRecentCount), args.Error(1)
}

func (m *mockComplaintReader) WeeklyTrendStats(ctx context.Context, since time.Time) ([]WeekStat, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WeekStat), args.Error(1)
}

func (m *mockComplaintReader) WeeklyTrendRollup(ctx context.Context, since time.Time) ([]WeekStat, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WeekStat), args.Error(1)
}

type mockProfileReader struct{ mock.Mock }

func (m *mockProfileReader) RepeatOffenderProfiles(ctx context.Context, limit int) ([]accused.Profile, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accused.Profile), args.Error(1)
}

func (m *mockProfileReader) TargetingCandidates(ctx context.Context, limit int) ([]TargetingCandidate, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TargetingCandidate), args.Error(1)
}

type mockReporterReader struct{ mock.Mock }

func (m *mockReporterReader) SuspiciousReporters(ctx context.Context, limit int) ([]ReporterAggregate, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ReporterAggregate), args.Error(1)
}

func (m *mockReporterReader) RecentCredibilityHistory(ctx context.Context, reporterKey string, limit int) ([]reporter.CredibilityHistoryEntry, error) {
	args := m.Called(ctx, reporterKey, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reporter.CredibilityHistoryEntry), args.Error(1)
}

type mockDepartmentReader struct{ mock.Mock }

func (m *mockDepartmentReader) LatestSnapshots(ctx context.Context, limit int) ([]DepartmentSnapshot, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DepartmentSnapshot), args.Error(1)
}

func newTestService(c *mockComplaintReader, p *mockProfileReader, r *mockReporterReader, d *mockDepartmentReader) *service {
	svc := NewService(c, p, r, d, Options{QueryTimeout: time.Second, DefaultLimit: 20, MaxLimit: 100}).(*service)
	svc.now = func() time.Time { return time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_EscalationIndex(t *testing.T) {
	tests := []struct {
		name           string
		current        int
		previous       int
		expectedChange float64
		expectedTrend  string
	}{
		{"doubling volume", 40, 20, 100.0, TrendIncreasing},
		{"empty previous window", 5, 0, 100.0, TrendIncreasing},
		{"both windows empty", 0, 0, 0.0, TrendStable},
		{"small movement stays stable", 21, 20, 5.0, TrendStable},
		{"declining volume", 10, 20, -50.0, TrendDecreasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			complaints := new(mockComplaintReader)
			svc := newTestService(complaints, new(mockProfileReader), new(mockReporterReader), new(mockDepartmentReader))

			now := svc.now()
			complaints.On("CountCreatedBetween", mock.Anything, now.AddDate(0, 0, -30), now).Return(tt.current, nil)
			complaints.On("CountCreatedBetween", mock.Anything, now.AddDate(0, 0, -60), now.AddDate(0, 0, -30)).Return(tt.previous, nil)

			idx, err := svc.EscalationIndex(context.Background())
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedChange, idx.PercentageChange, 0.0001)
			assert.Equal(t, tt.expectedTrend, idx.Trend)
		})
	}
}

func TestService_RepeatOffenders(t *testing.T) {
	profiles := new(mockProfileReader)
	complaints := new(mockComplaintReader)
	svc := newTestService(complaints, profiles, new(mockReporterReader), new(mockDepartmentReader))

	profiles.On("RepeatOffenderProfiles", mock.Anything, 10).Return([]accused.Profile{
		fixtures.NewProfileBuilder(t).WithAccusedKey("acc-1").WithCounts(4, 1).Build(),
	}, nil)

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	complaints.On("ComplaintTimes", mock.Anything, "acc-1").Return([]time.Time{
		base,
		base.AddDate(0, 0, 10),
		base.AddDate(0, 0, 20),
		base.AddDate(0, 0, 30),
	}, nil)

	offenders, err := svc.RepeatOffenders(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, offenders, 1)
	assert.Equal(t, "acc-1", offenders[0].AccusedKey)
	assert.InDelta(t, 10.0, offenders[0].RecurrenceIntervalDays, 0.0001)
	assert.Equal(t, "medium", offenders[0].RiskLevel)
}

func TestService_TargetingAlerts(t *testing.T) {
	tests := []struct {
		name          string
		candidate     TargetingCandidate
		expectedLevel string
	}{
		{"four complaints credibility 50 is medium", TargetingCandidate{AccusedKey: "acc-1", ComplaintCount: 4, AvgCredibility: 50}, AlertLevelMedium},
		{"credibility 40 escalates to high", TargetingCandidate{AccusedKey: "acc-1", ComplaintCount: 4, AvgCredibility: 40}, AlertLevelHigh},
		{"five complaints escalates to high", TargetingCandidate{AccusedKey: "acc-1", ComplaintCount: 5, AvgCredibility: 55}, AlertLevelHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := new(mockProfileReader)
			svc := newTestService(new(mockComplaintReader), profiles, new(mockReporterReader), new(mockDepartmentReader))
			profiles.On("TargetingCandidates", mock.Anything, 20).Return([]TargetingCandidate{tt.candidate}, nil)

			alerts, err := svc.TargetingAlerts(context.Background(), 0)
			require.NoError(t, err)
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.expectedLevel, alerts[0].AlertLevel)
		})
	}
}

func TestService_LowEvidenceRatio(t *testing.T) {
	complaints := new(mockComplaintReader)
	svc := newTestService(complaints, new(mockProfileReader), new(mockReporterReader), new(mockDepartmentReader))

	now := svc.now()
	complaints.On("EvidenceStats", mock.Anything).Return(EvidenceCounts{Total: 200, WithoutEvidence: 120}, nil)
	complaints.On("EvidenceStatsBetween", mock.Anything, now.AddDate(0, 0, -30), now).Return(EvidenceCounts{Total: 50, WithoutEvidence: 35}, nil)
	complaints.On("EvidenceStatsBetween", mock.Anything, now.AddDate(0, 0, -60), now.AddDate(0, 0, -30)).Return(EvidenceCounts{Total: 40, WithoutEvidence: 24}, nil)

	stats, err := svc.LowEvidenceRatio(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 60.0, stats.OverallRatio, 0.0001)
	assert.InDelta(t, 70.0, stats.Current30Days, 0.0001)
	assert.InDelta(t, 60.0, stats.Previous30Days, 0.0001)
	assert.Equal(t, TrendIncreasing, stats.Trend)
}

func TestService_DepartmentRisk(t *testing.T) {
	prev := 50.0
	flat := 72.0

	departments := new(mockDepartmentReader)
	svc := newTestService(new(mockComplaintReader), new(mockProfileReader), new(mockReporterReader), departments)

	zero := 0.0
	departments.On("LatestSnapshots", mock.Anything, 20).Return([]DepartmentSnapshot{
		{Department: "sales", CurrentScore: 65, PreviousScore: &prev},
		{Department: "eng", CurrentScore: 72, PreviousScore: &flat},
		{Department: "hr", CurrentScore: 40, PreviousScore: nil},
		{Department: "legal", CurrentScore: 35, PreviousScore: &zero},
	}, nil)

	entries, err := svc.DepartmentRisk(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// Ordered by current score descending.
	assert.Equal(t, "eng", entries[0].Department)
	assert.False(t, entries[0].EscalationFlag, "no change means no escalation")

	assert.Equal(t, "sales", entries[1].Department)
	assert.InDelta(t, 30.0, entries[1].RiskChangePercentage, 0.0001)
	assert.True(t, entries[1].EscalationFlag)

	assert.Equal(t, "hr", entries[2].Department)
	assert.False(t, entries[2].EscalationFlag, "first snapshot cannot escalate")

	// Rising off a recorded zero baseline reads as +100% and escalates.
	assert.Equal(t, "legal", entries[3].Department)
	assert.InDelta(t, 100.0, entries[3].RiskChangePercentage, 0.0001)
	assert.True(t, entries[3].EscalationFlag)
}

func TestService_DepartmentRisk_NotProvisioned(t *testing.T) {
	departments := new(mockDepartmentReader)
	svc := newTestService(new(mockComplaintReader), new(mockProfileReader), new(mockReporterReader), departments)

	departments.On("LatestSnapshots", mock.Anything, 20).
		Return(nil, errors.NewSchemaUnavailableError("department metrics"))

	entries, err := svc.DepartmentRisk(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_TimeTrends_ZeroFillsTwelveWeeks(t *testing.T) {
	complaints := new(mockComplaintReader)
	svc := newTestService(complaints, new(mockProfileReader), new(mockReporterReader), new(mockDepartmentReader))

	since := startOfWeek(svc.now()).AddDate(0, 0, -7*11)
	complaints.On("WeeklyTrendRollup", mock.Anything, since).Return([]WeekStat{
		{WeekStart: since.AddDate(0, 0, 7), ComplaintCount: 4, AvgSeverity: 60, GuiltyCount: 1, VerdictCount: 2},
	}, nil)

	buckets, err := svc.TimeTrends(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 12)

	assert.Equal(t, 0, buckets[0].ComplaintCount)
	assert.Equal(t, 4, buckets[1].ComplaintCount)
	assert.InDelta(t, 0.5, buckets[1].GuiltyRate, 0.0001)
	for i, b := range buckets {
		assert.Equal(t, since.AddDate(0, 0, 7*i), b.WeekStart)
	}
}

func TestService_TimeTrends_FallsBackWhenRollupMissing(t *testing.T) {
	complaints := new(mockComplaintReader)
	svc := newTestService(complaints, new(mockProfileReader), new(mockReporterReader), new(mockDepartmentReader))

	since := startOfWeek(svc.now()).AddDate(0, 0, -7*11)
	complaints.On("WeeklyTrendRollup", mock.Anything, since).
		Return(nil, errors.NewSchemaUnavailableError("weekly rollup"))
	complaints.On("WeeklyTrendStats", mock.Anything, since).Return([]WeekStat{
		{WeekStart: since, ComplaintCount: 2, AvgSeverity: 30},
	}, nil)

	buckets, err := svc.TimeTrends(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 12)
	assert.Equal(t, 2, buckets[0].ComplaintCount)
	complaints.AssertCalled(t, "WeeklyTrendStats", mock.Anything, since)
}

func TestService_SuspiciousComplainants(t *testing.T) {
	reporters := new(mockReporterReader)
	svc := newTestService(new(mockComplaintReader), new(mockProfileReader), reporters, new(mockDepartmentReader))

	reporters.On("SuspiciousReporters", mock.Anything, 20).Return([]ReporterAggregate{
		{ReporterKey: "rep-1", Credibility: 42, TotalComplaints: 5, RejectedCount: 3},
		// Low credibility and frequent, but nothing rejected: not
		// suspicious.
		{ReporterKey: "rep-2", Credibility: 40, TotalComplaints: 5, RejectedCount: 0},
		// Exactly half rejected stays below the cut.
		{ReporterKey: "rep-3", Credibility: 45, TotalComplaints: 4, RejectedCount: 2},
	}, nil)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// Newest first, as storage returns it.
	reporters.On("RecentCredibilityHistory", mock.Anything, "rep-1", 8).Return([]reporter.CredibilityHistoryEntry{
		{ReporterKey: "rep-1", Score: 42, RecordedAt: base.AddDate(0, 0, 2)},
		{ReporterKey: "rep-1", Score: 48, RecordedAt: base.AddDate(0, 0, 1)},
		{ReporterKey: "rep-1", Score: 55, RecordedAt: base},
	}, nil)

	complainants, err := svc.SuspiciousComplainants(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, complainants, 1, "rejection ratio must exceed 50%%")

	c := complainants[0]
	assert.Equal(t, "rep-1", c.ReporterKey)
	assert.InDelta(t, 60.0, c.RejectedRatio, 0.0001)
	require.Len(t, c.History, 3)
	assert.Equal(t, 55.0, c.History[0].Score, "history must read oldest first")
	assert.Equal(t, 42.0, c.History[2].Score)
}

func TestService_RiskAcceleration(t *testing.T) {
	complaints := new(mockComplaintReader)
	svc := newTestService(complaints, new(mockProfileReader), new(mockReporterReader), new(mockDepartmentReader))

	since := svc.now().AddDate(0, 0, -14)
	complaints.On("RecentAccusedCounts", mock.Anything, since, 2, 20).Return([]AccusedRecentCount{
		{AccusedKey: "acc-2", RecentCount: 5},
		{AccusedKey: "acc-1", RecentCount: 2},
	}, nil)

	entries, err := svc.RiskAcceleration(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "acc-2", entries[0].AccusedKey)
	assert.Equal(t, 14, entries[0].WindowDays)
}

func TestService_AccusedBreakdown(t *testing.T) {
	complaints := new(mockComplaintReader)
	svc := newTestService(complaints, new(mockProfileReader), new(mockReporterReader), new(mockDepartmentReader))

	complaints.On("StatusCounts", mock.Anything, "acc-1").Return(map[complaint.Status]int{
		complaint.StatusSubmitted: 2,
		complaint.StatusRejected:  1,
	}, nil)

	since := startOfWeek(svc.now()).AddDate(0, 0, -7*7)
	complaints.On("AccusedWeeklyStats", mock.Anything, "acc-1", since).Return([]WeekStat{
		{WeekStart: since.AddDate(0, 0, 7*7), ComplaintCount: 3, AvgSeverity: 45},
	}, nil)
	complaints.On("AccusedEvidenceStats", mock.Anything, "acc-1").Return(EvidenceCounts{Total: 3, WithoutEvidence: 2}, nil)

	breakdown, err := svc.AccusedBreakdown(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, 2, breakdown.StatusCounts["submitted"])
	assert.Equal(t, 0, breakdown.StatusCounts["under_review"], "histogram must be zero filled")
	assert.Equal(t, 0, breakdown.StatusCounts["resolved"])
	assert.Equal(t, 1, breakdown.StatusCounts["rejected"])

	require.Len(t, breakdown.Timeline, 8)
	assert.Equal(t, 3, breakdown.Timeline[7].ComplaintCount)
	assert.InDelta(t, 66.6666, breakdown.NoEvidenceRatio, 0.001)
}

func TestService_AccusedBreakdown_EmptyKey(t *testing.T) {
	svc := newTestService(new(mockComplaintReader), new(mockProfileReader), new(mockReporterReader), new(mockDepartmentReader))
	_, err := svc.AccusedBreakdown(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestMeanGapDays(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, meanGapDays(nil))
	assert.Equal(t, 0.0, meanGapDays([]time.Time{base}))

	// Unordered input must not skew the mean.
	times := []time.Time{base.AddDate(0, 0, 9), base, base.AddDate(0, 0, 3)}
	assert.InDelta(t, 4.5, meanGapDays(times), 0.0001)
}

func TestStartOfWeek(t *testing.T) {
	// A Wednesday truncates to its Monday.
	wed := time.Date(2025, 6, 18, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), startOfWeek(wed))

	// Sunday belongs to the preceding Monday's week.
	sun := time.Date(2025, 6, 22, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), startOfWeek(sun))

	// Monday is already the week start.
	mon := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, startOfWeek(mon))
}
