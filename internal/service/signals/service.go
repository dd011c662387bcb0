package signals

import (
	"context"
	"sort"
	"time"

	"github.com/speakup-platform/speakup-backend/internal/domain/complaint"
	"github.com/speakup-platform/speakup-backend/internal/domain/errors"
)

// Options carries the signal query knobs.
type Options struct {
	QueryTimeout time.Duration
	DefaultLimit int
	MaxLimit     int
}

func (o *Options) applyDefaults() {
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 5 * time.Second
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 20
	}
	if o.MaxLimit < o.DefaultLimit {
		o.MaxLimit = 100
	}
}

// service implements the Service interface
type service struct {
	complaints  ComplaintReader
	profiles    ProfileReader
	reporters   ReporterReader
	departments DepartmentReader
	opts        Options
	now         func() time.Time
}

// NewService creates the signal aggregation service.
func NewService(
	complaints ComplaintReader,
	profiles ProfileReader,
	reporters ReporterReader,
	departments DepartmentReader,
	opts Options,
) Service {
	opts.applyDefaults()
	return &service{
		complaints:  complaints,
		profiles:    profiles,
		reporters:   reporters,
		departments: departments,
		opts:        opts,
		now:         time.Now,
	}
}

func (s *service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

func (s *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}

// EscalationIndex compares the trailing 30 days of complaint volume
// against the 30 days before that.
func (s *service) EscalationIndex(ctx context.Context) (*EscalationIndex, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	windowStart := now.AddDate(0, 0, -escalationWindowDays)
	previousStart := now.AddDate(0, 0, -2*escalationWindowDays)

	current, err := s.complaints.CountCreatedBetween(ctx, windowStart, now)
	if err != nil {
		return nil, errors.Classify(err, "failed to count current window")
	}

	previous, err := s.complaints.CountCreatedBetween(ctx, previousStart, windowStart)
	if err != nil {
		return nil, errors.Classify(err, "failed to count previous window")
	}

	change := percentageChange(current, previous)
	return &EscalationIndex{
		CurrentCount:     current,
		PreviousCount:    previous,
		PercentageChange: change,
		Trend:            trendFor(change, escalationTrendThreshold),
	}, nil
}

// RepeatOffenders lists accused entities with total_complaints >= 2 and
// at least one guilty verdict or a high risk level, attaching the mean
// gap in days between their consecutive complaints.
func (s *service) RepeatOffenders(ctx context.Context, limit int) ([]RepeatOffender, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.profiles.RepeatOffenderProfiles(ctx, s.clampLimit(limit))
	if err != nil {
		return nil, errors.Classify(err, "failed to list repeat offenders")
	}

	offenders := make([]RepeatOffender, 0, len(rows))
	for _, p := range rows {
		times, err := s.complaints.ComplaintTimes(ctx, p.AccusedKey)
		if err != nil {
			return nil, errors.Classify(err, "failed to load complaint times")
		}
		offenders = append(offenders, profileToOffender(p, meanGapDays(times)))
	}
	return offenders, nil
}

// TargetingAlerts lists accused entities with >=3 complaints, zero
// guilty verdicts and mean reporter credibility below 60.
func (s *service) TargetingAlerts(ctx context.Context, limit int) ([]TargetingAlert, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	candidates, err := s.profiles.TargetingCandidates(ctx, s.clampLimit(limit))
	if err != nil {
		return nil, errors.Classify(err, "failed to list targeting candidates")
	}

	alerts := make([]TargetingAlert, 0, len(candidates))
	for _, c := range candidates {
		level := AlertLevelMedium
		if c.ComplaintCount >= targetingHighCount || c.AvgCredibility < targetingHighCredibility {
			level = AlertLevelHigh
		}
		alerts = append(alerts, TargetingAlert{
			AccusedKey:     c.AccusedKey,
			ComplaintCount: c.ComplaintCount,
			AvgCredibility: c.AvgCredibility,
			AlertLevel:     level,
		})
	}
	return alerts, nil
}

// LowEvidenceRatio reports the share of complaints with no evidence,
// globally and across the two trailing 30-day windows.
func (s *service) LowEvidenceRatio(ctx context.Context) (*LowEvidenceStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	overall, err := s.complaints.EvidenceStats(ctx)
	if err != nil {
		return nil, errors.Classify(err, "failed to load evidence stats")
	}

	now := s.now()
	windowStart := now.AddDate(0, 0, -escalationWindowDays)
	previousStart := now.AddDate(0, 0, -2*escalationWindowDays)

	current, err := s.complaints.EvidenceStatsBetween(ctx, windowStart, now)
	if err != nil {
		return nil, errors.Classify(err, "failed to load current evidence window")
	}

	previous, err := s.complaints.EvidenceStatsBetween(ctx, previousStart, windowStart)
	if err != nil {
		return nil, errors.Classify(err, "failed to load previous evidence window")
	}

	currentRatio := ratioPct(current.WithoutEvidence, current.Total)
	previousRatio := ratioPct(previous.WithoutEvidence, previous.Total)

	return &LowEvidenceStats{
		OverallRatio:   ratioPct(overall.WithoutEvidence, overall.Total),
		Current30Days:  currentRatio,
		Previous30Days: previousRatio,
		Trend:          trendFor(currentRatio-previousRatio, evidenceTrendThreshold),
	}, nil
}

// DepartmentRisk returns the latest snapshot per department with the
// change against the immediately preceding snapshot. An absent metric
// table reads as "feature not enabled": empty result, no error.
func (s *service) DepartmentRisk(ctx context.Context, limit int) ([]DepartmentRiskEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	snapshots, err := s.departments.LatestSnapshots(ctx, s.clampLimit(limit))
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeSchemaUnavailable) {
			return []DepartmentRiskEntry{}, nil
		}
		return nil, errors.Classify(err, "failed to load department snapshots")
	}

	entries := make([]DepartmentRiskEntry, 0, len(snapshots))
	for _, snap := range snapshots {
		entry := DepartmentRiskEntry{
			Department: snap.Department,
			RiskScore:  snap.CurrentScore,
			RecordedAt: snap.RecordedAt,
		}
		if snap.PreviousScore != nil {
			entry.RiskChangePercentage = scoreChangePct(snap.CurrentScore, *snap.PreviousScore)
			entry.EscalationFlag = entry.RiskChangePercentage > departmentEscalationPct
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RiskScore > entries[j].RiskScore
	})
	return entries, nil
}

// TimeTrends returns exactly 12 trailing weekly buckets. The
// precomputed rollup is preferred; when it is not provisioned the same
// shape is computed live from the raw records.
func (s *service) TimeTrends(ctx context.Context) ([]TimeTrendBucket, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	since := startOfWeek(s.now().UTC()).AddDate(0, 0, -7*(trendWeeks-1))

	stats, err := s.complaints.WeeklyTrendRollup(ctx, since)
	if err != nil {
		if !errors.IsType(err, errors.ErrorTypeSchemaUnavailable) {
			return nil, errors.Classify(err, "failed to read weekly rollup")
		}
		stats, err = s.complaints.WeeklyTrendStats(ctx, since)
		if err != nil {
			return nil, errors.Classify(err, "failed to compute weekly trends")
		}
	}

	byWeek := make(map[time.Time]WeekStat, len(stats))
	for _, st := range stats {
		byWeek[st.WeekStart.UTC()] = st
	}

	buckets := make([]TimeTrendBucket, 0, trendWeeks)
	for i := 0; i < trendWeeks; i++ {
		week := since.AddDate(0, 0, 7*i)
		bucket := TimeTrendBucket{WeekStart: week}
		if st, ok := byWeek[week]; ok {
			bucket.ComplaintCount = st.ComplaintCount
			bucket.AvgSeverity = st.AvgSeverity
			if st.VerdictCount > 0 {
				bucket.GuiltyRate = float64(st.GuiltyCount) / float64(st.VerdictCount)
			}
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// SuspiciousComplainants lists reporters with credibility below 60, at
// least 3 complaints and a rejection ratio above 50%, attaching up to 8
// recent credibility points, oldest first.
func (s *service) SuspiciousComplainants(ctx context.Context, limit int) ([]SuspiciousComplainant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.reporters.SuspiciousReporters(ctx, s.clampLimit(limit))
	if err != nil {
		return nil, errors.Classify(err, "failed to list suspicious reporters")
	}

	complainants := make([]SuspiciousComplainant, 0, len(rows))
	for _, r := range rows {
		ratio := ratioPct(r.RejectedCount, r.TotalComplaints)
		if ratio <= complainantRejectionPct {
			continue
		}

		history, err := s.reporters.RecentCredibilityHistory(ctx, r.ReporterKey, complainantHistoryN)
		if err != nil {
			return nil, errors.Classify(err, "failed to load credibility history")
		}

		// Storage hands back newest first; the trail reads oldest first.
		points := historyToPoints(history)
		for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
			points[i], points[j] = points[j], points[i]
		}

		complainants = append(complainants, SuspiciousComplainant{
			ReporterKey:     r.ReporterKey,
			Credibility:     r.Credibility,
			TotalComplaints: r.TotalComplaints,
			RejectedRatio:   ratio,
			History:         points,
		})
	}
	return complainants, nil
}

// RiskAcceleration lists accused entities with >=2 complaints inside
// the fixed trailing 14-day window, ordered by recent count descending.
func (s *service) RiskAcceleration(ctx context.Context, limit int) ([]RiskAccelerationEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	since := s.now().AddDate(0, 0, -riskAccelerationWindowDays)
	rows, err := s.complaints.RecentAccusedCounts(ctx, since, riskAccelerationMinCount, s.clampLimit(limit))
	if err != nil {
		return nil, errors.Classify(err, "failed to load recent accused counts")
	}

	entries := make([]RiskAccelerationEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, RiskAccelerationEntry{
			AccusedKey:  r.AccusedKey,
			RecentCount: r.RecentCount,
			WindowDays:  riskAccelerationWindowDays,
		})
	}
	return entries, nil
}

// AccusedBreakdown composes the per-accused document: zero-filled
// status histogram, 8-week timeline and no-evidence ratio.
func (s *service) AccusedBreakdown(ctx context.Context, accusedKey string) (*AccusedBreakdown, error) {
	if accusedKey == "" {
		return nil, errors.NewValidationError("INVALID_ACCUSED_KEY", "accused key cannot be empty")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	counts, err := s.complaints.StatusCounts(ctx, accusedKey)
	if err != nil {
		return nil, errors.Classify(err, "failed to load status counts")
	}

	statusCounts := make(map[string]int, 4)
	for _, st := range complaint.Statuses() {
		statusCounts[st.String()] = counts[st]
	}

	since := startOfWeek(s.now().UTC()).AddDate(0, 0, -7*(breakdownWeeks-1))
	stats, err := s.complaints.AccusedWeeklyStats(ctx, accusedKey, since)
	if err != nil {
		return nil, errors.Classify(err, "failed to load accused timeline")
	}

	byWeek := make(map[time.Time]WeekStat, len(stats))
	for _, st := range stats {
		byWeek[st.WeekStart.UTC()] = st
	}
	timeline := make([]WeekPoint, 0, breakdownWeeks)
	for i := 0; i < breakdownWeeks; i++ {
		week := since.AddDate(0, 0, 7*i)
		point := WeekPoint{WeekStart: week}
		if st, ok := byWeek[week]; ok {
			point.ComplaintCount = st.ComplaintCount
			point.AvgSeverity = st.AvgSeverity
		}
		timeline = append(timeline, point)
	}

	evidence, err := s.complaints.AccusedEvidenceStats(ctx, accusedKey)
	if err != nil {
		return nil, errors.Classify(err, "failed to load accused evidence stats")
	}

	return &AccusedBreakdown{
		AccusedKey:      accusedKey,
		StatusCounts:    statusCounts,
		Timeline:        timeline,
		NoEvidenceRatio: ratioPct(evidence.WithoutEvidence, evidence.Total),
	}, nil
}

// Helpers

// percentageChange follows the window-comparison contract: an empty
// previous window reads as +100% when anything arrived, 0 otherwise.
func percentageChange(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// scoreChangePct is percentageChange over float scores: rising off a
// zero baseline reads as +100%.
func scoreChangePct(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

func trendFor(change, threshold float64) string {
	switch {
	case change > threshold:
		return TrendIncreasing
	case change < -threshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func ratioPct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// meanGapDays is the mean gap in days between consecutive complaint
// times, computed over consecutive pairs in ascending order.
func meanGapDays(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var total float64
	for i := 1; i < len(sorted); i++ {
		total += sorted[i].Sub(sorted[i-1]).Hours() / 24
	}
	return total / float64(len(sorted)-1)
}

// startOfWeek truncates to the Monday 00:00 UTC of t's week.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}
