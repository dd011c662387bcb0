package signals

import (
	"context"
	"time"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
	"github.com/speakup-platform/speakup-backend/internal/domain/complaint"
	"github.com/speakup-platform/speakup-backend/internal/domain/reporter"
)

// Service exposes the independent read-only risk signals. Every method
// runs under a bounded timeout; list results are clamped by the
// configured limits.
type Service interface {
	// EscalationIndex compares 30-day complaint volume windows.
	EscalationIndex(ctx context.Context) (*EscalationIndex, error)
	// RepeatOffenders lists accused entities with repeated activity,
	// ordered by total complaints then guilty count, descending.
	RepeatOffenders(ctx context.Context, limit int) ([]RepeatOffender, error)
	// TargetingAlerts lists accused entities that look like campaign
	// targets.
	TargetingAlerts(ctx context.Context, limit int) ([]TargetingAlert, error)
	// LowEvidenceRatio reports the no-evidence complaint share.
	LowEvidenceRatio(ctx context.Context) (*LowEvidenceStats, error)
	// DepartmentRisk lists the latest per-department snapshots ordered
	// by current score descending.
	DepartmentRisk(ctx context.Context, limit int) ([]DepartmentRiskEntry, error)
	// TimeTrends returns exactly 12 trailing weekly buckets, zero
	// filled.
	TimeTrends(ctx context.Context) ([]TimeTrendBucket, error)
	// SuspiciousComplainants lists reporters with low credibility and a
	// high rejection ratio.
	SuspiciousComplainants(ctx context.Context, limit int) ([]SuspiciousComplainant, error)
	// RiskAcceleration lists accused entities with >=2 complaints in
	// the fixed trailing 14-day window.
	RiskAcceleration(ctx context.Context, limit int) ([]RiskAccelerationEntry, error)
	// AccusedBreakdown returns the per-accused reporting document.
	AccusedBreakdown(ctx context.Context, accusedKey string) (*AccusedBreakdown, error)
}

// ComplaintReader reads raw complaint aggregates.
type ComplaintReader interface {
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	EvidenceStats(ctx context.Context) (EvidenceCounts, error)
	EvidenceStatsBetween(ctx context.Context, from, to time.Time) (EvidenceCounts, error)
	AccusedEvidenceStats(ctx context.Context, accusedKey string) (EvidenceCounts, error)
	// ComplaintTimes returns creation times for one accused entity in
	// ascending order.
	ComplaintTimes(ctx context.Context, accusedKey string) ([]time.Time, error)
	StatusCounts(ctx context.Context, accusedKey string) (map[complaint.Status]int, error)
	// AccusedWeeklyStats returns sparse weekly aggregates for one
	// accused entity since the given time.
	AccusedWeeklyStats(ctx context.Context, accusedKey string, since time.Time) ([]WeekStat, error)
	// RecentAccusedCounts lists accused keys with at least minCount
	// complaints since the given time, ordered by count descending.
	RecentAccusedCounts(ctx context.Context, since time.Time, minCount, limit int) ([]AccusedRecentCount, error)
	// WeeklyTrendStats computes sparse weekly aggregates live from the
	// raw records.
	WeeklyTrendStats(ctx context.Context, since time.Time) ([]WeekStat, error)
	// WeeklyTrendRollup reads the precomputed weekly rollup. Returns a
	// schema-unavailable error when the rollup is not provisioned.
	WeeklyTrendRollup(ctx context.Context, since time.Time) ([]WeekStat, error)
}

// ProfileReader reads materialized accused profiles.
type ProfileReader interface {
	RepeatOffenderProfiles(ctx context.Context, limit int) ([]accused.Profile, error)
	TargetingCandidates(ctx context.Context, limit int) ([]TargetingCandidate, error)
}

// ReporterReader reads reporter credibility aggregates.
type ReporterReader interface {
	SuspiciousReporters(ctx context.Context, limit int) ([]ReporterAggregate, error)
	// RecentCredibilityHistory returns up to limit most recent entries,
	// newest first.
	RecentCredibilityHistory(ctx context.Context, reporterKey string, limit int) ([]reporter.CredibilityHistoryEntry, error)
}

// DepartmentReader reads department risk snapshots. Implementations
// return a schema-unavailable error when the metric storage is not
// provisioned.
type DepartmentReader interface {
	LatestSnapshots(ctx context.Context, limit int) ([]DepartmentSnapshot, error)
}
