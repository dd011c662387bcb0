package signals

import (
	"time"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
	"github.com/speakup-platform/speakup-backend/internal/domain/reporter"
)

// Trend labels shared by the windowed comparisons.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Alert levels for targeting alerts.
const (
	AlertLevelMedium = "medium"
	AlertLevelHigh   = "high"
)

// EscalationIndex compares complaint volume in the trailing 30 days
// against the 30 days before that.
type EscalationIndex struct {
	CurrentCount     int     `json:"current_count"`
	PreviousCount    int     `json:"previous_count"`
	PercentageChange float64 `json:"percentage_change"`
	Trend            string  `json:"trend"`
}

// RepeatOffender is an accused entity with repeated substantiated or
// high-risk activity.
type RepeatOffender struct {
	AccusedKey             string  `json:"accused_key"`
	TotalComplaints        int     `json:"total_complaints"`
	GuiltyCount            int     `json:"guilty_count"`
	RiskLevel              string  `json:"risk_level"`
	Department             string  `json:"department,omitempty"`
	RecurrenceIntervalDays float64 `json:"recurrence_interval_days"`
}

// TargetingAlert flags accused entities that may be the target of a
// coordinated low-credibility campaign.
type TargetingAlert struct {
	AccusedKey     string  `json:"accused_key"`
	ComplaintCount int     `json:"complaint_count"`
	AvgCredibility float64 `json:"avg_credibility"`
	AlertLevel     string  `json:"alert_level"`
}

// TargetingCandidate is the raw storage row backing a targeting alert:
// >=3 complaints, zero guilty verdicts, mean reporter credibility <60.
type TargetingCandidate struct {
	AccusedKey     string
	ComplaintCount int
	AvgCredibility float64
}

// EvidenceCounts is a raw (total, without evidence) pair.
type EvidenceCounts struct {
	Total           int
	WithoutEvidence int
}

// LowEvidenceStats reports the share of complaints with no evidence
// file attached, globally and for the two trailing 30-day windows.
type LowEvidenceStats struct {
	OverallRatio   float64 `json:"overall_ratio"`
	Current30Days  float64 `json:"current_30_days"`
	Previous30Days float64 `json:"previous_30_days"`
	Trend          string  `json:"trend"`
}

// DepartmentSnapshot is a department's most recent risk snapshot with
// the immediately preceding score when one exists.
type DepartmentSnapshot struct {
	Department    string
	CurrentScore  float64
	PreviousScore *float64
	RecordedAt    time.Time
}

// DepartmentRiskEntry is the reporting shape for one department.
type DepartmentRiskEntry struct {
	Department           string    `json:"department"`
	RiskScore            float64   `json:"risk_score"`
	RiskChangePercentage float64   `json:"risk_change_percentage"`
	EscalationFlag       bool      `json:"escalation_flag"`
	RecordedAt           time.Time `json:"recorded_at"`
}

// WeekStat is one raw weekly aggregate from storage. Weeks with no
// complaints are absent; the service zero-fills them.
type WeekStat struct {
	WeekStart      time.Time
	ComplaintCount int
	AvgSeverity    float64
	GuiltyCount    int
	VerdictCount   int
}

// TimeTrendBucket is one of the 12 trailing weekly buckets.
type TimeTrendBucket struct {
	WeekStart      time.Time `json:"week_start"`
	ComplaintCount int       `json:"complaint_count"`
	AvgSeverity    float64   `json:"avg_severity"`
	GuiltyRate     float64   `json:"guilty_rate"`
}

// ReporterAggregate is the raw storage row backing a suspicious
// complainant: credibility <60, >=3 complaints, rejected ratio >50%.
type ReporterAggregate struct {
	ReporterKey     string
	Credibility     float64
	TotalComplaints int
	RejectedCount   int
}

// CredibilityPoint is one point of a reporter's credibility trail.
type CredibilityPoint struct {
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SuspiciousComplainant is a reporter whose filing pattern warrants
// review, with up to 8 recent credibility points, oldest first.
type SuspiciousComplainant struct {
	ReporterKey     string             `json:"reporter_key"`
	Credibility     float64            `json:"credibility"`
	TotalComplaints int                `json:"total_complaints"`
	RejectedRatio   float64            `json:"rejected_ratio"`
	History         []CredibilityPoint `json:"history"`
}

// AccusedRecentCount backs the risk-acceleration signal.
type AccusedRecentCount struct {
	AccusedKey  string
	RecentCount int
}

// RiskAccelerationEntry is an accused entity accumulating complaints
// inside the fixed 14-day window.
type RiskAccelerationEntry struct {
	AccusedKey  string `json:"accused_key"`
	RecentCount int    `json:"recent_count"`
	WindowDays  int    `json:"window_days"`
}

// WeekPoint is one week of an accused entity's timeline.
type WeekPoint struct {
	WeekStart      time.Time `json:"week_start"`
	ComplaintCount int       `json:"complaint_count"`
	AvgSeverity    float64   `json:"avg_severity"`
}

// AccusedBreakdown is the per-accused reporting document: a status
// histogram, an 8-week timeline and the no-evidence ratio.
type AccusedBreakdown struct {
	AccusedKey      string         `json:"accused_key"`
	StatusCounts    map[string]int `json:"status_counts"`
	Timeline        []WeekPoint    `json:"timeline"`
	NoEvidenceRatio float64        `json:"no_evidence_ratio"`
}

// profileToOffender keeps the reporting shape decoupled from the
// domain row.
func profileToOffender(p accused.Profile, recurrence float64) RepeatOffender {
	return RepeatOffender{
		AccusedKey:             p.AccusedKey,
		TotalComplaints:        p.TotalComplaints,
		GuiltyCount:            p.GuiltyCount,
		RiskLevel:              p.RiskLevel.String(),
		Department:             p.Department,
		RecurrenceIntervalDays: recurrence,
	}
}

// historyToPoints converts trail entries into reporting points.
func historyToPoints(entries []reporter.CredibilityHistoryEntry) []CredibilityPoint {
	points := make([]CredibilityPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, CredibilityPoint{Score: e.Score, RecordedAt: e.RecordedAt})
	}
	return points
}
