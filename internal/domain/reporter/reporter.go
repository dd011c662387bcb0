package reporter

import (
	"time"
)

// AnonymousReporter carries the credibility signal attached to a
// pseudonymous reporter key. The score itself is mutated by the intake
// workflow; this core only reads it.
type AnonymousReporter struct {
	ReporterKey      string    `json:"reporter_key"`
	CredibilityScore float64   `json:"credibility_score"`
	TotalComplaints  int       `json:"total_complaints"`
	CreatedAt        time.Time `json:"created_at"`
}

// CredibilityHistoryEntry is one point in the append-only credibility
// trail, ordered by RecordedAt.
type CredibilityHistoryEntry struct {
	ReporterKey string    `json:"reporter_key"`
	Score       float64   `json:"score"`
	Reason      string    `json:"reason,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}
