package accused

import (
	"fmt"
	"time"
)

// Profile is the materialized per-accused risk row. total_complaints
// tracks the authoritative complaint count for the accused key; both
// counters only ever move through atomic single-row increments or a
// full rebuild.
type Profile struct {
	AccusedKey       string    `json:"accused_key"`
	TotalComplaints  int       `json:"total_complaints"`
	GuiltyCount      int       `json:"guilty_count"`
	RiskLevel        RiskLevel `json:"risk_level"`
	CredibilityScore float64   `json:"credibility_score"`
	Department       string    `json:"department"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	default:
		return RiskLow, fmt.Errorf("unknown risk level %q", s)
	}
}

// RiskLevelFor is the canonical risk formula, shared by the increment
// and rebuild paths. It is monotonic non-decreasing in both counters.
func RiskLevelFor(totalComplaints, guiltyCount int) RiskLevel {
	switch {
	case guiltyCount >= 2 || totalComplaints >= 6:
		return RiskHigh
	case guiltyCount >= 1 || totalComplaints >= 3:
		return RiskMedium
	default:
		return RiskLow
	}
}
