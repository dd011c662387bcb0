package department

import (
	"time"

	"github.com/google/uuid"
)

// RiskMetric is one time-series snapshot of a department's risk score.
// Period-over-period change is computed against the immediately
// preceding snapshot for the same department.
type RiskMetric struct {
	ID         uuid.UUID `json:"id"`
	Department string    `json:"department"`
	RiskScore  float64   `json:"risk_score"`
	RecordedAt time.Time `json:"recorded_at"`
}
