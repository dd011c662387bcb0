package suspicion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ComplaintMetadata is the per-complaint device and suspicion record,
// 1:1 with a complaint. flagged_as is persisted regardless of whether
// a cluster is created.
type ComplaintMetadata struct {
	ComplaintID    uuid.UUID `json:"complaint_id"`
	DeviceHash     string    `json:"device_hash"`
	SuspicionScore int       `json:"cluster_suspicion_score"`
	DiversityIndex int       `json:"diversity_index"`
	FlaggedAs      FlagLevel `json:"flagged_as"`
	CreatedAt      time.Time `json:"created_at"`
}

type FlagLevel int

const (
	FlagNone FlagLevel = iota
	FlagMedium
	FlagHigh
)

func (f FlagLevel) String() string {
	switch f {
	case FlagNone:
		return "none"
	case FlagMedium:
		return "medium"
	case FlagHigh:
		return "high"
	default:
		return "unknown"
	}
}

func ParseFlagLevel(s string) (FlagLevel, error) {
	switch s {
	case "", "none":
		return FlagNone, nil
	case "medium":
		return FlagMedium, nil
	case "high":
		return FlagHigh, nil
	default:
		return FlagNone, fmt.Errorf("unknown flag level %q", s)
	}
}

// FlagLevelFor maps a suspicion score to the flag persisted on the
// complaint: high at 70, medium at 45.
func FlagLevelFor(score int) FlagLevel {
	switch {
	case score >= 70:
		return FlagHigh
	case score >= 45:
		return FlagMedium
	default:
		return FlagNone
	}
}
