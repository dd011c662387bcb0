package complaint

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Complaint is a single anonymous report against an accused entity.
// The accused/reporter linkage is immutable after submission; only the
// status moves through the review workflow.
type Complaint struct {
	ID          uuid.UUID `json:"id"`
	AccusedKey  string    `json:"accused_key"`
	ReporterKey string    `json:"reporter_key"`
	Status      Status    `json:"status"`
	Severity    float64   `json:"severity"`
	HasEvidence bool      `json:"has_evidence"`
	// Department is the accused entity's department at submission time.
	Department string `json:"department,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusSubmitted Status = iota
	StatusUnderReview
	StatusResolved
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusUnderReview:
		return "under_review"
	case StatusResolved:
		return "resolved"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ParseStatus maps the wire/database representation back to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "submitted":
		return StatusSubmitted, nil
	case "under_review":
		return StatusUnderReview, nil
	case "resolved":
		return StatusResolved, nil
	case "rejected":
		return StatusRejected, nil
	default:
		return StatusSubmitted, fmt.Errorf("unknown complaint status %q", s)
	}
}

// Terminal reports whether the complaint has left the review workflow.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Statuses returns all workflow statuses in histogram order.
func Statuses() []Status {
	return []Status{StatusSubmitted, StatusUnderReview, StatusResolved, StatusRejected}
}

func NewComplaint(accusedKey, reporterKey string, severity float64) (*Complaint, error) {
	if accusedKey == "" {
		return nil, fmt.Errorf("accused key cannot be empty")
	}
	if reporterKey == "" {
		return nil, fmt.Errorf("reporter key cannot be empty")
	}
	if severity < 0 || severity > 100 {
		return nil, fmt.Errorf("severity must be within [0,100], got %v", severity)
	}

	now := time.Now()
	return &Complaint{
		ID:          uuid.New(),
		AccusedKey:  accusedKey,
		ReporterKey: reporterKey,
		Status:      StatusSubmitted,
		Severity:    severity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
