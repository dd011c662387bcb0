package complaint

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Verdict is the HR decision on a complaint. At most one exists per
// complaint; re-deciding upserts the row.
type Verdict struct {
	ID          uuid.UUID `json:"id"`
	ComplaintID uuid.UUID `json:"complaint_id"`
	Outcome     Outcome   `json:"outcome"`
	DecidedAt   time.Time `json:"decided_at"`
}

type Outcome int

const (
	OutcomeGuilty Outcome = iota
	OutcomeNotGuilty
	OutcomeInsufficientEvidence
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGuilty:
		return "guilty"
	case OutcomeNotGuilty:
		return "not_guilty"
	case OutcomeInsufficientEvidence:
		return "insufficient_evidence"
	default:
		return "unknown"
	}
}

func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "guilty":
		return OutcomeGuilty, nil
	case "not_guilty":
		return OutcomeNotGuilty, nil
	case "insufficient_evidence":
		return OutcomeInsufficientEvidence, nil
	default:
		return OutcomeNotGuilty, fmt.Errorf("unknown verdict outcome %q", s)
	}
}

func NewVerdict(complaintID uuid.UUID, outcome Outcome) (*Verdict, error) {
	if complaintID == uuid.Nil {
		return nil, fmt.Errorf("complaint ID cannot be nil")
	}
	return &Verdict{
		ID:          uuid.New(),
		ComplaintID: complaintID,
		Outcome:     outcome,
		DecidedAt:   time.Now(),
	}, nil
}
