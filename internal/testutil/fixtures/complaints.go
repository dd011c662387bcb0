package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/speakup-platform/speakup-backend/internal/domain/complaint"
)

// ComplaintBuilder builds test Complaint entities
type ComplaintBuilder struct {
	t           *testing.T
	id          uuid.UUID
	accusedKey  string
	reporterKey string
	status      complaint.Status
	severity    float64
	hasEvidence bool
	department  string
	createdAt   time.Time
}

// NewComplaintBuilder creates a ComplaintBuilder with defaults
func NewComplaintBuilder(t *testing.T) *ComplaintBuilder {
	t.Helper()
	return &ComplaintBuilder{
		t:           t,
		id:          uuid.New(),
		accusedKey:  "accused-" + uuid.New().String()[:8],
		reporterKey: "reporter-" + uuid.New().String()[:8],
		status:      complaint.StatusSubmitted,
		severity:    50,
		department:  "operations",
		createdAt:   time.Now().UTC(),
	}
}

// WithID sets the complaint ID
func (b *ComplaintBuilder) WithID(id uuid.UUID) *ComplaintBuilder {
	b.id = id
	return b
}

// WithAccusedKey sets the accused key
func (b *ComplaintBuilder) WithAccusedKey(key string) *ComplaintBuilder {
	b.accusedKey = key
	return b
}

// WithReporterKey sets the reporter key
func (b *ComplaintBuilder) WithReporterKey(key string) *ComplaintBuilder {
	b.reporterKey = key
	return b
}

// WithStatus sets the workflow status
func (b *ComplaintBuilder) WithStatus(status complaint.Status) *ComplaintBuilder {
	b.status = status
	return b
}

// WithSeverity sets the severity score
func (b *ComplaintBuilder) WithSeverity(severity float64) *ComplaintBuilder {
	b.severity = severity
	return b
}

// WithEvidence marks the complaint as carrying evidence
func (b *ComplaintBuilder) WithEvidence() *ComplaintBuilder {
	b.hasEvidence = true
	return b
}

// WithDepartment sets the accused department
func (b *ComplaintBuilder) WithDepartment(department string) *ComplaintBuilder {
	b.department = department
	return b
}

// WithCreatedAt sets the creation time
func (b *ComplaintBuilder) WithCreatedAt(createdAt time.Time) *ComplaintBuilder {
	b.createdAt = createdAt
	return b
}

// Build constructs the Complaint
func (b *ComplaintBuilder) Build() *complaint.Complaint {
	return &complaint.Complaint{
		ID:          b.id,
		AccusedKey:  b.accusedKey,
		ReporterKey: b.reporterKey,
		Status:      b.status,
		Severity:    b.severity,
		HasEvidence: b.hasEvidence,
		Department:  b.department,
		CreatedAt:   b.createdAt,
		UpdatedAt:   b.createdAt,
	}
}
