package fixtures

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
	"github.com/speakup-platform/speakup-backend/internal/domain/suspicion"
)

// ProfileBuilder builds test accused Profile rows
type ProfileBuilder struct {
	t               *testing.T
	accusedKey      string
	totalComplaints int
	guiltyCount     int
	credibility     float64
	department      string
	updatedAt       time.Time
}

// NewProfileBuilder creates a ProfileBuilder with defaults
func NewProfileBuilder(t *testing.T) *ProfileBuilder {
	t.Helper()
	return &ProfileBuilder{
		t:           t,
		accusedKey:  "accused-" + uuid.New().String()[:8],
		credibility: 50,
		updatedAt:   time.Now().UTC(),
	}
}

// WithAccusedKey sets the accused key
func (b *ProfileBuilder) WithAccusedKey(key string) *ProfileBuilder {
	b.accusedKey = key
	return b
}

// WithCounts sets both counters
func (b *ProfileBuilder) WithCounts(total, guilty int) *ProfileBuilder {
	b.totalComplaints = total
	b.guiltyCount = guilty
	return b
}

// WithDepartment sets the department
func (b *ProfileBuilder) WithDepartment(department string) *ProfileBuilder {
	b.department = department
	return b
}

// Build constructs the Profile; the risk level is always derived from
// the counters, matching production behavior.
func (b *ProfileBuilder) Build() accused.Profile {
	return accused.Profile{
		AccusedKey:       b.accusedKey,
		TotalComplaints:  b.totalComplaints,
		GuiltyCount:      b.guiltyCount,
		RiskLevel:        accused.RiskLevelFor(b.totalComplaints, b.guiltyCount),
		CredibilityScore: b.credibility,
		Department:       b.department,
		UpdatedAt:        b.updatedAt,
	}
}

// ClusterBuilder builds test SuspiciousCluster entities
type ClusterBuilder struct {
	t            *testing.T
	accusedKey   string
	score        int
	complaintIDs []uuid.UUID
	devices      int
	status       suspicion.ReviewStatus
}

// NewClusterBuilder creates a ClusterBuilder with defaults
func NewClusterBuilder(t *testing.T) *ClusterBuilder {
	t.Helper()
	return &ClusterBuilder{
		t:          t,
		accusedKey: "accused-" + uuid.New().String()[:8],
		score:      75,
		complaintIDs: []uuid.UUID{
			uuid.New(), uuid.New(), uuid.New(),
		},
		devices: 1,
		status:  suspicion.ReviewPending,
	}
}

// WithAccusedKey sets the accused key
func (b *ClusterBuilder) WithAccusedKey(key string) *ClusterBuilder {
	b.accusedKey = key
	return b
}

// WithScore sets the suspicion score
func (b *ClusterBuilder) WithScore(score int) *ClusterBuilder {
	b.score = score
	return b
}

// WithReviewStatus sets the review status
func (b *ClusterBuilder) WithReviewStatus(status suspicion.ReviewStatus) *ClusterBuilder {
	b.status = status
	return b
}

// Build constructs the cluster
func (b *ClusterBuilder) Build() *suspicion.SuspiciousCluster {
	cluster := suspicion.NewCluster(suspicion.Evaluation{
		AccusedKey:        b.accusedKey,
		SuspicionScore:    b.score,
		DiversityIndex:    suspicion.DiversityIndex(b.devices, len(b.complaintIDs)),
		ComplaintIDs:      b.complaintIDs,
		UniqueDeviceCount: b.devices,
	})
	cluster.ReviewStatus = b.status
	return cluster
}
