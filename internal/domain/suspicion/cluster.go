package suspicion

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxClusterComplaints caps the complaint id set stored on a cluster.
const MaxClusterComplaints = 100

// SuspiciousCluster groups complaints against one accused entity that
// scored above the cluster threshold. At most one open (pending or
// reviewed) cluster exists per accused key; later qualifying
// complaints merge into it.
type SuspiciousCluster struct {
	ID                     uuid.UUID    `json:"id"`
	AccusedKey             string       `json:"accused_key"`
	SuspicionScore         int          `json:"cluster_suspicion_score"`
	DiversityIndex         int          `json:"diversity_index"`
	ComplaintIDs           []uuid.UUID  `json:"complaint_ids"`
	UniqueDeviceCount      int          `json:"unique_device_count"`
	SimilarityClusterCount int          `json:"similarity_cluster_count"`
	ReviewStatus           ReviewStatus `json:"review_status"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

type ReviewStatus int

const (
	ReviewPending ReviewStatus = iota
	ReviewReviewed
	ReviewDismissed
)

func (r ReviewStatus) String() string {
	switch r {
	case ReviewPending:
		return "pending"
	case ReviewReviewed:
		return "reviewed"
	case ReviewDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch s {
	case "pending":
		return ReviewPending, nil
	case "reviewed":
		return ReviewReviewed, nil
	case "dismissed":
		return ReviewDismissed, nil
	default:
		return ReviewPending, fmt.Errorf("unknown review status %q", s)
	}
}

// Open reports whether new complaints may still merge into the cluster.
// Dismissed clusters are closed; a fresh qualifying complaint starts a
// new one.
func (r ReviewStatus) Open() bool {
	return r == ReviewPending || r == ReviewReviewed
}

// Evaluation is the computed outcome of scoring one complaint against
// the accused entity's aggregate activity.
type Evaluation struct {
	AccusedKey             string
	SuspicionScore         int
	DiversityIndex         int
	ComplaintIDs           []uuid.UUID
	UniqueDeviceCount      int
	SimilarityClusterCount int
}

// DiversityIndex is the percentage of distinct devices over total
// complaints, clamped to [0,100]. Low values indicate many complaints
// funneled through few devices.
func DiversityIndex(uniqueDevices, totalComplaints int) int {
	if totalComplaints <= 0 {
		return 0
	}
	idx := int(math.Round(float64(uniqueDevices) / float64(totalComplaints) * 100))
	if idx < 0 {
		return 0
	}
	if idx > 100 {
		return 100
	}
	return idx
}

// NewCluster starts a pending cluster from an evaluation.
func NewCluster(eval Evaluation) *SuspiciousCluster {
	now := time.Now()
	ids := dedupeCapped(nil, eval.ComplaintIDs)
	return &SuspiciousCluster{
		ID:                     uuid.New(),
		AccusedKey:             eval.AccusedKey,
		SuspicionScore:         eval.SuspicionScore,
		DiversityIndex:         eval.DiversityIndex,
		ComplaintIDs:           ids,
		UniqueDeviceCount:      eval.UniqueDeviceCount,
		SimilarityClusterCount: eval.SimilarityClusterCount,
		ReviewStatus:           ReviewPending,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Merge folds a new evaluation into an existing open cluster: complaint
// ids are deduplicated and capped, the score keeps its maximum, and the
// device-derived fields are recomputed from the fresh aggregate.
func (c *SuspiciousCluster) Merge(eval Evaluation) {
	c.ComplaintIDs = dedupeCapped(c.ComplaintIDs, eval.ComplaintIDs)
	if eval.SuspicionScore > c.SuspicionScore {
		c.SuspicionScore = eval.SuspicionScore
	}
	c.DiversityIndex = eval.DiversityIndex
	c.UniqueDeviceCount = eval.UniqueDeviceCount
	c.SimilarityClusterCount = eval.SimilarityClusterCount
	c.UpdatedAt = time.Now()
}

func dedupeCapped(existing, incoming []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(existing)+len(incoming))
	out := make([]uuid.UUID, 0, len(existing)+len(incoming))
	for _, set := range [][]uuid.UUID{existing, incoming} {
		for _, id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
			if len(out) == MaxClusterComplaints {
				return out
			}
		}
	}
	return out
}
