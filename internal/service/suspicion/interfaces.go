package suspicion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/speakup-platform/speakup-backend/internal/domain/suspicion"
)

// Engine scores each new complaint for coordinated-reporting signals
// and maintains the per-accused suspicious clusters. Evaluation hangs
// off the complaint-creation path and must never fail it: storage
// problems degrade to a logged no-op.
type Engine interface {
	// Evaluate scores one new complaint. A nil result with a nil error
	// means the evaluation was skipped.
	Evaluate(ctx context.Context, complaintID uuid.UUID, accusedKey, deviceFingerprint string) (*Result, error)
	// ListClusters returns clusters for the review surface, newest
	// first.
	ListClusters(ctx context.Context, limit int) ([]*suspicion.SuspiciousCluster, error)
}

// Repository is the cluster storage contract. UpsertCluster owns the
// merge transaction: it must serialize concurrent merges per accused
// key (row lock) so no evaluation loses its update.
type Repository interface {
	// AccusedActivity aggregates the accused entity's complaint
	// activity, including the complaint being evaluated.
	AccusedActivity(ctx context.Context, accusedKey string, recentWindow time.Duration, maxIDs int) (*ActivityAggregate, error)
	// SaveMetadata upserts the per-complaint metadata row.
	SaveMetadata(ctx context.Context, meta *suspicion.ComplaintMetadata) error
	// UpsertCluster merges the evaluation into the accused entity's
	// open cluster, or inserts a pending one if none is open.
	UpsertCluster(ctx context.Context, eval suspicion.Evaluation) (*suspicion.SuspiciousCluster, error)
	// ListClusters returns clusters ordered by updated_at descending.
	ListClusters(ctx context.Context, limit int) ([]*suspicion.SuspiciousCluster, error)
}

// ActivityAggregate is the accused entity's complaint activity at
// evaluation time.
type ActivityAggregate struct {
	TotalComplaints  int
	RecentComplaints int
	UniqueReporters  int
	UniqueDevices    int
	ComplaintIDs     []uuid.UUID
}

// Result is the outcome of one evaluation.
type Result struct {
	ComplaintID    uuid.UUID           `json:"complaint_id"`
	SuspicionScore int                 `json:"suspicion_score"`
	DiversityIndex int                 `json:"diversity_index"`
	FlaggedAs      suspicion.FlagLevel `json:"flagged_as"`
	ClusterID      *uuid.UUID          `json:"cluster_id,omitempty"`
}
