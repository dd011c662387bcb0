package suspicion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/domain/suspicion"
)

// engine implements the Engine interface
type engine struct {
	repo      Repository
	threshold int
	logger    *zap.Logger
}

// NewEngine creates the cluster engine. A threshold outside [1,100]
// falls back to the default.
func NewEngine(repo Repository, clusterThreshold int, logger *zap.Logger) Engine {
	if clusterThreshold < 1 || clusterThreshold > 100 {
		clusterThreshold = DefaultClusterThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &engine{repo: repo, threshold: clusterThreshold, logger: logger}
}

// Evaluate runs the scoring pass for one new complaint. Every failure
// path degrades to a warning: this sits on the complaint-creation path
// and must never block or fail it.
func (e *engine) Evaluate(ctx context.Context, complaintID uuid.UUID, accusedKey, deviceFingerprint string) (*Result, error) {
	if e.repo == nil {
		e.logger.Warn("cluster storage unavailable, skipping suspicion evaluation",
			zap.String("complaint_id", complaintID.String()))
		return nil, nil
	}
	if complaintID == uuid.Nil || accusedKey == "" {
		e.logger.Warn("incomplete complaint event, skipping suspicion evaluation",
			zap.String("accused_key", accusedKey))
		return nil, nil
	}

	// Record the device linkage first so the aggregate below sees the
	// complaint being evaluated.
	meta := &suspicion.ComplaintMetadata{
		ComplaintID: complaintID,
		DeviceHash:  deviceFingerprint,
		CreatedAt:   time.Now(),
	}
	if err := e.repo.SaveMetadata(ctx, meta); err != nil {
		e.logWarn("failed to save complaint metadata", complaintID, err)
		return nil, nil
	}

	agg, err := e.repo.AccusedActivity(ctx, accusedKey, recentWindow, suspicion.MaxClusterComplaints)
	if err != nil {
		e.logWarn("failed to aggregate accused activity", complaintID, err)
		return nil, nil
	}

	score := scoreActivity(agg)
	diversity := suspicion.DiversityIndex(agg.UniqueDevices, agg.TotalComplaints)

	meta.SuspicionScore = score
	meta.DiversityIndex = diversity
	meta.FlaggedAs = suspicion.FlagLevelFor(score)
	if err := e.repo.SaveMetadata(ctx, meta); err != nil {
		e.logWarn("failed to persist suspicion scores", complaintID, err)
		return nil, nil
	}

	result := &Result{
		ComplaintID:    complaintID,
		SuspicionScore: score,
		DiversityIndex: diversity,
		FlaggedAs:      meta.FlaggedAs,
	}

	if score < e.threshold {
		return result, nil
	}

	cluster, err := e.repo.UpsertCluster(ctx, suspicion.Evaluation{
		AccusedKey:             accusedKey,
		SuspicionScore:         score,
		DiversityIndex:         diversity,
		ComplaintIDs:           agg.ComplaintIDs,
		UniqueDeviceCount:      agg.UniqueDevices,
		SimilarityClusterCount: similarityCount(agg),
	})
	if err != nil {
		e.logWarn("failed to upsert suspicious cluster", complaintID, err)
		return result, nil
	}

	result.ClusterID = &cluster.ID
	e.logger.Info("suspicious cluster updated",
		zap.String("accused_key", accusedKey),
		zap.String("cluster_id", cluster.ID.String()),
		zap.Int("score", score),
		zap.Int("complaints", len(cluster.ComplaintIDs)))

	return result, nil
}

func (e *engine) ListClusters(ctx context.Context, limit int) ([]*suspicion.SuspiciousCluster, error) {
	clusters, err := e.repo.ListClusters(ctx, limit)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeSchemaUnavailable) {
			return []*suspicion.SuspiciousCluster{}, nil
		}
		return nil, errors.Classify(err, "failed to list suspicious clusters")
	}
	return clusters, nil
}

func (e *engine) logWarn(msg string, complaintID uuid.UUID, err error) {
	e.logger.Warn(msg,
		zap.String("complaint_id", complaintID.String()),
		zap.Error(err))
}

// scoreActivity is the additive suspicion formula, clamped to [0,100].
func scoreActivity(agg *ActivityAggregate) int {
	score := 0
	if agg.TotalComplaints >= volumeThreshold {
		score += weightVolume
	}
	if agg.RecentComplaints >= recencyThreshold {
		score += weightRecency
	}
	if agg.UniqueDevices <= maxInt(1, agg.TotalComplaints/2) {
		score += weightFewDevices
	}
	if agg.UniqueReporters >= manyReportersThreshold && agg.UniqueDevices <= fewSharedDevices {
		score += weightManyReporters
	}
	if score > 100 {
		score = 100
	}
	return score
}

// similarityCount estimates how many complaints share a device with
// another one.
func similarityCount(agg *ActivityAggregate) int {
	n := agg.TotalComplaints - agg.UniqueDevices
	if n < 0 {
		return 0
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
