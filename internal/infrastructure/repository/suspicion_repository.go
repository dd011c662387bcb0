package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/domain/suspicion"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/database"
	suspicionsvc "github.com/speakup-platform/speakup-backend/internal/service/suspicion"
)

// suspicionRepository persists complaint metadata and the suspicious
// clusters. Cluster merges are serialized per accused key with a row
// lock so concurrent evaluations cannot lose updates.
type suspicionRepository struct {
	db   *sql.DB
	caps *database.Capabilities
}

// NewSuspicionRepository creates a suspicion repository.
func NewSuspicionRepository(db *sql.DB, caps *database.Capabilities) *suspicionRepository {
	if caps == nil {
		caps = database.AllEnabled()
	}
	return &suspicionRepository{db: db, caps: caps}
}

var _ suspicionsvc.Repository = (*suspicionRepository)(nil)

// AccusedActivity aggregates the accused entity's complaint activity.
// The evaluated complaint's metadata row is saved before this runs, so
// its device is part of the device counts.
func (r *suspicionRepository) AccusedActivity(ctx context.Context, accusedKey string, recentWindow time.Duration, maxIDs int) (*suspicionsvc.ActivityAggregate, error) {
	cutoff := time.Now().Add(-recentWindow)

	query := `
		SELECT
			COUNT(DISTINCT c.id) AS total_complaints,
			COUNT(DISTINCT c.id) FILTER (WHERE c.created_at >= $2) AS recent_complaints,
			COUNT(DISTINCT c.reporter_key) AS unique_reporters,
			COUNT(DISTINCT cm.device_hash) FILTER (WHERE cm.device_hash <> '') AS unique_devices
		FROM complaints c
		LEFT JOIN complaint_metadata cm ON cm.complaint_id = c.id
		WHERE c.accused_key = $1`

	agg := &suspicionsvc.ActivityAggregate{}
	err := r.db.QueryRowContext(ctx, query, accusedKey, cutoff).Scan(
		&agg.TotalComplaints, &agg.RecentComplaints, &agg.UniqueReporters, &agg.UniqueDevices)
	if err != nil {
		return nil, classifyError(err, "core", "accused activity")
	}

	idQuery := `
		SELECT id FROM complaints
		WHERE accused_key = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, idQuery, accusedKey, maxIDs)
	if err != nil {
		return nil, classifyError(err, "core", "accused activity")
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, classifyError(err, "core", "accused activity")
		}
		agg.ComplaintIDs = append(agg.ComplaintIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "accused activity")
	}
	return agg, nil
}

// SaveMetadata upserts the 1:1 complaint metadata row.
func (r *suspicionRepository) SaveMetadata(ctx context.Context, meta *suspicion.ComplaintMetadata) error {
	query := `
		INSERT INTO complaint_metadata (complaint_id, device_hash, cluster_suspicion_score, diversity_index, flagged_as, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (complaint_id) DO UPDATE SET
			device_hash = EXCLUDED.device_hash,
			cluster_suspicion_score = EXCLUDED.cluster_suspicion_score,
			diversity_index = EXCLUDED.diversity_index,
			flagged_as = EXCLUDED.flagged_as`

	_, err := r.db.ExecContext(ctx, query,
		meta.ComplaintID, meta.DeviceHash, meta.SuspicionScore, meta.DiversityIndex,
		meta.FlaggedAs.String(), meta.CreatedAt)
	return classifyError(err, "core", "save complaint metadata")
}

// UpsertCluster merges the evaluation into the accused entity's open
// cluster or starts a pending one. The open row is locked for the
// duration of the merge.
func (r *suspicionRepository) UpsertCluster(ctx context.Context, eval suspicion.Evaluation) (*suspicion.SuspiciousCluster, error) {
	if !r.caps.ClusterStorage {
		return nil, apperrors.NewSchemaUnavailableError("cluster storage")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyError(err, "cluster storage", "upsert cluster")
	}
	defer tx.Rollback()

	lockQuery := `
		SELECT id, accused_key, cluster_suspicion_score, diversity_index, complaint_ids,
			unique_device_count, similarity_cluster_count, review_status, created_at, updated_at
		FROM suspicious_clusters
		WHERE accused_key = $1 AND review_status IN ('pending', 'reviewed')
		ORDER BY updated_at DESC
		LIMIT 1
		FOR UPDATE`

	existing, err := scanCluster(tx.QueryRowContext(ctx, lockQuery, eval.AccusedKey))
	switch {
	case err == nil:
		existing.Merge(eval)
		update := `
			UPDATE suspicious_clusters SET
				cluster_suspicion_score = $2,
				diversity_index = $3,
				complaint_ids = $4,
				unique_device_count = $5,
				similarity_cluster_count = $6,
				updated_at = $7
			WHERE id = $1`
		idsJSON, merr := json.Marshal(existing.ComplaintIDs)
		if merr != nil {
			return nil, apperrors.NewInternalError("marshal cluster complaint ids").WithCause(merr)
		}
		if _, err := tx.ExecContext(ctx, update,
			existing.ID, existing.SuspicionScore, existing.DiversityIndex, idsJSON,
			existing.UniqueDeviceCount, existing.SimilarityClusterCount, existing.UpdatedAt); err != nil {
			return nil, classifyError(err, "cluster storage", "upsert cluster")
		}
		if err := tx.Commit(); err != nil {
			return nil, classifyError(err, "cluster storage", "upsert cluster")
		}
		return existing, nil

	case errors.Is(err, sql.ErrNoRows):
		created := suspicion.NewCluster(eval)
		insert := `
			INSERT INTO suspicious_clusters (id, accused_key, cluster_suspicion_score, diversity_index, complaint_ids,
				unique_device_count, similarity_cluster_count, review_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		idsJSON, merr := json.Marshal(created.ComplaintIDs)
		if merr != nil {
			return nil, apperrors.NewInternalError("marshal cluster complaint ids").WithCause(merr)
		}
		if _, err := tx.ExecContext(ctx, insert,
			created.ID, created.AccusedKey, created.SuspicionScore, created.DiversityIndex, idsJSON,
			created.UniqueDeviceCount, created.SimilarityClusterCount, created.ReviewStatus.String(),
			created.CreatedAt, created.UpdatedAt); err != nil {
			return nil, classifyError(err, "cluster storage", "upsert cluster")
		}
		if err := tx.Commit(); err != nil {
			return nil, classifyError(err, "cluster storage", "upsert cluster")
		}
		return created, nil

	default:
		return nil, classifyError(err, "cluster storage", "upsert cluster")
	}
}

// ListClusters returns clusters ordered by updated_at descending.
func (r *suspicionRepository) ListClusters(ctx context.Context, limit int) ([]*suspicion.SuspiciousCluster, error) {
	if !r.caps.ClusterStorage {
		return nil, apperrors.NewSchemaUnavailableError("cluster storage")
	}

	query := `
		SELECT id, accused_key, cluster_suspicion_score, diversity_index, complaint_ids,
			unique_device_count, similarity_cluster_count, review_status, created_at, updated_at
		FROM suspicious_clusters
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classifyError(err, "cluster storage", "list clusters")
	}
	defer rows.Close()

	var out []*suspicion.SuspiciousCluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, classifyError(err, "cluster storage", "list clusters")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "cluster storage", "list clusters")
	}
	return out, nil
}

// UpdateReviewStatus moves a cluster through the review workflow.
func (r *suspicionRepository) UpdateReviewStatus(ctx context.Context, id uuid.UUID, status suspicion.ReviewStatus) error {
	if !r.caps.ClusterStorage {
		return apperrors.NewSchemaUnavailableError("cluster storage")
	}

	query := `UPDATE suspicious_clusters SET review_status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status.String())
	if err != nil {
		return classifyError(err, "cluster storage", "update cluster review status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classifyError(err, "cluster storage", "update cluster review status")
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("suspicious cluster")
	}
	return nil
}

func scanCluster(row rowScanner) (*suspicion.SuspiciousCluster, error) {
	var c suspicion.SuspiciousCluster
	var idsJSON []byte
	var status string
	if err := row.Scan(&c.ID, &c.AccusedKey, &c.SuspicionScore, &c.DiversityIndex, &idsJSON,
		&c.UniqueDeviceCount, &c.SimilarityClusterCount, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(idsJSON) > 0 {
		if err := json.Unmarshal(idsJSON, &c.ComplaintIDs); err != nil {
			c.ComplaintIDs = nil
		}
	}
	parsed, err := suspicion.ParseReviewStatus(status)
	if err != nil {
		return nil, err
	}
	c.ReviewStatus = parsed
	return &c, nil
}
