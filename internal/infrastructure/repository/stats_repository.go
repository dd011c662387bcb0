package repository

import (
	"context"
	"database/sql"

	"github.com/speakup-platform/speakup-backend/internal/service/overview"
)

// statsRepository serves the scalar dashboard counters. Each counter
// is one aggregate query so the orchestrator can run them in parallel
// and degrade them independently.
type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates the overview stats repository.
func NewStatsRepository(db *sql.DB) *statsRepository {
	return &statsRepository{db: db}
}

var _ overview.StatsRepository = (*statsRepository)(nil)

// HighRiskCount counts accused profiles currently at high risk.
func (r *statsRepository) HighRiskCount(ctx context.Context) (int, error) {
	return r.scalar(ctx, `SELECT COUNT(*) FROM accused_profiles WHERE risk_level = 'high'`, "high risk count")
}

// TargetingCandidateCount counts accused entities matching the
// targeting pattern: several complaints, no guilty verdict, low mean
// reporter credibility.
func (r *statsRepository) TargetingCandidateCount(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT c.accused_key
			FROM complaints c
			LEFT JOIN anonymous_reporters ar ON ar.reporter_key = c.reporter_key
			GROUP BY c.accused_key
			HAVING COUNT(DISTINCT c.id) >= 3
				AND COUNT(*) FILTER (WHERE EXISTS (
					SELECT 1 FROM verdicts v
					WHERE v.complaint_id = c.id AND v.outcome = 'guilty')) = 0
				AND COALESCE(AVG(ar.credibility_score), 0) < 60
		) candidates`
	return r.scalar(ctx, query, "targeting candidate count")
}

// ActiveUnderReviewCount counts complaints still in the workflow.
func (r *statsRepository) ActiveUnderReviewCount(ctx context.Context) (int, error) {
	return r.scalar(ctx,
		`SELECT COUNT(*) FROM complaints WHERE status IN ('submitted', 'under_review')`,
		"active investigation count")
}

// AverageResolutionHours averages creation-to-close time over closed
// complaints only; open ones would drag the mean toward zero age.
func (r *statsRepository) AverageResolutionHours(ctx context.Context) (float64, error) {
	query := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 3600.0), 0)
		FROM complaints
		WHERE status IN ('resolved', 'rejected')`

	var hours float64
	if err := r.db.QueryRowContext(ctx, query).Scan(&hours); err != nil {
		return 0, classifyError(err, "core", "average resolution hours")
	}
	return hours, nil
}

func (r *statsRepository) scalar(ctx context.Context, query, operation string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, classifyError(err, "core", operation)
	}
	return n, nil
}
