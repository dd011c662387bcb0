package repository

import (
	"context"
	"database/sql"

	"github.com/speakup-platform/speakup-backend/internal/domain/department"
	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/database"
	"github.com/speakup-platform/speakup-backend/internal/service/signals"
)

// departmentRepository reads the optional department risk time series.
// Every read is gated on the resolved capability so deployments without
// the table get a clean schema-unavailable signal instead of raw SQL
// failures.
type departmentRepository struct {
	db   *sql.DB
	caps *database.Capabilities
}

// NewDepartmentRepository creates a department metric repository.
func NewDepartmentRepository(db *sql.DB, caps *database.Capabilities) *departmentRepository {
	if caps == nil {
		caps = database.AllEnabled()
	}
	return &departmentRepository{db: db, caps: caps}
}

var _ signals.DepartmentReader = (*departmentRepository)(nil)

// RecordSnapshot appends one department risk snapshot.
func (r *departmentRepository) RecordSnapshot(ctx context.Context, metric department.RiskMetric) error {
	if !r.caps.DepartmentMetrics {
		return apperrors.NewSchemaUnavailableError("department metrics")
	}

	query := `
		INSERT INTO department_risk_metrics (id, department, risk_score, recorded_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, metric.ID, metric.Department, metric.RiskScore, metric.RecordedAt)
	return classifyError(err, "department metrics", "record department snapshot")
}

// LatestSnapshots returns each department's most recent snapshot with
// the immediately preceding score when one exists, ordered by current
// score descending.
func (r *departmentRepository) LatestSnapshots(ctx context.Context, limit int) ([]signals.DepartmentSnapshot, error) {
	if !r.caps.DepartmentMetrics {
		return nil, apperrors.NewSchemaUnavailableError("department metrics")
	}

	query := `
		WITH ranked AS (
			SELECT
				department, risk_score, recorded_at,
				ROW_NUMBER() OVER (PARTITION BY department ORDER BY recorded_at DESC) AS rn,
				LEAD(risk_score) OVER (PARTITION BY department ORDER BY recorded_at DESC) AS previous_score
			FROM department_risk_metrics
		)
		SELECT department, risk_score, previous_score, recorded_at
		FROM ranked
		WHERE rn = 1
		ORDER BY risk_score DESC, department
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classifyError(err, "department metrics", "department snapshots")
	}
	defer rows.Close()

	var out []signals.DepartmentSnapshot
	for rows.Next() {
		var snap signals.DepartmentSnapshot
		var previous sql.NullFloat64
		if err := rows.Scan(&snap.Department, &snap.CurrentScore, &previous, &snap.RecordedAt); err != nil {
			return nil, classifyError(err, "department metrics", "department snapshots")
		}
		if previous.Valid {
			v := previous.Float64
			snap.PreviousScore = &v
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "department metrics", "department snapshots")
	}
	return out, nil
}
