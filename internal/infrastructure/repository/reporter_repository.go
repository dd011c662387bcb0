package repository

import (
	"context"
	"database/sql"

	"github.com/speakup-platform/speakup-backend/internal/domain/reporter"
	"github.com/speakup-platform/speakup-backend/internal/service/signals"
)

// reporterRepository reads and maintains the pseudonymous reporter
// records and their credibility trail.
type reporterRepository struct {
	db *sql.DB
}

// NewReporterRepository creates a reporter repository.
func NewReporterRepository(db *sql.DB) *reporterRepository {
	return &reporterRepository{db: db}
}

var _ signals.ReporterReader = (*reporterRepository)(nil)

// Touch upserts the reporter row on complaint submission, bumping its
// complaint counter.
func (r *reporterRepository) Touch(ctx context.Context, reporterKey string) error {
	query := `
		INSERT INTO anonymous_reporters (reporter_key, credibility_score, total_complaints, created_at)
		VALUES ($1, 50, 1, NOW())
		ON CONFLICT (reporter_key) DO UPDATE SET
			total_complaints = anonymous_reporters.total_complaints + 1`

	_, err := r.db.ExecContext(ctx, query, reporterKey)
	return classifyError(err, "core", "touch reporter")
}

// GetReporter returns one reporter row.
func (r *reporterRepository) GetReporter(ctx context.Context, reporterKey string) (*reporter.AnonymousReporter, error) {
	query := `
		SELECT reporter_key, credibility_score, total_complaints, created_at
		FROM anonymous_reporters WHERE reporter_key = $1`

	var ar reporter.AnonymousReporter
	err := r.db.QueryRowContext(ctx, query, reporterKey).Scan(
		&ar.ReporterKey, &ar.CredibilityScore, &ar.TotalComplaints, &ar.CreatedAt)
	if err != nil {
		return nil, classifyError(err, "core", "reporter")
	}
	return &ar, nil
}

// RecordCredibility sets the reporter's current score and appends a
// trail entry in one transaction.
func (r *reporterRepository) RecordCredibility(ctx context.Context, entry reporter.CredibilityHistoryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyError(err, "core", "record credibility")
	}
	defer tx.Rollback()

	update := `
		UPDATE anonymous_reporters
		SET credibility_score = $2
		WHERE reporter_key = $1`
	if _, err := tx.ExecContext(ctx, update, entry.ReporterKey, entry.Score); err != nil {
		return classifyError(err, "core", "record credibility")
	}

	insert := `
		INSERT INTO credibility_history (reporter_key, score, reason, recorded_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insert, entry.ReporterKey, entry.Score, entry.Reason, entry.RecordedAt); err != nil {
		return classifyError(err, "core", "record credibility")
	}

	if err := tx.Commit(); err != nil {
		return classifyError(err, "core", "record credibility")
	}
	return nil
}

// SuspiciousReporters lists reporters matching the suspicious filing
// pattern: low credibility, several complaints, majority rejected.
// The rejection-ratio cut lives in the service; storage returns the
// raw counters for low-credibility frequent filers.
func (r *reporterRepository) SuspiciousReporters(ctx context.Context, limit int) ([]signals.ReporterAggregate, error) {
	query := `
		SELECT
			ar.reporter_key,
			ar.credibility_score,
			COUNT(c.id) AS total_complaints,
			COUNT(c.id) FILTER (WHERE c.status = 'rejected') AS rejected_count
		FROM anonymous_reporters ar
		JOIN complaints c ON c.reporter_key = ar.reporter_key
		WHERE ar.credibility_score < 60
		GROUP BY ar.reporter_key, ar.credibility_score
		HAVING COUNT(c.id) >= 3
		ORDER BY ar.credibility_score ASC, total_complaints DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classifyError(err, "core", "suspicious reporters")
	}
	defer rows.Close()

	var out []signals.ReporterAggregate
	for rows.Next() {
		var agg signals.ReporterAggregate
		if err := rows.Scan(&agg.ReporterKey, &agg.Credibility, &agg.TotalComplaints, &agg.RejectedCount); err != nil {
			return nil, classifyError(err, "core", "suspicious reporters")
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "suspicious reporters")
	}
	return out, nil
}

// RecentCredibilityHistory returns up to limit entries, newest first.
func (r *reporterRepository) RecentCredibilityHistory(ctx context.Context, reporterKey string, limit int) ([]reporter.CredibilityHistoryEntry, error) {
	query := `
		SELECT reporter_key, score, COALESCE(reason, ''), recorded_at
		FROM credibility_history
		WHERE reporter_key = $1
		ORDER BY recorded_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, reporterKey, limit)
	if err != nil {
		return nil, classifyError(err, "core", "credibility history")
	}
	defer rows.Close()

	var out []reporter.CredibilityHistoryEntry
	for rows.Next() {
		var entry reporter.CredibilityHistoryEntry
		if err := rows.Scan(&entry.ReporterKey, &entry.Score, &entry.Reason, &entry.RecordedAt); err != nil {
			return nil, classifyError(err, "core", "credibility history")
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "credibility history")
	}
	return out, nil
}
