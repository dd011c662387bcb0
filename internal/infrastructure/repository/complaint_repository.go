package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/speakup-platform/speakup-backend/internal/domain/complaint"
	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/database"
	"github.com/speakup-platform/speakup-backend/internal/service/signals"
)

// complaintRepository persists complaints and verdicts and serves the
// complaint-backed signal reads.
type complaintRepository struct {
	db   *sql.DB
	caps *database.Capabilities
}

// NewComplaintRepository creates a complaint repository. caps gates
// the optional rollup reads; nil enables everything.
func NewComplaintRepository(db *sql.DB, caps *database.Capabilities) *complaintRepository {
	if caps == nil {
		caps = database.AllEnabled()
	}
	return &complaintRepository{db: db, caps: caps}
}

var _ signals.ComplaintReader = (*complaintRepository)(nil)

// Create inserts a new complaint row.
func (r *complaintRepository) Create(ctx context.Context, c *complaint.Complaint) error {
	query := `
		INSERT INTO complaints (id, accused_key, reporter_key, status, severity, has_evidence, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.AccusedKey, c.ReporterKey, c.Status.String(), c.Severity,
		c.HasEvidence, c.Department, c.CreatedAt, c.UpdatedAt)
	return classifyError(err, "core", "create complaint")
}

// GetByID returns one complaint.
func (r *complaintRepository) GetByID(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	query := `
		SELECT id, accused_key, reporter_key, status, severity, has_evidence, department, created_at, updated_at
		FROM complaints WHERE id = $1`

	var c complaint.Complaint
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.AccusedKey, &c.ReporterKey, &status, &c.Severity,
		&c.HasEvidence, &c.Department, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, classifyError(err, "core", "complaint")
	}
	parsed, err := complaint.ParseStatus(status)
	if err != nil {
		return nil, apperrors.NewInternalError("complaint row holds an unknown status").WithCause(err)
	}
	c.Status = parsed
	return &c, nil
}

// UpdateStatus moves a complaint through the review workflow.
func (r *complaintRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status complaint.Status) error {
	query := `UPDATE complaints SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status.String())
	if err != nil {
		return classifyError(err, "core", "update complaint status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classifyError(err, "core", "update complaint status")
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("complaint")
	}
	return nil
}

// SaveVerdict upserts the verdict for a complaint; re-deciding
// replaces the earlier outcome.
func (r *complaintRepository) SaveVerdict(ctx context.Context, v *complaint.Verdict) error {
	query := `
		INSERT INTO verdicts (id, complaint_id, outcome, decided_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (complaint_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			decided_at = EXCLUDED.decided_at`

	_, err := r.db.ExecContext(ctx, query, v.ID, v.ComplaintID, v.Outcome.String(), v.DecidedAt)
	return classifyError(err, "core", "save verdict")
}

// VerdictFor returns the verdict for a complaint, if any.
func (r *complaintRepository) VerdictFor(ctx context.Context, complaintID uuid.UUID) (*complaint.Verdict, error) {
	query := `SELECT id, complaint_id, outcome, decided_at FROM verdicts WHERE complaint_id = $1`

	var v complaint.Verdict
	var outcome string
	err := r.db.QueryRowContext(ctx, query, complaintID).Scan(&v.ID, &v.ComplaintID, &outcome, &v.DecidedAt)
	if err != nil {
		return nil, classifyError(err, "core", "verdict")
	}
	parsed, err := complaint.ParseOutcome(outcome)
	if err != nil {
		return nil, apperrors.NewInternalError("verdict row holds an unknown outcome").WithCause(err)
	}
	v.Outcome = parsed
	return &v, nil
}

// CountCreatedBetween counts complaints created in [from, to).
func (r *complaintRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM complaints WHERE created_at >= $1 AND created_at < $2`
	var n int
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&n); err != nil {
		return 0, classifyError(err, "core", "complaint count")
	}
	return n, nil
}

// noEvidenceFilter is the SQL predicate for "complaint carries no
// evidence". With evidence tracking provisioned the attachment records
// count too; otherwise the inline flag is the only source.
func (r *complaintRepository) noEvidenceFilter() string {
	if r.caps.EvidenceTracking {
		return `NOT (complaints.has_evidence OR EXISTS (
			SELECT 1 FROM evidence_files ef WHERE ef.complaint_id = complaints.id))`
	}
	return `NOT complaints.has_evidence`
}

// EvidenceStats returns the all-time evidence counters.
func (r *complaintRepository) EvidenceStats(ctx context.Context) (signals.EvidenceCounts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE ` + r.noEvidenceFilter() + `)
		FROM complaints`
	return r.scanEvidence(r.db.QueryRowContext(ctx, query))
}

// EvidenceStatsBetween returns the evidence counters for [from, to).
func (r *complaintRepository) EvidenceStatsBetween(ctx context.Context, from, to time.Time) (signals.EvidenceCounts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE ` + r.noEvidenceFilter() + `)
		FROM complaints
		WHERE created_at >= $1 AND created_at < $2`
	return r.scanEvidence(r.db.QueryRowContext(ctx, query, from, to))
}

// AccusedEvidenceStats returns the evidence counters for one accused
// entity.
func (r *complaintRepository) AccusedEvidenceStats(ctx context.Context, accusedKey string) (signals.EvidenceCounts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE ` + r.noEvidenceFilter() + `)
		FROM complaints
		WHERE accused_key = $1`
	return r.scanEvidence(r.db.QueryRowContext(ctx, query, accusedKey))
}

// ComplaintTimes returns creation times for one accused entity,
// ascending.
func (r *complaintRepository) ComplaintTimes(ctx context.Context, accusedKey string) ([]time.Time, error) {
	query := `SELECT created_at FROM complaints WHERE accused_key = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, accusedKey)
	if err != nil {
		return nil, classifyError(err, "core", "complaint times")
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, classifyError(err, "core", "complaint times")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "complaint times")
	}
	return out, nil
}

// StatusCounts returns the status histogram for one accused entity.
func (r *complaintRepository) StatusCounts(ctx context.Context, accusedKey string) (map[complaint.Status]int, error) {
	query := `SELECT status, COUNT(*) FROM complaints WHERE accused_key = $1 GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, accusedKey)
	if err != nil {
		return nil, classifyError(err, "core", "status counts")
	}
	defer rows.Close()

	counts := make(map[complaint.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, classifyError(err, "core", "status counts")
		}
		parsed, err := complaint.ParseStatus(status)
		if err != nil {
			continue
		}
		counts[parsed] = n
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "status counts")
	}
	return counts, nil
}

// AccusedWeeklyStats aggregates one accused entity's complaints by
// week. Empty weeks are absent; callers zero-fill.
func (r *complaintRepository) AccusedWeeklyStats(ctx context.Context, accusedKey string, since time.Time) ([]signals.WeekStat, error) {
	query := `
		SELECT
			date_trunc('week', created_at) AS week_start,
			COUNT(*) AS complaint_count,
			COALESCE(AVG(severity), 0) AS avg_severity
		FROM complaints
		WHERE accused_key = $1 AND created_at >= $2
		GROUP BY week_start
		ORDER BY week_start`

	rows, err := r.db.QueryContext(ctx, query, accusedKey, since)
	if err != nil {
		return nil, classifyError(err, "core", "accused weekly stats")
	}
	defer rows.Close()

	var out []signals.WeekStat
	for rows.Next() {
		var ws signals.WeekStat
		if err := rows.Scan(&ws.WeekStart, &ws.ComplaintCount, &ws.AvgSeverity); err != nil {
			return nil, classifyError(err, "core", "accused weekly stats")
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "accused weekly stats")
	}
	return out, nil
}

// RecentAccusedCounts lists accused keys with at least minCount
// complaints since the given time.
func (r *complaintRepository) RecentAccusedCounts(ctx context.Context, since time.Time, minCount, limit int) ([]signals.AccusedRecentCount, error) {
	query := `
		SELECT accused_key, COUNT(*) AS recent_count
		FROM complaints
		WHERE created_at >= $1
		GROUP BY accused_key
		HAVING COUNT(*) >= $2
		ORDER BY recent_count DESC, accused_key
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, since, minCount, limit)
	if err != nil {
		return nil, classifyError(err, "core", "recent accused counts")
	}
	defer rows.Close()

	var out []signals.AccusedRecentCount
	for rows.Next() {
		var rc signals.AccusedRecentCount
		if err := rows.Scan(&rc.AccusedKey, &rc.RecentCount); err != nil {
			return nil, classifyError(err, "core", "recent accused counts")
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "recent accused counts")
	}
	return out, nil
}

// WeeklyTrendStats computes the weekly trend live from the raw
// complaint and verdict records.
func (r *complaintRepository) WeeklyTrendStats(ctx context.Context, since time.Time) ([]signals.WeekStat, error) {
	query := `
		SELECT
			date_trunc('week', c.created_at) AS week_start,
			COUNT(DISTINCT c.id) AS complaint_count,
			COALESCE(AVG(c.severity), 0) AS avg_severity,
			COUNT(DISTINCT v.id) FILTER (WHERE v.outcome = 'guilty') AS guilty_count,
			COUNT(DISTINCT v.id) AS verdict_count
		FROM complaints c
		LEFT JOIN verdicts v ON v.complaint_id = c.id
		WHERE c.created_at >= $1
		GROUP BY week_start
		ORDER BY week_start`

	return r.queryWeekStats(ctx, query, since)
}

// WeeklyTrendRollup reads the precomputed weekly rollup table.
func (r *complaintRepository) WeeklyTrendRollup(ctx context.Context, since time.Time) ([]signals.WeekStat, error) {
	if !r.caps.WeeklyRollup {
		return nil, apperrors.NewSchemaUnavailableError("weekly rollup")
	}

	query := `
		SELECT week_start, complaint_count, avg_severity, guilty_count, verdict_count
		FROM complaint_weekly_rollup
		WHERE week_start >= $1
		ORDER BY week_start`

	out, err := r.queryWeekStats(ctx, query, since)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *complaintRepository) queryWeekStats(ctx context.Context, query string, since time.Time) ([]signals.WeekStat, error) {
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, classifyError(err, "weekly rollup", "weekly trend")
	}
	defer rows.Close()

	var out []signals.WeekStat
	for rows.Next() {
		var ws signals.WeekStat
		if err := rows.Scan(&ws.WeekStart, &ws.ComplaintCount, &ws.AvgSeverity, &ws.GuiltyCount, &ws.VerdictCount); err != nil {
			return nil, classifyError(err, "weekly rollup", "weekly trend")
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "weekly rollup", "weekly trend")
	}
	return out, nil
}

func (r *complaintRepository) scanEvidence(row rowScanner) (signals.EvidenceCounts, error) {
	var counts signals.EvidenceCounts
	if err := row.Scan(&counts.Total, &counts.WithoutEvidence); err != nil {
		return signals.EvidenceCounts{}, classifyError(err, "core", "evidence stats")
	}
	return counts, nil
}
