package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
	"github.com/speakup-platform/speakup-backend/internal/service/profiles"
	"github.com/speakup-platform/speakup-backend/internal/service/signals"
)

// riskLevelSQL mirrors accused.RiskLevelFor so a single-statement
// upsert can set the derived level without a read-modify-write race.
// Keep the two in sync.
const riskLevelSQL = `
	CASE
		WHEN %[1]s >= 2 OR %[2]s >= 6 THEN 'high'
		WHEN %[1]s >= 1 OR %[2]s >= 3 THEN 'medium'
		ELSE 'low'
	END`

// profileRepository implements the profile store and the profile-backed
// signal reads on PostgreSQL.
type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a profile repository.
func NewProfileRepository(db *sql.DB) *profileRepository {
	return &profileRepository{db: db}
}

var (
	_ profiles.Repository   = (*profileRepository)(nil)
	_ signals.ProfileReader = (*profileRepository)(nil)
)

const profileColumns = `accused_key, total_complaints, guilty_count, risk_level, credibility_score, department, updated_at`

// IncrementComplaintCount bumps total_complaints in one upsert
// statement. The risk level is recomputed inside the same statement so
// concurrent submissions cannot interleave a stale level.
func (r *profileRepository) IncrementComplaintCount(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	query := fmt.Sprintf(`
		INSERT INTO accused_profiles (accused_key, total_complaints, guilty_count, risk_level, credibility_score, department, updated_at)
		VALUES ($1, 1, 0, 'low', 0, '', NOW())
		ON CONFLICT (accused_key) DO UPDATE SET
			total_complaints = accused_profiles.total_complaints + 1,
			risk_level = `+riskLevelSQL+`,
			updated_at = NOW()
		RETURNING `+profileColumns,
		"accused_profiles.guilty_count", "accused_profiles.total_complaints + 1")

	return r.scanProfile(r.db.QueryRowContext(ctx, query, accusedKey), "increment complaint count")
}

// IncrementGuiltyCount bumps guilty_count the same way. The profile
// row always exists by the time a verdict lands, but the insert arm
// keeps the operation total.
func (r *profileRepository) IncrementGuiltyCount(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	query := fmt.Sprintf(`
		INSERT INTO accused_profiles (accused_key, total_complaints, guilty_count, risk_level, credibility_score, department, updated_at)
		VALUES ($1, 0, 1, 'medium', 0, '', NOW())
		ON CONFLICT (accused_key) DO UPDATE SET
			guilty_count = accused_profiles.guilty_count + 1,
			risk_level = `+riskLevelSQL+`,
			updated_at = NOW()
		RETURNING `+profileColumns,
		"accused_profiles.guilty_count + 1", "accused_profiles.total_complaints")

	return r.scanProfile(r.db.QueryRowContext(ctx, query, accusedKey), "increment guilty count")
}

// GetProfile returns the current profile row.
func (r *profileRepository) GetProfile(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM accused_profiles WHERE accused_key = $1`
	return r.scanProfile(r.db.QueryRowContext(ctx, query, accusedKey), "accused profile")
}

// SourceAggregates recomputes per-accused truth from the raw records.
// last event time covers complaints and their verdicts so a rebuild
// over unchanged data reproduces identical rows.
func (r *profileRepository) SourceAggregates(ctx context.Context) ([]profiles.SourceAggregate, error) {
	query := `
		SELECT
			c.accused_key,
			COUNT(DISTINCT c.id) AS total_complaints,
			COUNT(DISTINCT v.id) FILTER (WHERE v.outcome = 'guilty') AS guilty_count,
			COALESCE(AVG(ar.credibility_score), 0) AS avg_credibility,
			COALESCE(MAX(c.department), '') AS department,
			GREATEST(MAX(c.created_at), COALESCE(MAX(v.decided_at), MAX(c.created_at))) AS last_event_at
		FROM complaints c
		LEFT JOIN verdicts v ON v.complaint_id = c.id
		LEFT JOIN anonymous_reporters ar ON ar.reporter_key = c.reporter_key
		GROUP BY c.accused_key
		ORDER BY c.accused_key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err, "core", "source aggregates")
	}
	defer rows.Close()

	var out []profiles.SourceAggregate
	for rows.Next() {
		var agg profiles.SourceAggregate
		if err := rows.Scan(&agg.AccusedKey, &agg.TotalComplaints, &agg.GuiltyCount,
			&agg.AvgCredibility, &agg.Department, &agg.LastEventAt); err != nil {
			return nil, classifyError(err, "core", "source aggregates")
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "source aggregates")
	}
	return out, nil
}

// ReplaceAll swaps the whole profile table inside one transaction.
func (r *profileRepository) ReplaceAll(ctx context.Context, rebuilt []accused.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyError(err, "core", "profile rebuild")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accused_profiles`); err != nil {
		return classifyError(err, "core", "profile rebuild")
	}

	insert := `
		INSERT INTO accused_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, p := range rebuilt {
		if _, err := tx.ExecContext(ctx, insert,
			p.AccusedKey, p.TotalComplaints, p.GuiltyCount, p.RiskLevel.String(),
			p.CredibilityScore, p.Department, p.UpdatedAt); err != nil {
			return classifyError(err, "core", "profile rebuild")
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyError(err, "core", "profile rebuild")
	}
	return nil
}

// RepeatOffenderProfiles lists accused entities with repeated or
// substantiated activity, worst first.
func (r *profileRepository) RepeatOffenderProfiles(ctx context.Context, limit int) ([]accused.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM accused_profiles
		WHERE total_complaints >= 2 AND (guilty_count >= 1 OR risk_level = 'high')
		ORDER BY total_complaints DESC, guilty_count DESC, accused_key
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classifyError(err, "core", "repeat offenders")
	}
	defer rows.Close()

	var out []accused.Profile
	for rows.Next() {
		p, err := scanProfileRow(rows)
		if err != nil {
			return nil, classifyError(err, "core", "repeat offenders")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "repeat offenders")
	}
	return out, nil
}

// TargetingCandidates finds accused entities with several complaints,
// no guilty verdict and low mean reporter credibility.
func (r *profileRepository) TargetingCandidates(ctx context.Context, limit int) ([]signals.TargetingCandidate, error) {
	query := `
		SELECT
			c.accused_key,
			COUNT(DISTINCT c.id) AS complaint_count,
			COALESCE(AVG(ar.credibility_score), 0) AS avg_credibility
		FROM complaints c
		LEFT JOIN anonymous_reporters ar ON ar.reporter_key = c.reporter_key
		GROUP BY c.accused_key
		HAVING COUNT(DISTINCT c.id) >= 3
			AND COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM verdicts v
				WHERE v.complaint_id = c.id AND v.outcome = 'guilty')) = 0
			AND COALESCE(AVG(ar.credibility_score), 0) < 60
		ORDER BY complaint_count DESC, avg_credibility ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classifyError(err, "core", "targeting candidates")
	}
	defer rows.Close()

	var out []signals.TargetingCandidate
	for rows.Next() {
		var cand signals.TargetingCandidate
		if err := rows.Scan(&cand.AccusedKey, &cand.ComplaintCount, &cand.AvgCredibility); err != nil {
			return nil, classifyError(err, "core", "targeting candidates")
		}
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "core", "targeting candidates")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *profileRepository) scanProfile(row rowScanner, operation string) (*accused.Profile, error) {
	p, err := scanProfileRow(row)
	if err != nil {
		return nil, classifyError(err, "core", operation)
	}
	return p, nil
}

func scanProfileRow(row rowScanner) (*accused.Profile, error) {
	var p accused.Profile
	var level string
	if err := row.Scan(&p.AccusedKey, &p.TotalComplaints, &p.GuiltyCount, &level,
		&p.CredibilityScore, &p.Department, &p.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := accused.ParseRiskLevel(level)
	if err != nil {
		return nil, err
	}
	p.RiskLevel = parsed
	return &p, nil
}
