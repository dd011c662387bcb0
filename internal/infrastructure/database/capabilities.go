package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Capabilities records which optional storage features are provisioned.
// It is resolved once at startup; queries branch on the flags instead
// of probing the schema per call.
type Capabilities struct {
	DepartmentMetrics bool
	ClusterStorage    bool
	WeeklyRollup      bool
	EvidenceTracking  bool
}

// requiredTables must exist for the engine to start at all. A missing
// required table is a deployment mismatch and fails fast.
var requiredTables = []string{
	"complaints",
	"verdicts",
	"anonymous_reporters",
	"accused_profiles",
	"complaint_metadata",
	"credibility_history",
}

var optionalTables = map[string]func(*Capabilities){
	"department_risk_metrics": func(c *Capabilities) { c.DepartmentMetrics = true },
	"suspicious_clusters":     func(c *Capabilities) { c.ClusterStorage = true },
	"complaint_weekly_rollup": func(c *Capabilities) { c.WeeklyRollup = true },
	"evidence_files":          func(c *Capabilities) { c.EvidenceTracking = true },
}

// ResolveCapabilities inspects the schema once and returns the
// capability descriptor. Absent optional tables only log a warning.
func ResolveCapabilities(ctx context.Context, db *sql.DB, logger *zap.Logger) (*Capabilities, error) {
	present, err := tablesPresent(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("resolving schema capabilities: %w", err)
	}

	for _, table := range requiredTables {
		if !present[table] {
			return nil, fmt.Errorf("required table %q is missing; run migrations before starting", table)
		}
	}

	caps := &Capabilities{}
	for table, enable := range optionalTables {
		if present[table] {
			enable(caps)
		} else {
			logger.Warn("optional storage not provisioned, feature disabled",
				zap.String("table", table))
		}
	}

	return caps, nil
}

func tablesPresent(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	return present, rows.Err()
}

// AllEnabled is the descriptor used by tests and by deployments on a
// fully migrated schema.
func AllEnabled() *Capabilities {
	return &Capabilities{
		DepartmentMetrics: true,
		ClusterStorage:    true,
		WeeklyRollup:      true,
		EvidenceTracking:  true,
	}
}
