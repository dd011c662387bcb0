package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tableRows(tables ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"table_name"})
	for _, tbl := range tables {
		rows.AddRow(tbl)
	}
	return rows
}

func TestResolveCapabilities_FullSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT table_name").WillReturnRows(tableRows(
		"complaints", "verdicts", "anonymous_reporters", "accused_profiles",
		"complaint_metadata", "credibility_history",
		"department_risk_metrics", "suspicious_clusters",
		"complaint_weekly_rollup", "evidence_files",
	))

	caps, err := ResolveCapabilities(context.Background(), db, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, caps.DepartmentMetrics)
	assert.True(t, caps.ClusterStorage)
	assert.True(t, caps.WeeklyRollup)
	assert.True(t, caps.EvidenceTracking)
}

func TestResolveCapabilities_OptionalTablesMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT table_name").WillReturnRows(tableRows(
		"complaints", "verdicts", "anonymous_reporters", "accused_profiles",
		"complaint_metadata", "credibility_history",
	))

	caps, err := ResolveCapabilities(context.Background(), db, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, caps.DepartmentMetrics)
	assert.False(t, caps.ClusterStorage)
	assert.False(t, caps.WeeklyRollup)
}

func TestResolveCapabilities_RequiredTableMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT table_name").WillReturnRows(tableRows(
		"complaints", "verdicts",
	))

	_, err = ResolveCapabilities(context.Background(), db, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run migrations")
}
