package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakup-platform/speakup-backend/internal/infrastructure/database"
)

func TestComplaintRepository_EvidenceStats_TracksAttachments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// With evidence tracking provisioned, an attachment row counts as
	// evidence even when the inline flag was never set.
	mock.ExpectQuery(`SELECT 1 FROM evidence_files ef WHERE ef\.complaint_id = complaints\.id`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "without"}).AddRow(10, 4))

	repo := NewComplaintRepository(db, database.AllEnabled())
	counts, err := repo.EvidenceStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, counts.Total)
	assert.Equal(t, 4, counts.WithoutEvidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepository_EvidenceStats_FlagOnlyWithoutTracking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FILTER \(WHERE NOT complaints\.has_evidence\) FROM complaints`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "without"}).AddRow(6, 5))

	repo := NewComplaintRepository(db, &database.Capabilities{})
	counts, err := repo.EvidenceStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, counts.Total)
	assert.Equal(t, 5, counts.WithoutEvidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepository_AccusedEvidenceStats_TracksAttachments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM evidence_files ef`).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "without"}).AddRow(3, 1))

	repo := NewComplaintRepository(db, database.AllEnabled())
	counts, err := repo.AccusedEvidenceStats(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 1, counts.WithoutEvidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}
