package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
	"github.com/speakup-platform/speakup-backend/internal/infrastructure/database"
)

func TestDepartmentRepository_LatestSnapshots(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM department_risk_metrics`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"department", "risk_score", "previous_score", "recorded_at"}).
			AddRow("logistics", 82.0, 60.0, now).
			AddRow("sales", 40.0, nil, now))

	repo := NewDepartmentRepository(db, nil)
	snaps, err := repo.LatestSnapshots(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, snaps, 2)
	require.NotNil(t, snaps[0].PreviousScore)
	assert.InDelta(t, 60.0, *snaps[0].PreviousScore, 0.001)
	assert.Nil(t, snaps[1].PreviousScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepository_DisabledCapability(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	caps := database.AllEnabled()
	caps.DepartmentMetrics = false
	repo := NewDepartmentRepository(db, caps)

	_, err = repo.LatestSnapshots(context.Background(), 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSchemaUnavailable))
}
