package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
)

// Postgres error codes the analytics layer cares about.
const (
	pgUndefinedTable     = "42P01"
	pgUndefinedColumn    = "42703"
	pgUniqueViolation    = "23505"
	pgSerializationFail  = "40001"
	pgDeadlockDetected   = "40P01"
	pgTooManyConnections = "53300"
	pgAdminShutdown      = "57P01"
)

// isSchemaError reports whether the error means a relation or column
// the query depends on does not exist in this deployment.
func isSchemaError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable || pgErr.Code == pgUndefinedColumn
	}
	msg := err.Error()
	return strings.Contains(msg, "does not exist") &&
		(strings.Contains(msg, "relation") || strings.Contains(msg, "column"))
}

// isTransientError reports whether retrying the statement could
// succeed: lock conflicts, connection trouble, timeouts.
func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFail, pgDeadlockDetected, pgTooManyConnections, pgAdminShutdown:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}

// isDuplicateKey reports a unique constraint violation.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "duplicate key")
}

// classifyError maps a database error into the application taxonomy.
// feature names the optional capability for schema errors.
func classifyError(err error, feature, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apperrors.NewNotFoundError(operation)
	case isSchemaError(err):
		return apperrors.NewSchemaUnavailableError(feature).WithCause(err)
	case isTransientError(err):
		return apperrors.NewTransientError(operation + " failed").WithCause(err)
	case isDuplicateKey(err):
		return apperrors.NewConflictError(operation + " conflicts with an existing row").WithCause(err)
	default:
		return apperrors.NewInternalError(operation + " failed").WithCause(err)
	}
}
