package profiles

import (
	"context"
	"time"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
)

// Service maintains the materialized accused risk profiles.
type Service interface {
	// IncrementComplaintCount atomically bumps total_complaints for the
	// accused key, creating the profile row if needed.
	IncrementComplaintCount(ctx context.Context, accusedKey string) (*accused.Profile, error)
	// IncrementGuiltyCount atomically bumps guilty_count; called only on
	// a verdict transitioning to guilty.
	IncrementGuiltyCount(ctx context.Context, accusedKey string) (*accused.Profile, error)
	// GetProfile returns the current profile row.
	GetProfile(ctx context.Context, accusedKey string) (*accused.Profile, error)
	// RebuildAll recomputes every profile from the authoritative
	// complaint, verdict and reporter records and overwrites the
	// profile table transactionally. Idempotent for unchanged sources.
	RebuildAll(ctx context.Context) (int, error)
}

// Repository is the profile storage contract. Increment operations
// must be single atomic read-modify-write statements; a read-then-write
// sequence loses updates under concurrent submissions.
type Repository interface {
	IncrementComplaintCount(ctx context.Context, accusedKey string) (*accused.Profile, error)
	IncrementGuiltyCount(ctx context.Context, accusedKey string) (*accused.Profile, error)
	GetProfile(ctx context.Context, accusedKey string) (*accused.Profile, error)
	// SourceAggregates recomputes per-accused totals from the
	// authoritative records.
	SourceAggregates(ctx context.Context) ([]SourceAggregate, error)
	// ReplaceAll overwrites the entire profile table in one transaction.
	ReplaceAll(ctx context.Context, profiles []accused.Profile) error
}

// SourceAggregate is one accused entity's recomputed truth, read from
// the raw complaint/verdict/reporter records during a rebuild.
type SourceAggregate struct {
	AccusedKey      string
	TotalComplaints int
	GuiltyCount     int
	AvgCredibility  float64
	Department      string
	// LastEventAt is the latest source record timestamp, used as the
	// rebuilt row's updated_at so a rebuild over unchanged data writes
	// identical rows.
	LastEventAt time.Time
}
