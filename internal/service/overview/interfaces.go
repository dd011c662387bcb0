package overview

import (
	"context"

	"github.com/speakup-platform/speakup-backend/internal/service/signals"
)

// StatsRepository reads the scalar summary counters. Each method is an
// independent aggregate so a failing one can be defaulted without
// touching the others.
type StatsRepository interface {
	// HighRiskCount counts accused profiles currently at high risk.
	HighRiskCount(ctx context.Context) (int, error)
	// TargetingCandidateCount counts accused entities matching the
	// targeting pattern.
	TargetingCandidateCount(ctx context.Context) (int, error)
	// ActiveUnderReviewCount counts complaints in a non-terminal status.
	ActiveUnderReviewCount(ctx context.Context) (int, error)
	// AverageResolutionHours averages creation-to-close time over
	// resolved and rejected complaints only.
	AverageResolutionHours(ctx context.Context) (float64, error)
}

// SignalSource supplies the trend sections computed by the signal
// queries.
type SignalSource interface {
	EscalationIndex(ctx context.Context) (*signals.EscalationIndex, error)
	LowEvidenceRatio(ctx context.Context) (*signals.LowEvidenceStats, error)
}

// Service assembles the cached dashboard summary.
type Service interface {
	GetOverview(ctx context.Context) (*Overview, error)
	// Invalidate drops the cached summary, forcing the next read to
	// recompute.
	Invalidate(ctx context.Context) error
}
