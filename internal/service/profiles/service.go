package profiles

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/speakup-platform/speakup-backend/internal/domain/accused"
	"github.com/speakup-platform/speakup-backend/internal/domain/errors"
)

// service implements the Service interface
type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates the profile aggregator.
func NewService(repo Repository, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: repo, logger: logger}
}

func (s *service) IncrementComplaintCount(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	if accusedKey == "" {
		return nil, errors.NewValidationError("INVALID_ACCUSED_KEY", "accused key cannot be empty")
	}

	profile, err := s.repo.IncrementComplaintCount(ctx, accusedKey)
	if err != nil {
		return nil, errors.Classify(err, "failed to increment complaint count")
	}
	return profile, nil
}

func (s *service) IncrementGuiltyCount(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	if accusedKey == "" {
		return nil, errors.NewValidationError("INVALID_ACCUSED_KEY", "accused key cannot be empty")
	}

	profile, err := s.repo.IncrementGuiltyCount(ctx, accusedKey)
	if err != nil {
		return nil, errors.Classify(err, "failed to increment guilty count")
	}
	return profile, nil
}

func (s *service) GetProfile(ctx context.Context, accusedKey string) (*accused.Profile, error) {
	if accusedKey == "" {
		return nil, errors.NewValidationError("INVALID_ACCUSED_KEY", "accused key cannot be empty")
	}

	profile, err := s.repo.GetProfile(ctx, accusedKey)
	if err != nil {
		return nil, errors.Classify(err, "failed to load accused profile")
	}
	return profile, nil
}

// RebuildAll is the bulk reseed path. The repository reads the
// authoritative records; risk levels are recomputed here with the same
// canonical formula the increment path uses.
func (s *service) RebuildAll(ctx context.Context) (int, error) {
	aggregates, err := s.repo.SourceAggregates(ctx)
	if err != nil {
		return 0, errors.Classify(err, "failed to read source aggregates")
	}

	// Deterministic ordering keeps repeated rebuilds byte-identical.
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].AccusedKey < aggregates[j].AccusedKey
	})

	rebuilt := make([]accused.Profile, 0, len(aggregates))
	for _, agg := range aggregates {
		rebuilt = append(rebuilt, accused.Profile{
			AccusedKey:       agg.AccusedKey,
			TotalComplaints:  agg.TotalComplaints,
			GuiltyCount:      agg.GuiltyCount,
			RiskLevel:        accused.RiskLevelFor(agg.TotalComplaints, agg.GuiltyCount),
			CredibilityScore: agg.AvgCredibility,
			Department:       agg.Department,
			UpdatedAt:        agg.LastEventAt,
		})
	}

	if err := s.repo.ReplaceAll(ctx, rebuilt); err != nil {
		return 0, errors.Classify(err, "failed to replace profile rows")
	}

	s.logger.Info("accused profiles rebuilt", zap.Int("profiles", len(rebuilt)))
	return len(rebuilt), nil
}
