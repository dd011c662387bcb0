// Package overview assembles the dashboard summary document. The
// sub-aggregates run concurrently and every section degrades to its
// zero value on failure, so one broken query never blanks the whole
// dashboard.
package overview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/speakup-platform/speakup-backend/internal/infrastructure/cache"
	"github.com/speakup-platform/speakup-backend/internal/service/signals"
)

const (
	cacheKey        = "overview:summary"
	defaultCacheTTL = 5 * time.Minute
)

// Overview is the composed dashboard summary.
type Overview struct {
	HighRiskAccused      int                       `json:"high_risk_accused"`
	PotentialTargeting   int                       `json:"potential_targeting"`
	ActiveInvestigations int                       `json:"active_investigations"`
	AvgResolutionHours   float64                   `json:"avg_resolution_hours"`
	Escalation           *signals.EscalationIndex  `json:"escalation,omitempty"`
	LowEvidence          *signals.LowEvidenceStats `json:"low_evidence,omitempty"`
	Degraded             []string                  `json:"degraded,omitempty"`
	GeneratedAt          time.Time                 `json:"generated_at"`
}

// Options tunes the orchestrator.
type Options struct {
	CacheTTL time.Duration
}

type service struct {
	repo    StatsRepository
	signals SignalSource
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates the overview orchestrator. The cache is optional;
// passing nil disables caching.
func NewService(repo StatsRepository, source SignalSource, c cache.Cache, opts Options, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &service{
		repo:    repo,
		signals: source,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// GetOverview returns the cached summary, recomputing it on a miss.
// Cache failures are logged and treated as misses.
func (s *service) GetOverview(ctx context.Context) (*Overview, error) {
	if s.cache != nil {
		var cached Overview
		err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !cache.IsMiss(err) {
			s.logger.Warn("overview cache read failed", zap.Error(err))
		}
	}

	ov := s.compute(ctx)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, ov, s.ttl); err != nil {
			s.logger.Warn("overview cache write failed", zap.Error(err))
		}
	}
	return ov, nil
}

// Invalidate drops the cached summary.
func (s *service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *service) compute(ctx context.Context) *Overview {
	ov := &Overview{GeneratedAt: s.now().UTC()}

	var mu sync.Mutex
	var wg sync.WaitGroup
	degrade := func(section string, err error) {
		mu.Lock()
		ov.Degraded = append(ov.Degraded, section)
		mu.Unlock()
		s.logger.Warn("overview section degraded",
			zap.String("section", section),
			zap.Error(err))
	}

	wg.Add(6)
	go func() {
		defer wg.Done()
		n, err := s.repo.HighRiskCount(ctx)
		if err != nil {
			degrade("high_risk_accused", err)
			return
		}
		ov.HighRiskAccused = n
	}()
	go func() {
		defer wg.Done()
		n, err := s.repo.TargetingCandidateCount(ctx)
		if err != nil {
			degrade("potential_targeting", err)
			return
		}
		ov.PotentialTargeting = n
	}()
	go func() {
		defer wg.Done()
		n, err := s.repo.ActiveUnderReviewCount(ctx)
		if err != nil {
			degrade("active_investigations", err)
			return
		}
		ov.ActiveInvestigations = n
	}()
	go func() {
		defer wg.Done()
		h, err := s.repo.AverageResolutionHours(ctx)
		if err != nil {
			degrade("avg_resolution_hours", err)
			return
		}
		ov.AvgResolutionHours = h
	}()
	go func() {
		defer wg.Done()
		idx, err := s.signals.EscalationIndex(ctx)
		if err != nil {
			degrade("escalation", err)
			return
		}
		ov.Escalation = idx
	}()
	go func() {
		defer wg.Done()
		stats, err := s.signals.LowEvidenceRatio(ctx)
		if err != nil {
			degrade("low_evidence", err)
			return
		}
		ov.LowEvidence = stats
	}()
	wg.Wait()

	return ov
}
