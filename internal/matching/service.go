// internal/matching/service.go
package matching

import (
	"context"
	"fmt"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/metrics"
	"matching-engine/internal/matching/scorer"
	"matching-engine/internal/matching/store"
)

// Service is the single entry point the workers call into. It ties the
// cache manager, scheduler and ranker together over one store.
type Service struct {
	store     store.Store
	manager   *Manager
	scheduler *Scheduler
	ranker    *Ranker
	profiles  ProfileSource
	logger    logger.Logger
}

func NewService(cfg SchedulerConfig, st store.Store, sc scorer.Scorer, profiles ProfileSource, cat CatalogSource, log logger.Logger) *Service {
	manager := NewManager(st, sc, profiles, cat, log)
	scheduler := NewScheduler(cfg, manager, profiles, cat, log)
	return &Service{
		store:     st,
		manager:   manager,
		scheduler: scheduler,
		ranker:    NewRanker(st, cat, scheduler, log),
		profiles:  profiles,
		logger:    log.WithFields(map[string]interface{}{"component": "matching-service"}),
	}
}

func (s *Service) ComputeAndCache(ctx context.Context, applicantID, scholarshipID string) (*store.ScoreRecord, error) {
	return s.manager.ComputeAndCache(ctx, applicantID, scholarshipID)
}

func (s *Service) ComputeAndCacheBatch(ctx context.Context, applicantID string, scholarshipIDs []string) (*BatchReport, error) {
	return s.manager.ComputeAndCacheBatch(ctx, applicantID, scholarshipIDs)
}

// CachedScore returns the stored record for the pair without touching
// the oracle. store.ErrNotFound means the pair was never scored.
func (s *Service) CachedScore(ctx context.Context, applicantID, scholarshipID string) (*store.ScoreRecord, error) {
	return s.store.Get(ctx, applicantID, scholarshipID)
}

func (s *Service) Recommend(ctx context.Context, applicantID string, limit int) []Recommendation {
	return s.ranker.Recommend(ctx, applicantID, limit)
}

func (s *Service) RefreshForSubject(ctx context.Context, applicantID string) (*BatchReport, error) {
	return s.scheduler.RefreshForSubject(ctx, applicantID)
}

func (s *Service) RefreshAll(ctx context.Context) (*RunReport, error) {
	return s.scheduler.RefreshAll(ctx)
}

// StatsForSubject aggregates the applicant's cached scores. An
// applicant with no cached scores gets zeroed stats, not an error.
func (s *Service) StatsForSubject(ctx context.Context, applicantID string) (*Stats, error) {
	records, err := s.store.ListByApplicant(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return ComputeStats(records), nil
}

// InvalidateSubject drops every cached score for the applicant and the
// applicant's cached feature payload. Returns the number of score rows
// removed; zero rows is a successful no-op.
func (s *Service) InvalidateSubject(ctx context.Context, applicantID string) (int64, error) {
	removed, err := s.store.DeleteByApplicant(ctx, applicantID)
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}

	if err := s.profiles.InvalidateCache(ctx, applicantID); err != nil {
		// scores are already gone; the feature cache expires on its own
		s.logger.Warn("feature cache invalidation failed", map[string]interface{}{
			"applicantId": applicantID,
			"error":       err,
		})
	}

	metrics.Invalidations.Inc()
	s.logger.Info("subject invalidated", map[string]interface{}{
		"applicantId": applicantID,
		"removed":     removed,
	})
	return removed, nil
}
