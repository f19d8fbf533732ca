// internal/matching/manager.go
package matching

import (
	"context"
	"fmt"
	"time"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/metrics"
	"matching-engine/internal/matching/scorer"
	"matching-engine/internal/matching/store"
)

// BatchReport summarizes one batch recomputation for a single applicant.
type BatchReport struct {
	ApplicantID string `json:"applicantId"`
	Requested   int    `json:"requested"`
	Scored      int    `json:"scored"`
	Cached      int    `json:"cached"`
}

// Manager computes scores through the oracle and caches them in the
// store. Oracle failures never reach the store: a failed computation
// yields a transient zero-score result for the immediate caller and
// leaves any cached record untouched.
type Manager struct {
	store    store.Store
	scorer   scorer.Scorer
	profiles ProfileSource
	catalog  CatalogSource
	logger   logger.Logger
}

func NewManager(st store.Store, sc scorer.Scorer, profiles ProfileSource, cat CatalogSource, log logger.Logger) *Manager {
	return &Manager{
		store:    st,
		scorer:   sc,
		profiles: profiles,
		catalog:  cat,
		logger:   log.WithFields(map[string]interface{}{"component": "cache-manager"}),
	}
}

// ComputeAndCache scores one (applicant, scholarship) pair and upserts
// the result. On oracle failure it returns a zero-score record alongside
// the error; that record is for the caller only and is never persisted.
func (m *Manager) ComputeAndCache(ctx context.Context, applicantID, scholarshipID string) (*store.ScoreRecord, error) {
	features, err := m.profiles.GetSubjectFeatures(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("load applicant features: %w", err)
	}

	listing, err := m.catalog.GetItem(ctx, scholarshipID)
	if err != nil {
		return nil, fmt.Errorf("load scholarship: %w", err)
	}

	result, err := m.scorer.ScoreOne(ctx, features, listing.Payload())
	if err != nil {
		metrics.ScoreComputations.WithLabelValues("single", "failure").Inc()
		m.logger.Warn("scoring failed, returning transient zero score", map[string]interface{}{
			"applicantId":   applicantID,
			"scholarshipId": scholarshipID,
			"error":         err,
		})
		return &store.ScoreRecord{
			ApplicantID:   applicantID,
			ScholarshipID: scholarshipID,
			Score:         0,
			Factors:       store.Factors{},
			ComputedAt:    time.Now().UTC(),
		}, err
	}
	metrics.ScoreComputations.WithLabelValues("single", "success").Inc()

	rec := store.ScoreRecord{
		ApplicantID:   applicantID,
		ScholarshipID: scholarshipID,
		Score:         result.Score,
		Factors:       store.Factors(result.Factors),
		ComputedAt:    time.Now().UTC(),
	}

	if err := m.store.Upsert(ctx, rec); err != nil {
		// the fresh score is still good for the caller
		m.logger.Error("score cache write failed", map[string]interface{}{
			"applicantId":   applicantID,
			"scholarshipId": scholarshipID,
			"error":         err,
		})
		return &rec, nil
	}
	metrics.ScoresCached.Inc()

	return &rec, nil
}

// ComputeAndCacheBatch scores many scholarships for one applicant in a
// single oracle call. Pairs are upserted individually so one bad row
// cannot sink the rest of the batch.
func (m *Manager) ComputeAndCacheBatch(ctx context.Context, applicantID string, scholarshipIDs []string) (*BatchReport, error) {
	report := &BatchReport{ApplicantID: applicantID, Requested: len(scholarshipIDs)}
	if len(scholarshipIDs) == 0 {
		return report, nil
	}

	features, err := m.profiles.GetSubjectFeatures(ctx, applicantID)
	if err != nil {
		return report, fmt.Errorf("load applicant features: %w", err)
	}

	listings, err := m.catalog.ItemsByID(ctx, scholarshipIDs)
	if err != nil {
		return report, fmt.Errorf("load scholarships: %w", err)
	}

	items := make([]scorer.ItemPayload, 0, len(listings))
	for _, id := range scholarshipIDs {
		listing, ok := listings[id]
		if !ok {
			continue
		}
		items = append(items, scorer.ItemPayload{ID: id, Features: listing.Payload()})
	}
	if len(items) == 0 {
		return report, nil
	}

	results, err := m.scorer.ScoreBatch(ctx, features, items)
	if err != nil {
		metrics.ScoreComputations.WithLabelValues("batch", "failure").Inc()
		return report, fmt.Errorf("batch scoring: %w", err)
	}
	metrics.ScoreComputations.WithLabelValues("batch", "success").Inc()
	report.Scored = len(results)

	now := time.Now().UTC()
	for _, res := range results {
		rec := store.ScoreRecord{
			ApplicantID:   applicantID,
			ScholarshipID: res.ScholarshipID,
			Score:         res.Score,
			Factors:       store.Factors(res.Factors),
			ComputedAt:    now,
		}
		if err := m.store.Upsert(ctx, rec); err != nil {
			m.logger.Error("score cache write failed", map[string]interface{}{
				"applicantId":   applicantID,
				"scholarshipId": res.ScholarshipID,
				"error":         err,
			})
			continue
		}
		metrics.ScoresCached.Inc()
		report.Cached++
	}

	return report, nil
}
