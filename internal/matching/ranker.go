// internal/matching/ranker.go
package matching

import (
	"context"
	"sort"
	"time"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/metrics"
	"matching-engine/internal/matching/store"
	"matching-engine/internal/providers/catalog"
)

const (
	TierPersonalized = "personalized"
	TierFresh        = "fresh"
	TierContent      = "content"
)

// Recommendation is one ranked scholarship. Score is nil on the
// content-only tier, where no per-applicant score exists.
type Recommendation struct {
	ScholarshipID string     `json:"scholarshipId"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	University    string     `json:"university"`
	Score         *float64   `json:"score,omitempty"`
	Tier          string     `json:"tier"`
	ComputedAt    *time.Time `json:"computedAt,omitempty"`
}

// Ranker serves recommendations with graceful degradation. It tries
// cached scores first, then an on-demand refresh, then an unscored
// content listing. Recommend always returns a list, possibly empty,
// and never an error.
type Ranker struct {
	store     store.Store
	catalog   CatalogSource
	scheduler *Scheduler
	logger    logger.Logger
}

func NewRanker(st store.Store, cat CatalogSource, scheduler *Scheduler, log logger.Logger) *Ranker {
	return &Ranker{
		store:     st,
		catalog:   cat,
		scheduler: scheduler,
		logger:    log.WithFields(map[string]interface{}{"component": "ranker"}),
	}
}

// Recommend returns up to limit scholarships for the applicant.
func (r *Ranker) Recommend(ctx context.Context, applicantID string, limit int) []Recommendation {
	if limit <= 0 {
		limit = 10
	}

	if recs := r.fromCache(ctx, applicantID, limit, TierPersonalized); recs != nil {
		metrics.Recommendations.WithLabelValues(TierPersonalized).Inc()
		return recs
	}

	if _, err := r.scheduler.RefreshForSubject(ctx, applicantID); err != nil {
		r.logger.Warn("on-demand refresh failed, degrading to content listing", map[string]interface{}{
			"applicantId": applicantID,
			"error":       err,
		})
	} else if recs := r.fromCache(ctx, applicantID, limit, TierFresh); recs != nil {
		metrics.Recommendations.WithLabelValues(TierFresh).Inc()
		return recs
	}

	metrics.Recommendations.WithLabelValues(TierContent).Inc()
	return r.fromContent(ctx, limit)
}

// fromCache ranks the applicant's cached scores against the live
// catalog. It returns nil, not an empty slice, when the cache holds
// nothing usable so the caller can fall through to the next tier.
func (r *Ranker) fromCache(ctx context.Context, applicantID string, limit int, tier string) []Recommendation {
	records, err := r.store.ListByApplicant(ctx, applicantID)
	if err != nil {
		r.logger.Warn("score store read failed", map[string]interface{}{
			"applicantId": applicantID,
			"error":       err,
		})
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ScholarshipID)
	}
	listings, err := r.catalog.ItemsByID(ctx, ids)
	if err != nil {
		r.logger.Warn("catalog lookup failed", map[string]interface{}{
			"applicantId": applicantID,
			"error":       err,
		})
		return nil
	}

	type scored struct {
		rec     store.ScoreRecord
		listing catalog.Listing
	}
	eligible := make([]scored, 0, len(records))
	now := time.Now()
	for _, rec := range records {
		listing, ok := listings[rec.ScholarshipID]
		if !ok || !listing.Visible || listing.Deadline.Before(now) {
			continue
		}
		eligible = append(eligible, scored{rec: rec, listing: listing})
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].rec.Score != eligible[j].rec.Score {
			return eligible[i].rec.Score > eligible[j].rec.Score
		}
		if !eligible[i].listing.CreatedAt.Equal(eligible[j].listing.CreatedAt) {
			return eligible[i].listing.CreatedAt.After(eligible[j].listing.CreatedAt)
		}
		return eligible[i].listing.ID < eligible[j].listing.ID
	})

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	recs := make([]Recommendation, 0, len(eligible))
	for _, e := range eligible {
		score := e.rec.Score
		computedAt := e.rec.ComputedAt
		recs = append(recs, Recommendation{
			ScholarshipID: e.listing.ID,
			Title:         e.listing.Title,
			Category:      e.listing.Category,
			University:    e.listing.University,
			Score:         &score,
			Tier:          tier,
			ComputedAt:    &computedAt,
		})
	}
	return recs
}

// fromContent is the last tier: newest active scholarships, unscored.
func (r *Ranker) fromContent(ctx context.Context, limit int) []Recommendation {
	listings, err := r.catalog.ListActive(ctx, limit)
	if err != nil {
		r.logger.Error("content listing failed, returning empty recommendations", map[string]interface{}{
			"error": err,
		})
		return []Recommendation{}
	}

	recs := make([]Recommendation, 0, len(listings))
	for _, l := range listings {
		recs = append(recs, Recommendation{
			ScholarshipID: l.ID,
			Title:         l.Title,
			Category:      l.Category,
			University:    l.University,
			Tier:          TierContent,
		})
	}
	return recs
}
