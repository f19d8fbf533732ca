// internal/workers/matching/get-recommendations/handler_test.go
package getrecommendations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/matching"
)

type stubService struct {
	recs      []matching.Recommendation
	lastLimit int
}

func (s *stubService) Recommend(ctx context.Context, applicantID string, limit int) []matching.Recommendation {
	s.lastLimit = limit
	return s.recs
}

func newTestHandler(svc MatchingService) *Handler {
	return NewHandler(LoadConfig(), svc, logger.NewNoOpLogger())
}

func scoredRec(id string, score float64, tier string) matching.Recommendation {
	return matching.Recommendation{ScholarshipID: id, Score: &score, Tier: tier}
}

func TestExecute_ReturnsRankedList(t *testing.T) {
	svc := &stubService{recs: []matching.Recommendation{
		scoredRec("sch-1", 0.9, matching.TierPersonalized),
		scoredRec("sch-3", 0.7, matching.TierPersonalized),
	}}
	h := newTestHandler(svc)

	out, err := h.Execute(context.Background(), &Input{ApplicantID: "applicant-1", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, matching.TierPersonalized, out.Tier)
	assert.Equal(t, 5, svc.lastLimit)
}

func TestExecute_DefaultAndMaxLimit(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc)

	_, err := h.Execute(context.Background(), &Input{ApplicantID: "applicant-1"})
	require.NoError(t, err)
	assert.Equal(t, 10, svc.lastLimit)

	_, err = h.Execute(context.Background(), &Input{ApplicantID: "applicant-1", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, svc.lastLimit)
}

func TestExecute_EmptyResultIsContentTier(t *testing.T) {
	h := newTestHandler(&stubService{})

	out, err := h.Execute(context.Background(), &Input{ApplicantID: "applicant-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.Equal(t, matching.TierContent, out.Tier)
	assert.NotNil(t, out.Recommendations)
}

func TestExecute_RequiresApplicantID(t *testing.T) {
	h := newTestHandler(&stubService{})

	_, err := h.Execute(context.Background(), &Input{})
	assert.Error(t, err)
}
