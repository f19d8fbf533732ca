// internal/matching/manager_test.go
package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/matching/scorer"
	"matching-engine/internal/matching/store"
	"matching-engine/internal/providers/catalog"
	"matching-engine/internal/providers/profile"
)

func newTestManager(st store.Store, sc scorer.Scorer, profiles ProfileSource, cat CatalogSource) *Manager {
	return NewManager(st, sc, profiles, cat, logger.NewNoOpLogger())
}

func TestComputeAndCache_Success(t *testing.T) {
	st := newMemStore()
	sc := &fakeScorer{scores: map[string]float64{"sch-1": 0.9}}
	profiles := &fakeProfiles{known: []string{"applicant-1"}}
	cat := &fakeCatalog{listings: map[string]catalog.Listing{
		"sch-1": activeListing("sch-1", time.Now()),
	}}

	m := newTestManager(st, sc, profiles, cat)
	rec, err := m.ComputeAndCache(context.Background(), "applicant-1", "sch-1")
	require.NoError(t, err)
	assert.Equal(t, 0.9, rec.Score)

	cached, err := st.Get(context.Background(), "applicant-1", "sch-1")
	require.NoError(t, err)
	assert.Equal(t, 0.9, cached.Score)
	assert.NotNil(t, cached.Factors)

	// the oracle payload is the scholarship feature shape, not the
	// catalog document: no id field
	assert.Equal(t, "Scholarship sch-1", sc.lastItemFeatures["title"])
	assert.NotContains(t, sc.lastItemFeatures, "id")
}

func TestComputeAndCache_ScorerFailureNeverPersisted(t *testing.T) {
	st := newMemStore()
	// a prior good score must survive the failed recompute
	st.Upsert(context.Background(), store.ScoreRecord{
		ApplicantID:   "applicant-1",
		ScholarshipID: "sch-1",
		Score:         0.7,
		ComputedAt:    time.Now().Add(-time.Hour),
	})

	sc := &fakeScorer{err: scorer.ErrUnavailable}
	profiles := &fakeProfiles{known: []string{"applicant-1"}}
	cat := &fakeCatalog{listings: map[string]catalog.Listing{
		"sch-1": activeListing("sch-1", time.Now()),
	}}

	m := newTestManager(st, sc, profiles, cat)
	rec, err := m.ComputeAndCache(context.Background(), "applicant-1", "sch-1")
	require.ErrorIs(t, err, scorer.ErrUnavailable)
	require.NotNil(t, rec)
	assert.Equal(t, 0.0, rec.Score)

	cached, err := st.Get(context.Background(), "applicant-1", "sch-1")
	require.NoError(t, err)
	assert.Equal(t, 0.7, cached.Score, "stale score must not be overwritten by failure")
}

func TestComputeAndCache_ProfileMissing(t *testing.T) {
	m := newTestManager(newMemStore(), &fakeScorer{}, &fakeProfiles{}, &fakeCatalog{})

	_, err := m.ComputeAndCache(context.Background(), "ghost", "sch-1")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestComputeAndCache_ScholarshipMissing(t *testing.T) {
	profiles := &fakeProfiles{known: []string{"applicant-1"}}
	m := newTestManager(newMemStore(), &fakeScorer{}, profiles, &fakeCatalog{})

	_, err := m.ComputeAndCache(context.Background(), "applicant-1", "gone")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestComputeAndCache_UpsertFailureStillServesScore(t *testing.T) {
	st := newMemStore()
	st.upsertErr = errors.New("connection reset")

	sc := &fakeScorer{scores: map[string]float64{"sch-1": 0.6}}
	profiles := &fakeProfiles{known: []string{"applicant-1"}}
	cat := &fakeCatalog{listings: map[string]catalog.Listing{
		"sch-1": activeListing("sch-1", time.Now()),
	}}

	m := newTestManager(st, sc, profiles, cat)
	rec, err := m.ComputeAndCache(context.Background(), "applicant-1", "sch-1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, rec.Score)
}

func TestComputeAndCacheBatch_CachesAllResults(t *testing.T) {
	st := newMemStore()
	sc := &fakeScorer{scores: map[string]float64{"sch-1": 0.9, "sch-2": 0.4, "sch-3": 0.7}}
	profiles := &fakeProfiles{known: []string{"applicant-1"}}
	cat := &fakeCatalog{listings: map[string]catalog.Listing{
		"sch-1": activeListing("sch-1", time.Now()),
		"sch-2": activeListing("sch-2", time.Now()),
		"sch-3": activeListing("sch-3", time.Now()),
	}}

	m := newTestManager(st, sc, profiles, cat)
	report, err := m.ComputeAndCacheBatch(context.Background(), "applicant-1", []string{"sch-1", "sch-2", "sch-3"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, 3, report.Scored)
	assert.Equal(t, 3, report.Cached)
	assert.Equal(t, 3, st.count())
	assert.Equal(t, 1, sc.calls, "batch must be a single oracle call")
}

func TestComputeAndCacheBatch_SkipsUnknownListings(t *testing.T) {
	st := newMemStore()
	sc := &fakeScorer{scores: map[string]float64{"sch-1": 0.5}}
	profiles := &fakeProfiles{known: []string{"applicant-1"}}
	cat := &fakeCatalog{listings: map[string]catalog.Listing{
		"sch-1": activeListing("sch-1", time.Now()),
	}}

	m := newTestManager(st, sc, profiles, cat)
	report, err := m.ComputeAndCacheBatch(context.Background(), "applicant-1", []string{"sch-1", "deleted"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Requested)
	assert.Equal(t, 1, report.Cached)
	assert.Len(t, sc.lastItems, 1)
}

func TestComputeAndCacheBatch_OracleFailureCachesNothing(t *testing.T) {
	st := newMemStore()
	sc := &fakeScorer{batchErr: scorer.ErrUnavailable}
	profiles := &fakeProfiles{known: []string{"applicant-1"}}
	cat := &fakeCatalog{listings: map[string]catalog.Listing{
		"sch-1": activeListing("sch-1", time.Now()),
	}}

	m := newTestManager(st, sc, profiles, cat)
	report, err := m.ComputeAndCacheBatch(context.Background(), "applicant-1", []string{"sch-1"})
	require.ErrorIs(t, err, scorer.ErrUnavailable)
	assert.Equal(t, 0, report.Cached)
	assert.Equal(t, 0, st.count())
}

func TestComputeAndCacheBatch_EmptyInputNoOracleCall(t *testing.T) {
	sc := &fakeScorer{}
	m := newTestManager(newMemStore(), sc, &fakeProfiles{known: []string{"applicant-1"}}, &fakeCatalog{})

	report, err := m.ComputeAndCacheBatch(context.Background(), "applicant-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Requested)
	assert.Equal(t, 0, sc.calls)
}
