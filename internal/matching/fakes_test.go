// internal/matching/fakes_test.go
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"matching-engine/internal/matching/scorer"
	"matching-engine/internal/matching/store"
	"matching-engine/internal/providers/catalog"
	"matching-engine/internal/providers/profile"
)

type pairKey struct {
	applicantID   string
	scholarshipID string
}

// memStore is an in-memory store.Store for exercising the pipeline
// without Postgres.
type memStore struct {
	mu        sync.Mutex
	records   map[pairKey]store.ScoreRecord
	upsertErr error
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{records: map[pairKey]store.ScoreRecord{}}
}

func (m *memStore) Get(ctx context.Context, applicantID, scholarshipID string) (*store.ScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[pairKey{applicantID, scholarshipID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (m *memStore) ListByApplicant(ctx context.Context, applicantID string) ([]store.ScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []store.ScoreRecord
	for key, rec := range m.records {
		if key.applicantID == applicantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) Upsert(ctx context.Context, rec store.ScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.records[pairKey{rec.ApplicantID, rec.ScholarshipID}] = rec
	return nil
}

func (m *memStore) DeleteByApplicant(ctx context.Context, applicantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key := range m.records {
		if key.applicantID == applicantID {
			delete(m.records, key)
			removed++
		}
	}
	return removed, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fakeScorer returns canned scores keyed by scholarship id. The
// single-call payload carries no id, only the oracle feature shape, so
// ScoreOne recovers the id from the title activeListing stamps on it.
type fakeScorer struct {
	scores           map[string]float64
	err              error
	batchErr         error
	calls            int
	lastItems        []scorer.ItemPayload
	lastItemFeatures map[string]interface{}
}

func (f *fakeScorer) ScoreOne(ctx context.Context, subjectFeatures, itemFeatures map[string]interface{}) (*scorer.Result, error) {
	f.calls++
	f.lastItemFeatures = itemFeatures
	if f.err != nil {
		return nil, f.err
	}
	title, _ := itemFeatures["title"].(string)
	id := strings.TrimPrefix(title, "Scholarship ")
	return &scorer.Result{
		Score:   f.scores[id],
		Factors: map[string]interface{}{"gpa_match": 0.8},
	}, nil
}

func (f *fakeScorer) ScoreBatch(ctx context.Context, subjectFeatures map[string]interface{}, items []scorer.ItemPayload) ([]scorer.BatchResult, error) {
	f.calls++
	f.lastItems = items
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	results := make([]scorer.BatchResult, 0, len(items))
	for _, item := range items {
		results = append(results, scorer.BatchResult{
			ScholarshipID: item.ID,
			Score:         f.scores[item.ID],
			Factors:       map[string]interface{}{"gpa_match": 0.8},
		})
	}
	return results, nil
}

// fakeProfiles serves a fixed set of scorable applicants.
type fakeProfiles struct {
	mu          sync.Mutex
	known       []string
	broken      []string
	featuresErr error
	invalidated []string
}

func (f *fakeProfiles) GetSubjectFeatures(ctx context.Context, applicantID string) (map[string]interface{}, error) {
	if f.featuresErr != nil {
		return nil, f.featuresErr
	}
	for _, id := range f.broken {
		if id == applicantID {
			return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, applicantID)
		}
	}
	for _, id := range f.known {
		if id == applicantID {
			return map[string]interface{}{"academic_major": "cs", "gpa": 3.5}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, applicantID)
}

func (f *fakeProfiles) ListScorableSubjects(ctx context.Context, afterID string, limit int) ([]string, error) {
	var out []string
	for _, id := range f.known {
		if id > afterID {
			out = append(out, id)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeProfiles) InvalidateCache(ctx context.Context, applicantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, applicantID)
	return nil
}

// fakeCatalog serves listings from a map; active order follows the
// order of the active slice.
type fakeCatalog struct {
	listings  map[string]catalog.Listing
	active    []string
	activeErr error
	mgetErr   error
}

var errCatalogDown = errors.New("catalog down")

func (f *fakeCatalog) GetItem(ctx context.Context, scholarshipID string) (*catalog.Listing, error) {
	l, ok := f.listings[scholarshipID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, scholarshipID)
	}
	return &l, nil
}

func (f *fakeCatalog) ListActive(ctx context.Context, limit int) ([]catalog.Listing, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	var out []catalog.Listing
	for _, id := range f.active {
		out = append(out, f.listings[id])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) ItemsByID(ctx context.Context, scholarshipIDs []string) (map[string]catalog.Listing, error) {
	if f.mgetErr != nil {
		return nil, f.mgetErr
	}
	out := make(map[string]catalog.Listing)
	for _, id := range scholarshipIDs {
		if l, ok := f.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func activeListing(id string, createdAt time.Time) catalog.Listing {
	return catalog.Listing{
		ID:        id,
		Title:     "Scholarship " + id,
		Category:  "research",
		Visible:   true,
		Deadline:  time.Now().Add(30 * 24 * time.Hour),
		CreatedAt: createdAt,
	}
}
