// internal/providers/catalog/provider_test.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-engine/internal/common/logger"
)

func newStubProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{srv.URL},
	})
	require.NoError(t, err)

	return NewProvider(Config{Index: "scholarships"}, client, logger.NewNoOpLogger())
}

func esJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestGetItem_Found(t *testing.T) {
	p := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scholarships/_doc/sch-1", r.URL.Path)
		esJSON(w, 200, `{
			"_id": "sch-1",
			"found": true,
			"_source": {
				"title": "AI Research Grant",
				"category": "research",
				"min_gpa": 3.5,
				"visible": true
			}
		}`)
	})

	listing, err := p.GetItem(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Equal(t, "sch-1", listing.ID)
	assert.Equal(t, "AI Research Grant", listing.Title)
	assert.Equal(t, 3.5, listing.MinGPA)
}

func TestGetItem_NotFound(t *testing.T) {
	p := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		esJSON(w, 404, `{"_id": "gone", "found": false}`)
	})

	_, err := p.GetItem(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActive_FiltersAndSort(t *testing.T) {
	var captured map[string]interface{}
	p := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		esJSON(w, 200, `{
			"hits": {
				"total": {"value": 2},
				"hits": [
					{"_id": "sch-2", "_source": {"title": "Newer", "visible": true}},
					{"_id": "sch-1", "_source": {"title": "Older", "visible": true}}
				]
			}
		}`)
	})

	listings, err := p.ListActive(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "sch-2", listings[0].ID)

	// query must restrict to visible listings with a live deadline
	raw, _ := json.Marshal(captured)
	assert.Contains(t, string(raw), `"visible":true`)
	assert.Contains(t, string(raw), `"application_deadline"`)
	assert.Contains(t, string(raw), `"created_at":"desc"`)
}

func TestListActive_QueryError(t *testing.T) {
	p := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		esJSON(w, 500, `{"error": {"type": "search_phase_execution_exception"}}`)
	})

	_, err := p.ListActive(context.Background(), 20)
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestItemsByID_SkipsMissing(t *testing.T) {
	p := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scholarships/_mget", r.URL.Path)
		esJSON(w, 200, `{
			"docs": [
				{"_id": "sch-1", "found": true, "_source": {"title": "Kept"}},
				{"_id": "sch-9", "found": false}
			]
		}`)
	})

	listings, err := p.ItemsByID(context.Background(), []string{"sch-1", "sch-9"})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Kept", listings["sch-1"].Title)
}

func TestItemsByID_EmptyInput(t *testing.T) {
	p := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty id set")
	})

	listings, err := p.ItemsByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, listings)
}
