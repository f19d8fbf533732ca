// internal/providers/catalog/provider.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"matching-engine/internal/common/logger"
)

var (
	ErrNotFound    = errors.New("SCHOLARSHIP_NOT_FOUND")
	ErrQueryFailed = errors.New("CATALOG_QUERY_FAILED")
)

// Listing is a scholarship document as indexed in Elasticsearch.
type Listing struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	University     string    `json:"university"`
	Department     string    `json:"department"`
	RequiredDegree string    `json:"required_degree"`
	MinGPA         float64   `json:"min_gpa"`
	RequiredSkills []string  `json:"required_skills"`
	Location       string    `json:"location"`
	Tags           []string  `json:"tags"`
	Visible        bool      `json:"visible"`
	Deadline       time.Time `json:"application_deadline"`
	CreatedAt      time.Time `json:"created_at"`
}

// Payload maps the listing into the oracle's scholarship shape.
func (l *Listing) Payload() map[string]interface{} {
	return map[string]interface{}{
		"title":           l.Title,
		"description":     l.Description,
		"category":        l.Category,
		"university":      l.University,
		"department":      l.Department,
		"required_degree": l.RequiredDegree,
		"min_gpa":         l.MinGPA,
		"required_skills": l.RequiredSkills,
		"location":        l.Location,
		"tags":            l.Tags,
	}
}

type Config struct {
	Index   string
	MaxSize int
}

// Provider reads the scholarship catalog from Elasticsearch. Only
// visible listings whose application deadline has not passed are
// considered active.
type Provider struct {
	config Config
	client *elasticsearch.Client
	logger logger.Logger
}

func NewProvider(cfg Config, client *elasticsearch.Client, log logger.Logger) *Provider {
	if cfg.Index == "" {
		cfg.Index = "scholarships"
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 200
	}
	return &Provider{
		config: cfg,
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "catalog-provider"}),
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string  `json:"_id"`
			Source Listing `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// GetItem fetches a single listing by id regardless of visibility.
func (p *Provider) GetItem(ctx context.Context, scholarshipID string) (*Listing, error) {
	res, err := esapi.GetRequest{
		Index:      p.config.Index,
		DocumentID: scholarshipID,
	}.Do(ctx, p.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, scholarshipID)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, res.String())
	}

	var doc struct {
		ID     string  `json:"_id"`
		Found  bool    `json:"found"`
		Source Listing `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", ErrQueryFailed, err)
	}
	if !doc.Found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, scholarshipID)
	}

	listing := doc.Source
	listing.ID = doc.ID
	return &listing, nil
}

// ListActive returns up to limit active listings, newest first.
func (p *Provider) ListActive(ctx context.Context, limit int) ([]Listing, error) {
	if limit <= 0 || limit > p.config.MaxSize {
		limit = p.config.MaxSize
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"visible": true},
					},
					map[string]interface{}{
						"range": map[string]interface{}{
							"application_deadline": map[string]interface{}{"gte": "now"},
						},
					},
				},
			},
		},
		"sort": []map[string]interface{}{{"created_at": "desc"}},
	}

	return p.search(ctx, query, limit)
}

// ItemsByID resolves cached score rows back to their listings. Listings
// that no longer exist in the index are silently skipped.
func (p *Provider) ItemsByID(ctx context.Context, scholarshipIDs []string) (map[string]Listing, error) {
	if len(scholarshipIDs) == 0 {
		return map[string]Listing{}, nil
	}

	body, _ := json.Marshal(map[string]interface{}{"ids": scholarshipIDs})
	res, err := esapi.MgetRequest{
		Index: p.config.Index,
		Body:  strings.NewReader(string(body)),
	}.Do(ctx, p.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, res.String())
	}

	var r struct {
		Docs []struct {
			ID     string  `json:"_id"`
			Found  bool    `json:"found"`
			Source Listing `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode mget response: %v", ErrQueryFailed, err)
	}

	listings := make(map[string]Listing, len(r.Docs))
	for _, doc := range r.Docs {
		if !doc.Found {
			continue
		}
		listing := doc.Source
		listing.ID = doc.ID
		listings[doc.ID] = listing
	}
	return listings, nil
}

func (p *Provider) search(ctx context.Context, query map[string]interface{}, size int) ([]Listing, error) {
	body, _ := json.Marshal(query)

	res, err := esapi.SearchRequest{
		Index: []string{p.config.Index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}.Do(ctx, p.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrQueryFailed, err)
	}

	listings := make([]Listing, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		listing := hit.Source
		listing.ID = hit.ID
		listings = append(listings, listing)
	}
	return listings, nil
}
