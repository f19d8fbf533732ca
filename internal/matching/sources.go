// internal/matching/sources.go
package matching

import (
	"context"

	"matching-engine/internal/providers/catalog"
)

// ProfileSource supplies applicant feature payloads for scoring.
type ProfileSource interface {
	GetSubjectFeatures(ctx context.Context, applicantID string) (map[string]interface{}, error)
	ListScorableSubjects(ctx context.Context, afterID string, limit int) ([]string, error)
	InvalidateCache(ctx context.Context, applicantID string) error
}

// CatalogSource supplies scholarship listings for scoring and ranking.
type CatalogSource interface {
	GetItem(ctx context.Context, scholarshipID string) (*catalog.Listing, error)
	ListActive(ctx context.Context, limit int) ([]catalog.Listing, error)
	ItemsByID(ctx context.Context, scholarshipIDs []string) (map[string]catalog.Listing, error)
}
