// internal/matching/store/store.go
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists for the pair.
// An absent pair means "uncached", never "zero-scored".
var ErrNotFound = errors.New("SCORE_NOT_FOUND")

// Factors is the opaque explanatory payload returned by the scoring
// oracle. It is stored verbatim and never interpreted here.
type Factors map[string]interface{}

// ScoreRecord is the sole persisted entity: one row per
// (applicant, scholarship) pair, overwritten on recomputation.
type ScoreRecord struct {
	ApplicantID   string
	ScholarshipID string
	Score         float64
	Factors       Factors
	ComputedAt    time.Time
}

// Store is the durable keyed storage for matching scores. Implementations
// must make Upsert atomic per pair (last completed write wins) and safe
// under concurrent callers for different applicants.
type Store interface {
	Get(ctx context.Context, applicantID, scholarshipID string) (*ScoreRecord, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]ScoreRecord, error)
	Upsert(ctx context.Context, rec ScoreRecord) error
	DeleteByApplicant(ctx context.Context, applicantID string) (int64, error)
}
