// internal/matching/scorer/scorer.go
package scorer

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable covers network failures, timeouts, 5xx responses
	// and an open circuit breaker. Retryable later.
	ErrUnavailable = errors.New("SCORER_UNAVAILABLE")
	// ErrBadResponse covers oracle rejections (4xx) and payloads that
	// fail schema validation. Not auto-retried.
	ErrBadResponse = errors.New("SCORER_ERROR")
)

// Result is a single oracle response: a comparable numeric score plus
// the opaque factor payload, kept verbatim.
type Result struct {
	Score   float64                `json:"score"`
	Factors map[string]interface{} `json:"factors"`
}

// ItemPayload is one scholarship side of a batch request.
type ItemPayload struct {
	ID       string
	Features map[string]interface{}
}

// BatchResult ties an oracle score back to its scholarship id.
type BatchResult struct {
	ScholarshipID string
	Score         float64
	Factors       map[string]interface{}
}

// Scorer is the capability interface over the external scoring oracle.
// Any implementation (HTTP client, in-process model, test stub) works.
type Scorer interface {
	ScoreOne(ctx context.Context, profile map[string]interface{}, item map[string]interface{}) (*Result, error)
	ScoreBatch(ctx context.Context, profile map[string]interface{}, items []ItemPayload) ([]BatchResult, error)
}
