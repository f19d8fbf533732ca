// internal/workers/matching/calculate-match-score/models.go
package calculatematchscore

import "matching-engine/internal/matching/store"

type Input struct {
	ApplicantID   string `json:"applicantId"`
	ScholarshipID string `json:"scholarshipId"`
	// ForceRefresh skips the cached record and always asks the oracle.
	ForceRefresh bool `json:"forceRefresh,omitempty"`
}

type Output struct {
	ApplicantID   string        `json:"applicantId"`
	ScholarshipID string        `json:"scholarshipId"`
	Score         float64       `json:"score"`
	Factors       store.Factors `json:"factors"`
	ComputedAt    string        `json:"computedAt,omitempty"`
	// Stale marks a score served from the cache while the oracle was
	// unreachable.
	Stale bool `json:"stale,omitempty"`
	// Transient marks a zero score that is not backed by any cached
	// record and must not be treated as a real match result.
	Transient bool `json:"transient,omitempty"`
}
