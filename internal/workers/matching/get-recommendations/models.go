// internal/workers/matching/get-recommendations/models.go
package getrecommendations

import "matching-engine/internal/matching"

type Input struct {
	ApplicantID string `json:"applicantId"`
	Limit       int    `json:"limit,omitempty"`
}

type Output struct {
	ApplicantID     string                    `json:"applicantId"`
	Recommendations []matching.Recommendation `json:"recommendations"`
	Count           int                       `json:"count"`
	// Tier reports how the list was produced: personalized, fresh or
	// content.
	Tier string `json:"tier"`
}
