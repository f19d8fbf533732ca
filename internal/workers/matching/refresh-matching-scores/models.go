// internal/workers/matching/refresh-matching-scores/models.go
package refreshmatchingscores

type Input struct {
	// ApplicantID selects a single-applicant refresh. Empty means a
	// full sweep over every scorable applicant.
	ApplicantID string `json:"applicantId,omitempty"`
}

type Output struct {
	Scope       string `json:"scope"`
	RunID       string `json:"runId,omitempty"`
	ApplicantID string `json:"applicantId,omitempty"`
	Subjects    int    `json:"subjects"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	Cached      int    `json:"cached"`
	DurationMs  int64  `json:"durationMs"`
}
