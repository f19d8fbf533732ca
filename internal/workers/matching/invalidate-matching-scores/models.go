// internal/workers/matching/invalidate-matching-scores/models.go
package invalidatematchingscores

type Input struct {
	ApplicantID string `json:"applicantId"`
	// Reason is carried for auditing in the process log only.
	Reason string `json:"reason,omitempty"`
}

type Output struct {
	ApplicantID string `json:"applicantId"`
	Removed     int64  `json:"removed"`
}
