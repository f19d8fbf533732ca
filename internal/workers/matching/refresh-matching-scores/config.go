// internal/workers/matching/refresh-matching-scores/config.go
package refreshmatchingscores

import "time"

type Config struct {
	// SubjectTimeout bounds a single-applicant refresh; FullTimeout
	// bounds a sweep over the whole subject set.
	SubjectTimeout time.Duration
	FullTimeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SubjectTimeout: 2 * time.Minute,
		FullTimeout:    4 * time.Hour,
	}
}
