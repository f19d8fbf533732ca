// internal/workers/matching/invalidate-matching-scores/config.go
package invalidatematchingscores

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
