// internal/workers/matching/get-recommendations/config.go
package getrecommendations

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		DefaultLimit: 10,
		MaxLimit:     50,
	}
}
