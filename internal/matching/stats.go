// internal/matching/stats.go
package matching

import "matching-engine/internal/matching/store"

// Bucket is one cell of the score distribution histogram.
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Stats aggregates an applicant's cached scores.
type Stats struct {
	Count        int      `json:"count"`
	Average      float64  `json:"average"`
	Min          float64  `json:"min"`
	Max          float64  `json:"max"`
	Distribution []Bucket `json:"distribution"`
}

const statsBuckets = 10

// ComputeStats folds score records into count, average, min, max and a
// ten-bucket histogram over [0, 1]. Out-of-range scores are clamped
// into the edge buckets; 1.0 lands in the last bucket.
func ComputeStats(records []store.ScoreRecord) *Stats {
	stats := &Stats{Distribution: make([]Bucket, statsBuckets)}
	for i := range stats.Distribution {
		stats.Distribution[i].Lower = float64(i) / statsBuckets
		stats.Distribution[i].Upper = float64(i+1) / statsBuckets
	}
	if len(records) == 0 {
		return stats
	}

	stats.Count = len(records)
	stats.Min = records[0].Score
	stats.Max = records[0].Score

	var sum float64
	for _, rec := range records {
		sum += rec.Score
		if rec.Score < stats.Min {
			stats.Min = rec.Score
		}
		if rec.Score > stats.Max {
			stats.Max = rec.Score
		}

		idx := int(clamp01(rec.Score) * statsBuckets)
		if idx >= statsBuckets {
			idx = statsBuckets - 1
		}
		stats.Distribution[idx].Count++
	}
	stats.Average = sum / float64(stats.Count)

	return stats
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
