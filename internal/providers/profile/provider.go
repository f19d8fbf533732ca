// internal/providers/profile/provider.go
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"matching-engine/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound reports a missing or unscorable applicant profile. The
// ranker routes this to the content-only fallback; it is never a fault.
var ErrNotFound = errors.New("PROFILE_NOT_FOUND")

// ApplicantProfile carries the academic attributes the oracle scores on.
type ApplicantProfile struct {
	ApplicantID     string   `json:"applicantId"`
	Major           string   `json:"major"`
	DegreeLevel     string   `json:"degreeLevel"`
	GPA             float64  `json:"gpa"`
	Interests       []string `json:"interests"`
	Skills          []string `json:"skills"`
	Publications    []string `json:"publications"`
	ExperienceYears int      `json:"experienceYears"`
	Location        string   `json:"location"`
}

// Payload maps the profile into the oracle's user_profile shape.
func (p *ApplicantProfile) Payload() map[string]interface{} {
	return map[string]interface{}{
		"academic_major":     p.Major,
		"degree_level":       p.DegreeLevel,
		"gpa":                p.GPA,
		"research_interests": p.Interests,
		"skills":             p.Skills,
		"achievements":       p.Publications,
		"experience_years":   p.ExperienceYears,
		"location":           p.Location,
	}
}

type Config struct {
	CacheTTL time.Duration
}

// Provider reads applicant profiles from Postgres with a Redis
// cache-aside in front; cache misses and cache failures both fall
// through to the database.
type Provider struct {
	config Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewProvider(cfg Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Provider {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &Provider{
		config: cfg,
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"component": "profile-provider"}),
	}
}

func cacheKey(applicantID string) string {
	return "profile:features:" + applicantID
}

// GetProfile returns the applicant's profile, or ErrNotFound when the
// applicant has no profile complete enough to score.
func (p *Provider) GetProfile(ctx context.Context, applicantID string) (*ApplicantProfile, error) {
	if val, err := p.redis.Get(ctx, cacheKey(applicantID)).Result(); err == nil {
		var prof ApplicantProfile
		if err := json.Unmarshal([]byte(val), &prof); err == nil {
			return &prof, nil
		}
	}

	row := p.db.QueryRowContext(ctx, `
		SELECT applicant_id, major, degree_level, gpa, interests, skills,
		       publications, experience_years, location
		FROM applicant_profiles
		WHERE applicant_id = $1 AND major IS NOT NULL AND gpa IS NOT NULL`,
		applicantID)

	var prof ApplicantProfile
	var interests, skills, publications []byte
	err := row.Scan(&prof.ApplicantID, &prof.Major, &prof.DegreeLevel, &prof.GPA,
		&interests, &skills, &publications, &prof.ExperienceYears, &prof.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, applicantID)
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}

	unmarshalList(interests, &prof.Interests)
	unmarshalList(skills, &prof.Skills)
	unmarshalList(publications, &prof.Publications)

	if data, err := json.Marshal(prof); err == nil {
		if err := p.redis.Set(ctx, cacheKey(applicantID), data, p.config.CacheTTL).Err(); err != nil {
			p.logger.Warn("profile cache write failed", map[string]interface{}{
				"applicantId": applicantID,
				"error":       err,
			})
		}
	}

	return &prof, nil
}

// GetSubjectFeatures is the oracle-facing view of GetProfile.
func (p *Provider) GetSubjectFeatures(ctx context.Context, applicantID string) (map[string]interface{}, error) {
	prof, err := p.GetProfile(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	return prof.Payload(), nil
}

// ListScorableSubjects pages over applicants whose profiles are complete
// enough to score, using keyset pagination so a full refresh never holds
// the whole subject set in memory.
func (p *Provider) ListScorableSubjects(ctx context.Context, afterID string, limit int) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT applicant_id
		FROM applicant_profiles
		WHERE major IS NOT NULL AND gpa IS NOT NULL AND applicant_id > $1
		ORDER BY applicant_id
		LIMIT $2`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scorable subjects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subject id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InvalidateCache drops the applicant's cached feature payload. Called
// alongside score invalidation when matching preferences change.
func (p *Provider) InvalidateCache(ctx context.Context, applicantID string) error {
	return p.redis.Del(ctx, cacheKey(applicantID)).Err()
}

func unmarshalList(raw []byte, dst *[]string) {
	if len(raw) == 0 {
		*dst = []string{}
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		*dst = []string{}
	}
}
