// internal/matching/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"matching-engine/internal/common/logger"
)

// PostgresStore persists score records in the matching_scores table:
//
//	CREATE TABLE matching_scores (
//	    applicant_id   TEXT             NOT NULL,
//	    scholarship_id TEXT             NOT NULL,
//	    score          DOUBLE PRECISION NOT NULL,
//	    factors        JSONB            NOT NULL DEFAULT '{}',
//	    computed_at    TIMESTAMPTZ      NOT NULL,
//	    PRIMARY KEY (applicant_id, scholarship_id)
//	);
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "score-store"}),
	}
}

func (s *PostgresStore) Get(ctx context.Context, applicantID, scholarshipID string) (*ScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT applicant_id, scholarship_id, score, factors, computed_at
		FROM matching_scores
		WHERE applicant_id = $1 AND scholarship_id = $2`,
		applicantID, scholarshipID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get score: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantID string) ([]ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT applicant_id, scholarship_id, score, factors, computed_at
		FROM matching_scores
		WHERE applicant_id = $1`,
		applicantID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var out []ScoreRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return out, nil
}

// Upsert atomically replaces-or-inserts the record for its pair. Score
// and factors always land together from the same oracle response.
func (s *PostgresStore) Upsert(ctx context.Context, rec ScoreRecord) error {
	factors := rec.Factors
	if factors == nil {
		factors = Factors{}
	}
	raw, err := json.Marshal(factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matching_scores (applicant_id, scholarship_id, score, factors, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (applicant_id, scholarship_id)
		DO UPDATE SET score = EXCLUDED.score, factors = EXCLUDED.factors, computed_at = EXCLUDED.computed_at`,
		rec.ApplicantID, rec.ScholarshipID, rec.Score, raw, rec.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByApplicant(ctx context.Context, applicantID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM matching_scores WHERE applicant_id = $1`, applicantID)
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete scores: rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*ScoreRecord, error) {
	var rec ScoreRecord
	var raw []byte
	if err := row.Scan(&rec.ApplicantID, &rec.ScholarshipID, &rec.Score, &raw, &rec.ComputedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.Factors); err != nil {
			// Factors are opaque; a corrupt payload degrades to empty
			// rather than hiding the score.
			rec.Factors = Factors{}
		}
	}
	return &rec, nil
}
