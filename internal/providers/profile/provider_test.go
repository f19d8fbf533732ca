// internal/providers/profile/provider_test.go
package profile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"matching-engine/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*Provider, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	p := NewProvider(Config{CacheTTL: time.Minute}, db, rdb, logger.NewNoOpLogger())
	return p, mock, mr
}

func profileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"applicant_id", "major", "degree_level", "gpa", "interests",
		"skills", "publications", "experience_years", "location",
	}).AddRow(
		"applicant-1", "Computer Science", "masters", 3.8,
		[]byte(`["machine learning"]`), []byte(`["python","go"]`),
		[]byte(`["thesis"]`), 2, "Berlin",
	)
}

func TestGetProfile_CacheMissReadsDatabase(t *testing.T) {
	p, mock, mr := newTestProvider(t)

	mock.ExpectQuery("FROM applicant_profiles").
		WithArgs("applicant-1").
		WillReturnRows(profileRows())

	prof, err := p.GetProfile(context.Background(), "applicant-1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", prof.Major)
	assert.Equal(t, 3.8, prof.GPA)
	assert.Equal(t, []string{"python", "go"}, prof.Skills)

	// the read populates the cache
	assert.True(t, mr.Exists("profile:features:applicant-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_CacheHitSkipsDatabase(t *testing.T) {
	p, mock, mr := newTestProvider(t)

	cached, _ := json.Marshal(ApplicantProfile{
		ApplicantID: "applicant-2",
		Major:       "Physics",
		GPA:         3.2,
	})
	mr.Set("profile:features:applicant-2", string(cached))

	prof, err := p.GetProfile(context.Background(), "applicant-2")
	require.NoError(t, err)
	assert.Equal(t, "Physics", prof.Major)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_NotFound(t *testing.T) {
	p, mock, _ := newTestProvider(t)

	mock.ExpectQuery("FROM applicant_profiles").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"applicant_id"}))

	_, err := p.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSubjectFeatures_Payload(t *testing.T) {
	p, mock, _ := newTestProvider(t)

	mock.ExpectQuery("FROM applicant_profiles").
		WithArgs("applicant-1").
		WillReturnRows(profileRows())

	features, err := p.GetSubjectFeatures(context.Background(), "applicant-1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", features["academic_major"])
	assert.Equal(t, 3.8, features["gpa"])
	assert.Equal(t, []string{"thesis"}, features["achievements"])
	assert.Equal(t, 2, features["experience_years"])
}

func TestListScorableSubjects_Keyset(t *testing.T) {
	p, mock, _ := newTestProvider(t)

	mock.ExpectQuery("applicant_id > \\$1").
		WithArgs("applicant-5", 100).
		WillReturnRows(sqlmock.NewRows([]string{"applicant_id"}).
			AddRow("applicant-6").
			AddRow("applicant-7"))

	ids, err := p.ListScorableSubjects(context.Background(), "applicant-5", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"applicant-6", "applicant-7"}, ids)
}

func TestInvalidateCache(t *testing.T) {
	p, _, mr := newTestProvider(t)

	mr.Set("profile:features:applicant-9", "{}")
	require.NoError(t, p.InvalidateCache(context.Background(), "applicant-9"))
	assert.False(t, mr.Exists("profile:features:applicant-9"))
}
