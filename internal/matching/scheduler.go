// internal/matching/scheduler.go
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/metrics"
)

type SchedulerConfig struct {
	// CandidateLimit caps how many active scholarships a single refresh
	// scores for one applicant.
	CandidateLimit int
	// PageSize is the keyset page size when walking the subject set.
	PageSize int
	// SubjectsPerSecond throttles the full-refresh fan-out.
	SubjectsPerSecond float64
}

// RunReport summarizes a full refresh sweep.
type RunReport struct {
	RunID     string        `json:"runId"`
	Subjects  int           `json:"subjects"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Scored    int           `json:"scored"`
	Cached    int           `json:"cached"`
	Duration  time.Duration `json:"duration"`
}

// Scheduler drives bulk recomputation: per-applicant refreshes and
// rate-limited sweeps over every scorable applicant. A subject whose
// refresh fails keeps its stale records and the sweep moves on.
type Scheduler struct {
	config   SchedulerConfig
	manager  *Manager
	profiles ProfileSource
	catalog  CatalogSource
	limiter  *rate.Limiter
	logger   logger.Logger
}

func NewScheduler(cfg SchedulerConfig, manager *Manager, profiles ProfileSource, cat CatalogSource, log logger.Logger) *Scheduler {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 50
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.SubjectsPerSecond <= 0 {
		cfg.SubjectsPerSecond = 2
	}
	return &Scheduler{
		config:   cfg,
		manager:  manager,
		profiles: profiles,
		catalog:  cat,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SubjectsPerSecond), 1),
		logger:   log.WithFields(map[string]interface{}{"component": "recompute-scheduler"}),
	}
}

// RefreshForSubject recomputes scores for one applicant against the
// current active catalog, capped at CandidateLimit scholarships.
func (s *Scheduler) RefreshForSubject(ctx context.Context, applicantID string) (*BatchReport, error) {
	start := time.Now()

	report, err := s.refreshOne(ctx, applicantID)
	metrics.RefreshDuration.WithLabelValues("subject").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RefreshSubjects.WithLabelValues("failure").Inc()
		return report, err
	}
	metrics.RefreshSubjects.WithLabelValues("success").Inc()

	s.logger.Info("subject refresh complete", map[string]interface{}{
		"applicantId": applicantID,
		"requested":   report.Requested,
		"cached":      report.Cached,
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return report, nil
}

// RefreshAll sweeps every scorable applicant. Cancellation stops the
// sweep between subjects and returns the partial report with ctx.Err().
func (s *Scheduler) RefreshAll(ctx context.Context) (*RunReport, error) {
	run := &RunReport{RunID: uuid.New().String()}
	start := time.Now()

	s.logger.Info("full refresh started", map[string]interface{}{"runId": run.RunID})

	afterID := ""
	for {
		subjects, err := s.profiles.ListScorableSubjects(ctx, afterID, s.config.PageSize)
		if err != nil {
			run.Duration = time.Since(start)
			return run, fmt.Errorf("list scorable subjects: %w", err)
		}
		if len(subjects) == 0 {
			break
		}

		for _, applicantID := range subjects {
			if err := s.limiter.Wait(ctx); err != nil {
				run.Duration = time.Since(start)
				return run, err
			}

			run.Subjects++
			report, err := s.refreshOne(ctx, applicantID)
			if err != nil {
				run.Failed++
				metrics.RefreshSubjects.WithLabelValues("failure").Inc()
				s.logger.Warn("subject refresh failed, keeping stale scores", map[string]interface{}{
					"runId":       run.RunID,
					"applicantId": applicantID,
					"error":       err,
				})
				if ctx.Err() != nil {
					run.Duration = time.Since(start)
					return run, ctx.Err()
				}
				continue
			}
			run.Succeeded++
			run.Scored += report.Scored
			run.Cached += report.Cached
			metrics.RefreshSubjects.WithLabelValues("success").Inc()
		}

		afterID = subjects[len(subjects)-1]
	}

	run.Duration = time.Since(start)
	metrics.RefreshDuration.WithLabelValues("all").Observe(run.Duration.Seconds())

	s.logger.Info("full refresh complete", map[string]interface{}{
		"runId":     run.RunID,
		"subjects":  run.Subjects,
		"succeeded": run.Succeeded,
		"failed":    run.Failed,
		"cached":    run.Cached,
	})
	return run, nil
}

// refreshOne rereads the active catalog for each subject so a sweep
// that straddles catalog changes always scores the current listings.
func (s *Scheduler) refreshOne(ctx context.Context, applicantID string) (*BatchReport, error) {
	listings, err := s.catalog.ListActive(ctx, s.config.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list active scholarships: %w", err)
	}
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return s.manager.ComputeAndCacheBatch(ctx, applicantID, ids)
}
