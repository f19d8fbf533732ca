// internal/workers/matching/calculate-match-score/handler.go
package calculatematchscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"matching-engine/internal/common/logger"
	"matching-engine/internal/matching/scorer"
	"matching-engine/internal/matching/store"
	"matching-engine/internal/providers/catalog"
	"matching-engine/internal/providers/profile"
)

const (
	TaskType = "calculate-match-score"
)

// MatchingService is the slice of the matching service this worker uses.
type MatchingService interface {
	ComputeAndCache(ctx context.Context, applicantID, scholarshipID string) (*store.ScoreRecord, error)
	CachedScore(ctx context.Context, applicantID, scholarshipID string) (*store.ScoreRecord, error)
}

type Handler struct {
	config  *Config
	service MatchingService
	logger  logger.Logger
}

func NewHandler(config *Config, service MatchingService, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		service: service,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, h.mapErrorToCode(err), err.Error(), h.getRetryCount(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicantID == "" || input.ScholarshipID == "" {
		return nil, errors.New("applicantId and scholarshipId are required")
	}

	if !input.ForceRefresh {
		if rec, err := h.service.CachedScore(ctx, input.ApplicantID, input.ScholarshipID); err == nil {
			return recordOutput(rec, false), nil
		}
	}

	rec, err := h.service.ComputeAndCache(ctx, input.ApplicantID, input.ScholarshipID)
	if err == nil {
		return recordOutput(rec, false), nil
	}
	if errors.Is(err, profile.ErrNotFound) || errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	// oracle trouble: prefer a stale cached score over a zero
	if cached, cacheErr := h.service.CachedScore(ctx, input.ApplicantID, input.ScholarshipID); cacheErr == nil {
		h.logger.Warn("serving stale score, oracle unreachable", map[string]interface{}{
			"applicantId":   input.ApplicantID,
			"scholarshipId": input.ScholarshipID,
			"error":         err,
		})
		return recordOutput(cached, true), nil
	}

	if rec != nil {
		out := recordOutput(rec, false)
		out.Transient = true
		return out, nil
	}
	return nil, err
}

func recordOutput(rec *store.ScoreRecord, stale bool) *Output {
	return &Output{
		ApplicantID:   rec.ApplicantID,
		ScholarshipID: rec.ScholarshipID,
		Score:         rec.Score,
		Factors:       rec.Factors,
		ComputedAt:    rec.ComputedAt.Format(time.RFC3339),
		Stale:         stale,
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) mapErrorToCode(err error) string {
	if errors.Is(err, profile.ErrNotFound) {
		return "PROFILE_NOT_FOUND"
	} else if errors.Is(err, catalog.ErrNotFound) {
		return "SCHOLARSHIP_NOT_FOUND"
	} else if errors.Is(err, scorer.ErrUnavailable) {
		return "SCORER_UNAVAILABLE"
	} else if errors.Is(err, scorer.ErrBadResponse) {
		return "SCORER_ERROR"
	}
	return "MATCH_SCORE_FAILED"
}

func (h *Handler) getRetryCount(err error) int32 {
	if errors.Is(err, profile.ErrNotFound) || errors.Is(err, catalog.ErrNotFound) {
		return 0
	} else if errors.Is(err, scorer.ErrUnavailable) {
		return 3
	}
	return 0
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
