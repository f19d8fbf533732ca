// internal/workers/matching/invalidate-matching-scores/handler.go
package invalidatematchingscores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"matching-engine/internal/common/logger"
)

const (
	TaskType = "invalidate-matching-scores"
)

type MatchingService interface {
	InvalidateSubject(ctx context.Context, applicantID string) (int64, error)
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
		code := "INVALIDATION_FAILED"
		retries := int32(3)
		if errors.Is(err, errMissingApplicant) {
			code = "INVALID_INPUT"
			retries = 0
		}
		h.failJob(client, job, code, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

var errMissingApplicant = errors.New("applicantId is required")

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicantID == "" {
		return nil, errMissingApplicant
	}

	removed, err := h.service.InvalidateSubject(ctx, input.ApplicantID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("scores invalidated", map[string]interface{}{
		"applicantId": input.ApplicantID,
		"removed":     removed,
		"reason":      input.Reason,
	})

	return &Output{ApplicantID: input.ApplicantID, Removed: removed}, nil
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
