// internal/workers/matching/refresh-matching-scores/handler.go
package refreshmatchingscores

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"matching-engine/internal/common/errors"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/matching"
	"matching-engine/internal/providers/catalog"
	"matching-engine/internal/providers/profile"
)

const (
	TaskType = "refresh-matching-scores"
)

type MatchingService interface {
	RefreshForSubject(ctx context.Context, applicantID string) (*matching.BatchReport, error)
	RefreshAll(ctx context.Context) (*matching.RunReport, error)
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
		h.failJob(client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	timeout := h.config.SubjectTimeout
	if input.ApplicantID == "" {
		timeout = h.config.FullTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, h.convertToStandardError(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()

	if input.ApplicantID != "" {
		report, err := h.service.RefreshForSubject(ctx, input.ApplicantID)
		if err != nil {
			return nil, err
		}
		return &Output{
			Scope:       "subject",
			ApplicantID: input.ApplicantID,
			Subjects:    1,
			Succeeded:   1,
			Cached:      report.Cached,
			DurationMs:  time.Since(start).Milliseconds(),
		}, nil
	}

	run, err := h.service.RefreshAll(ctx)
	if err != nil {
		return nil, err
	}
	return &Output{
		Scope:      "all",
		RunID:      run.RunID,
		Subjects:   run.Subjects,
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		Cached:     run.Cached,
		DurationMs: run.Duration.Milliseconds(),
	}, nil
}

func (h *Handler) convertToStandardError(err error) *errors.StandardError {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	switch {
	case stderrors.Is(err, profile.ErrNotFound):
		return errors.NewProfileNotFoundError(err.Error())
	case stderrors.Is(err, catalog.ErrQueryFailed):
		return errors.NewCatalogQueryFailedError(err)
	default:
		return &errors.StandardError{
			Code:      "REFRESH_FAILED",
			Message:   "Score refresh failed",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *errors.StandardError) {
	bpmnErr := errors.ConvertToBPMNError(stdErr)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"retryable":    bpmnErr.Retryable,
		"retries":      bpmnErr.Retries,
	})

	failCmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(bpmnErr.Retries)).
		ErrorMessage(fmt.Sprintf("[%s] %s", bpmnErr.Code, bpmnErr.Message))

	var finalCmd interface {
		Send(context.Context) (*pb.FailJobResponse, error)
	} = failCmd

	if varCmd, varErr := failCmd.VariablesFromMap(bpmnErr.ToErrorVariables()); varErr == nil {
		finalCmd = varCmd
	} else {
		h.logger.Error("failed to set error variables, sending without them", map[string]interface{}{
			"jobKey": job.Key,
			"error":  varErr,
		})
	}

	if _, err := finalCmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to fail job", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
