// internal/workers/conversation/handle-message/handler.go
package handlemessage

import (
	"context"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "github.com/chezona/chorom/internal/common/errors"
	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/common/metrics"
	"github.com/chezona/chorom/internal/models"
)

const (
	TaskType = "handle-catalog-message"
)

var (
	ErrInvalidInput = errors.New("INVALID_MESSAGE_INPUT")
)

// Runner executes the message workflow; *workflow.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, st *models.State) *models.State
}

type Handler struct {
	config     *Config
	runner     Runner
	cache      ReplyCache
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler builds the job binding. cache may be nil to disable reply
// idempotency.
func NewHandler(config *Config, runner Runner, cache ReplyCache, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		runner:     runner,
		cache:      cache,
		errHandler: apperrors.NewErrorHandler(scoped),
		logger:     scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeInvalidMessageInput)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidMessageInputError(err.Error()))
		return
	}

	output := h.execute(ctx, input)
	if h.completeJob(ctx, client, job, output) {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}
}

// execute always produces a reply; workflow failures arrive as apology text.
func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	if h.cache != nil && input.MessageID != "" {
		cached, ok, err := h.cache.Get(ctx, input.MessageID)
		if err != nil {
			h.logger.Warn("reply cache lookup failed", map[string]interface{}{
				"messageId": input.MessageID,
				"error":     err.Error(),
			})
		} else if ok {
			metrics.ReplyCacheHits.Inc()
			h.logger.Info("answering redelivered message from cache", map[string]interface{}{
				"messageId": input.MessageID,
			})
			cached.Cached = true
			return cached
		}
	}

	st := h.runner.Run(ctx, models.NewState(input.event()))
	output := outputFromState(st)

	if h.cache != nil && input.MessageID != "" {
		if err := h.cache.Put(ctx, input.MessageID, output); err != nil {
			h.logger.Warn("reply not cached", map[string]interface{}{
				"messageId": input.MessageID,
				"error":     err.Error(),
			})
		}
	}

	return output
}

// completeJob reports whether the engine accepted the completion.
func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) bool {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeInternal)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewInternalError(err))
		return false
	}
	if _, err := cmd.Send(ctx); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeExternalService)).Inc()
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return h.execute(ctx, input)
}
