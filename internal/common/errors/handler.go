// internal/common/errors/handler.go
package errors

import (
	"context"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports a failed job to the engine: a retryable error fails
// the job with fewer retries, everything else is thrown as a BPMN error.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	retries, fail := remainingRetries(bpmnErr, job.Retries)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        bpmnErr.Code,
		"details":          bpmnErr.Details,
		"retriesLeft":      retries,
		"thrown":           !fail,
		"workflowInstance": job.ProcessInstanceKey,
	})

	vars := bpmnErr.ToErrorVariables()
	var sendErr error
	if fail {
		cmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(retries).
			ErrorMessage(bpmnErr.Code + ": " + bpmnErr.Message)

		var final interface {
			Send(context.Context) (*pb.FailJobResponse, error)
		} = cmd
		if withVars, err := cmd.VariablesFromMap(vars); err == nil {
			final = withVars
		}
		_, sendErr = final.Send(ctx)
	} else {
		cmd := client.NewThrowErrorCommand().
			JobKey(job.Key).
			ErrorCode(bpmnErr.Code).
			ErrorMessage(bpmnErr.Message)

		var final interface {
			Send(context.Context) (*pb.ThrowErrorResponse, error)
		} = cmd
		if withVars, err := cmd.VariablesFromMap(vars); err == nil {
			final = withVars
		}
		_, sendErr = final.Send(ctx)
	}

	if sendErr != nil {
		h.logger.Error("reporting job failure to engine failed", map[string]interface{}{
			"jobKey": job.Key,
			"error":  sendErr.Error(),
		})
	}
}

// remainingRetries returns the retries to hand back on a fail command and
// whether the job should be failed rather than thrown. Retries never exceed
// what the job has left.
func remainingRetries(bpmnErr *BPMNError, jobRetries int32) (int32, bool) {
	if !bpmnErr.Retryable || bpmnErr.Retries == 0 || jobRetries <= 0 {
		return 0, false
	}
	left := jobRetries - 1
	if int32(bpmnErr.Retries) < left {
		left = int32(bpmnErr.Retries)
	}
	return left, true
}

// Normalize finds a StandardError in err's chain or wraps err as internal.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}
