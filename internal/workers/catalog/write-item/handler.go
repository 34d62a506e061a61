// internal/workers/catalog/write-item/handler.go
package writeitem

import (
	"context"
	"errors"
	"fmt"

	"github.com/chezona/chorom/internal/common/catalogindex"
	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/common/metrics"
	"github.com/chezona/chorom/internal/models"
)

const (
	TaskType = "write-item"
)

var (
	ErrCatalogWriteFailed = errors.New("CATALOG_WRITE_FAILED")
)

type Handler struct {
	config  *Config
	index   catalogindex.Index
	tracker Tracker
	logger  logger.Logger
}

// NewHandler builds the writer. tracker may be nil.
func NewHandler(config *Config, index catalogindex.Index, tracker Tracker, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		index:   index,
		tracker: tracker,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Step submits the canonical item. On success the async task is recorded as
// enqueued; on failure the user gets an apology and AsyncTask stays unset.
func (h *Handler) Step(ctx context.Context, st *models.State) {
	if st.CanonicalItem == nil {
		return
	}

	task, err := h.Submit(ctx, *st.CanonicalItem)
	if err != nil {
		h.logger.Error("catalog write failed", map[string]interface{}{
			"itemId": st.CanonicalItem.ID,
			"error":  err.Error(),
		})
		if errors.Is(err, ErrTaskIDExtraction) {
			st.Respond(TaskIDMessage)
		} else {
			st.Respond(WriteFailedMessage)
		}
		return
	}

	st.AsyncTask = task
	st.Respond(confirmationMessage(*st.CanonicalItem))

	if h.tracker != nil {
		if err := h.tracker.Record(ctx, *task, *st.CanonicalItem); err != nil {
			h.logger.Warn("task not tracked", map[string]interface{}{
				"taskId": task.TaskID,
				"error":  err.Error(),
			})
		}
	}
}

// Submit writes one item and returns its enqueued task handle without
// waiting for indexing to finish.
func (h *Handler) Submit(ctx context.Context, item models.CatalogItem) (*models.AsyncTask, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	envelope, err := h.index.AddDocuments(ctx, []map[string]interface{}{item.Document()})
	if err != nil {
		metrics.CatalogWrites.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrCatalogWriteFailed, err)
	}

	taskID, err := TaskIDFromEnvelope(envelope)
	if err != nil {
		metrics.CatalogWrites.WithLabelValues("no_task_id").Inc()
		return nil, err
	}
	metrics.CatalogWrites.WithLabelValues("enqueued").Inc()

	h.logger.Info("catalog write enqueued", map[string]interface{}{
		"itemId": item.ID,
		"taskId": taskID,
	})

	return &models.AsyncTask{TaskID: taskID, Status: models.TaskStatusEnqueued}, nil
}
