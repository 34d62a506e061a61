// internal/workers/catalog/track-task/poller.go
package tracktask

import (
	"context"
	"errors"
	"time"

	"github.com/chezona/chorom/internal/common/catalogindex"
	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/common/metrics"
	"github.com/chezona/chorom/internal/models"
)

const (
	TaskType = "track-task"
)

// Store is the ledger as seen by the poller.
type Store interface {
	Pending(ctx context.Context, limit int) ([]TrackedTask, error)
	UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus) error
	MarkPolled(ctx context.Context, taskID string) error
}

// StatusSource reports the status of an index task.
type StatusSource interface {
	TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error)
}

// Poller moves ledger rows from enqueued to a final status.
type Poller struct {
	config   *Config
	store    Store
	index    StatusSource
	notifier Notifier
	logger   logger.Logger
}

// NewPoller builds a poller. notifier may be nil.
func NewPoller(config *Config, store Store, index StatusSource, notifier Notifier, log logger.Logger) *Poller {
	return &Poller{
		config:   config,
		store:    store,
		index:    index,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("task poller started", map[string]interface{}{
		"interval":  p.config.PollInterval.String(),
		"batchSize": p.config.BatchSize,
		"maxPolls":  p.config.MaxPolls,
	})

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("task poller stopped", nil)
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("poll failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// PollOnce checks one batch of pending tasks.
func (p *Poller) PollOnce(ctx context.Context) (*PollResult, error) {
	tasks, err := p.store.Pending(ctx, p.config.BatchSize)
	if err != nil {
		return nil, err
	}

	result := &PollResult{}
	for _, task := range tasks {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		status := p.checkStatus(ctx, task)
		if status == models.TaskStatusEnqueued && p.exhausted(task) {
			p.logger.Warn("task still pending after max polls", map[string]interface{}{
				"taskId": task.TaskID,
				"polls":  task.Polls + 1,
			})
			status = models.TaskStatusFailed
		}

		switch status {
		case models.TaskStatusSucceeded:
			result.Succeeded++
		case models.TaskStatusFailed:
			result.Failed++
		default:
			result.Pending++
			if err := p.store.MarkPolled(ctx, task.TaskID); err != nil {
				p.logger.Error("poll count not saved", map[string]interface{}{
					"taskId": task.TaskID,
					"error":  err.Error(),
				})
			}
			continue
		}

		if err := p.store.UpdateStatus(ctx, task.TaskID, status); err != nil {
			p.logger.Error("task status not saved", map[string]interface{}{
				"taskId": task.TaskID,
				"error":  err.Error(),
			})
			continue
		}
		metrics.TrackedTasks.WithLabelValues(string(status)).Inc()
		p.notify(ctx, task, status)
	}

	if result.Checked > 0 {
		p.logger.Info("task poll finished", map[string]interface{}{
			"checked":   result.Checked,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
			"pending":   result.Pending,
		})
	}
	return result, nil
}

// exhausted reports whether this check is the task's last allowed one.
func (p *Poller) exhausted(task TrackedTask) bool {
	return p.config.MaxPolls > 0 && task.Polls+1 >= p.config.MaxPolls
}

// checkStatus returns enqueued when the status cannot be read, so the task
// is retried on the next pass. A task unknown to the index is failed.
func (p *Poller) checkStatus(ctx context.Context, task TrackedTask) models.TaskStatus {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	status, err := p.index.TaskStatus(ctx, task.TaskID)
	if errors.Is(err, catalogindex.ErrTaskNotFound) {
		return models.TaskStatusFailed
	}
	if err != nil {
		p.logger.Warn("task status unavailable", map[string]interface{}{
			"taskId": task.TaskID,
			"error":  err.Error(),
		})
		return models.TaskStatusEnqueued
	}
	return status
}

func (p *Poller) notify(ctx context.Context, task TrackedTask, status models.TaskStatus) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, task, status); err != nil {
		p.logger.Warn("vendor not notified", map[string]interface{}{
			"taskId": task.TaskID,
			"error":  err.Error(),
		})
	}
}
