// internal/workers/catalog/track-task/ledger.go
package tracktask

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chezona/chorom/internal/models"
)

var (
	ErrLedgerFailed = errors.New("TASK_LEDGER_FAILED")
)

// Ledger persists enqueued catalog writes in Postgres.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

const createTasksTable = `
	CREATE TABLE IF NOT EXISTS catalog_tasks (
		task_id    TEXT PRIMARY KEY,
		item_id    TEXT NOT NULL,
		item_name  TEXT NOT NULL,
		vendor     TEXT NOT NULL,
		status     TEXT NOT NULL,
		polls      INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, createTasksTable); err != nil {
		return fmt.Errorf("%w: create table: %v", ErrLedgerFailed, err)
	}
	return nil
}

// Record stores a newly enqueued task. Recording the same task twice is a no-op.
func (l *Ledger) Record(ctx context.Context, task models.AsyncTask, item models.CatalogItem) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO catalog_tasks (task_id, item_id, item_name, vendor, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (task_id) DO NOTHING`,
		task.TaskID, item.ID, item.Name, item.Vendor, string(task.Status),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", ErrLedgerFailed, err)
	}
	return nil
}

// Pending returns up to limit enqueued tasks, least polled first, then oldest.
func (l *Ledger) Pending(ctx context.Context, limit int) ([]TrackedTask, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT task_id, item_id, item_name, vendor, status, polls, created_at
		FROM catalog_tasks
		WHERE status = $1
		ORDER BY polls, created_at
		LIMIT $2`,
		string(models.TaskStatusEnqueued), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: select pending: %v", ErrLedgerFailed, err)
	}
	defer rows.Close()

	var tasks []TrackedTask
	for rows.Next() {
		var t TrackedTask
		var status string
		if err := rows.Scan(&t.TaskID, &t.ItemID, &t.ItemName, &t.Vendor, &status, &t.Polls, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrLedgerFailed, err)
		}
		t.Status = models.TaskStatus(status)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrLedgerFailed, err)
	}
	return tasks, nil
}

// UpdateStatus records the outcome of one poll.
func (l *Ledger) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE catalog_tasks
		SET status = $1, polls = polls + 1, updated_at = NOW()
		WHERE task_id = $2`,
		string(status), taskID,
	)
	if err != nil {
		return fmt.Errorf("%w: update: %v", ErrLedgerFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: task %s not recorded", ErrLedgerFailed, taskID)
	}
	return nil
}

// MarkPolled counts a check that left the task pending.
func (l *Ledger) MarkPolled(ctx context.Context, taskID string) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE catalog_tasks
		SET polls = polls + 1, updated_at = NOW()
		WHERE task_id = $1 AND status = $2`,
		taskID, string(models.TaskStatusEnqueued),
	)
	if err != nil {
		return fmt.Errorf("%w: mark polled: %v", ErrLedgerFailed, err)
	}
	return nil
}
