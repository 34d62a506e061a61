// internal/workers/catalog/track-task/ledger_test.go
package tracktask

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chezona/chorom/internal/models"
)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedger(db), mock
}

func TestLedger_EnsureSchema(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS catalog_tasks`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, ledger.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Record(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectExec(`INSERT INTO catalog_tasks`).
		WithArgs("42", "item-1", "Sugar", "256700000001", "enqueued").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ledger.Record(context.Background(),
		models.AsyncTask{TaskID: "42", Status: models.TaskStatusEnqueued},
		models.CatalogItem{ID: "item-1", Name: "Sugar", Vendor: "256700000001"},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Record_Error(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectExec(`INSERT INTO catalog_tasks`).WillReturnError(errors.New("connection refused"))

	err := ledger.Record(context.Background(), models.AsyncTask{TaskID: "42"}, models.CatalogItem{})
	assert.ErrorIs(t, err, ErrLedgerFailed)
}

func TestLedger_Pending(t *testing.T) {
	ledger, mock := newMockLedger(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT task_id, item_id, item_name, vendor, status, polls, created_at .+ ORDER BY polls, created_at`).
		WithArgs("enqueued", 10).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "item_id", "item_name", "vendor", "status", "polls", "created_at"}).
			AddRow("42", "item-1", "Sugar", "256700000001", "enqueued", 0, created).
			AddRow("43", "item-2", "Salt", "256700000002", "enqueued", 2, created))

	tasks, err := ledger.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, TrackedTask{
		TaskID: "42", ItemID: "item-1", ItemName: "Sugar", Vendor: "256700000001",
		Status: models.TaskStatusEnqueued, CreatedAt: created,
	}, tasks[0])
	assert.Equal(t, 2, tasks[1].Polls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  bool
	}{
		{name: "updated", affected: 1},
		{name: "unknown task", affected: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, mock := newMockLedger(t)
			mock.ExpectExec(`UPDATE catalog_tasks`).
				WithArgs("succeeded", "42").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := ledger.UpdateStatus(context.Background(), "42", models.TaskStatusSucceeded)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrLedgerFailed)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLedger_MarkPolled(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr bool
	}{
		{name: "counted"},
		{name: "database down", execErr: errors.New("connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, mock := newMockLedger(t)
			exec := mock.ExpectExec(`UPDATE catalog_tasks\s+SET polls = polls \+ 1, updated_at = NOW\(\)\s+WHERE task_id = \$1 AND status = \$2`).
				WithArgs("42", "enqueued")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := ledger.MarkPolled(context.Background(), "42")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrLedgerFailed)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
