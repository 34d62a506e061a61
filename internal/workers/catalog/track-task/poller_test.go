// internal/workers/catalog/track-task/poller_test.go
package tracktask

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chezona/chorom/internal/common/catalogindex"
	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Pending(ctx context.Context, limit int) ([]TrackedTask, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TrackedTask), args.Error(1)
}

func (m *MockStore) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus) error {
	return m.Called(ctx, taskID, status).Error(0)
}

func (m *MockStore) MarkPolled(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

type MockStatusSource struct {
	mock.Mock
}

func (m *MockStatusSource) TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(models.TaskStatus), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, task TrackedTask, status models.TaskStatus) error {
	return m.Called(ctx, task, status).Error(0)
}

func createTestPoller(t *testing.T, store Store, index StatusSource, notifier Notifier) *Poller {
	cfg := LoadConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.BatchSize = 20
	return NewPoller(cfg, store, index, notifier, logger.NewTestLogger(t))
}

func task(id string) TrackedTask {
	return TrackedTask{TaskID: id, ItemID: "item-" + id, ItemName: "Item " + id, Vendor: "256700000001", Status: models.TaskStatusEnqueued}
}

// ==========================
// PollOnce
// ==========================

func TestPoller_PollOnce(t *testing.T) {
	store := new(MockStore)
	store.On("Pending", mock.Anything, 20).Return([]TrackedTask{task("1"), task("2"), task("3"), task("4"), task("5")}, nil)
	store.On("UpdateStatus", mock.Anything, "1", models.TaskStatusSucceeded).Return(nil).Once()
	store.On("UpdateStatus", mock.Anything, "2", models.TaskStatusFailed).Return(nil).Once()
	store.On("UpdateStatus", mock.Anything, "4", models.TaskStatusFailed).Return(nil).Once()
	store.On("MarkPolled", mock.Anything, "3").Return(nil).Once()
	store.On("MarkPolled", mock.Anything, "5").Return(nil).Once()

	index := new(MockStatusSource)
	index.On("TaskStatus", mock.Anything, "1").Return(models.TaskStatusSucceeded, nil)
	index.On("TaskStatus", mock.Anything, "2").Return(models.TaskStatusFailed, nil)
	index.On("TaskStatus", mock.Anything, "3").Return(models.TaskStatusEnqueued, nil)
	index.On("TaskStatus", mock.Anything, "4").Return(models.TaskStatus(""), fmt.Errorf("%w: 4", catalogindex.ErrTaskNotFound))
	index.On("TaskStatus", mock.Anything, "5").Return(models.TaskStatus(""), errors.New("timeout"))

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, task("1"), models.TaskStatusSucceeded).Return(nil).Once()
	notifier.On("Notify", mock.Anything, task("2"), models.TaskStatusFailed).Return(errors.New("sms down")).Once()
	notifier.On("Notify", mock.Anything, task("4"), models.TaskStatusFailed).Return(nil).Once()

	p := createTestPoller(t, store, index, notifier)
	result, err := p.PollOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &PollResult{Checked: 5, Succeeded: 1, Failed: 2, Pending: 2}, result)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
	store.AssertNotCalled(t, "UpdateStatus", mock.Anything, "3", mock.Anything)
	store.AssertNotCalled(t, "UpdateStatus", mock.Anything, "5", mock.Anything)
	store.AssertNotCalled(t, "MarkPolled", mock.Anything, "1")
}

func TestPoller_PollOnce_MaxPolls(t *testing.T) {
	tests := []struct {
		name       string
		maxPolls   int
		polls      int
		wantFailed bool
	}{
		{name: "below limit", maxPolls: 5, polls: 2},
		{name: "one before limit", maxPolls: 5, polls: 3},
		{name: "last allowed check", maxPolls: 5, polls: 4, wantFailed: true},
		{name: "past limit", maxPolls: 5, polls: 9, wantFailed: true},
		{name: "no limit", maxPolls: 0, polls: 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stuck := task("7")
			stuck.Polls = tt.polls

			store := new(MockStore)
			store.On("Pending", mock.Anything, 20).Return([]TrackedTask{stuck}, nil)

			index := new(MockStatusSource)
			index.On("TaskStatus", mock.Anything, "7").Return(models.TaskStatusEnqueued, nil)

			notifier := new(MockNotifier)

			if tt.wantFailed {
				store.On("UpdateStatus", mock.Anything, "7", models.TaskStatusFailed).Return(nil).Once()
				notifier.On("Notify", mock.Anything, stuck, models.TaskStatusFailed).Return(nil).Once()
			} else {
				store.On("MarkPolled", mock.Anything, "7").Return(nil).Once()
			}

			p := createTestPoller(t, store, index, notifier)
			p.config.MaxPolls = tt.maxPolls

			result, err := p.PollOnce(context.Background())
			require.NoError(t, err)

			if tt.wantFailed {
				assert.Equal(t, &PollResult{Checked: 1, Failed: 1}, result)
				store.AssertNotCalled(t, "MarkPolled", mock.Anything, mock.Anything)
			} else {
				assert.Equal(t, &PollResult{Checked: 1, Pending: 1}, result)
				store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
				notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
			}
			store.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestPoller_PollOnce_MarkPolledErrorIsLogged(t *testing.T) {
	store := new(MockStore)
	store.On("Pending", mock.Anything, 20).Return([]TrackedTask{task("1")}, nil)
	store.On("MarkPolled", mock.Anything, "1").Return(ErrLedgerFailed).Once()

	index := new(MockStatusSource)
	index.On("TaskStatus", mock.Anything, "1").Return(models.TaskStatusEnqueued, nil)

	p := createTestPoller(t, store, index, nil)
	result, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pending)
	store.AssertExpectations(t)
}

func TestPoller_PollOnce_StoreError(t *testing.T) {
	store := new(MockStore)
	store.On("Pending", mock.Anything, 20).Return(nil, ErrLedgerFailed)

	p := createTestPoller(t, store, new(MockStatusSource), nil)
	_, err := p.PollOnce(context.Background())
	assert.ErrorIs(t, err, ErrLedgerFailed)
}

func TestPoller_PollOnce_UpdateFailureSkipsNotify(t *testing.T) {
	store := new(MockStore)
	store.On("Pending", mock.Anything, 20).Return([]TrackedTask{task("1")}, nil)
	store.On("UpdateStatus", mock.Anything, "1", models.TaskStatusSucceeded).Return(ErrLedgerFailed)

	index := new(MockStatusSource)
	index.On("TaskStatus", mock.Anything, "1").Return(models.TaskStatusSucceeded, nil)

	notifier := new(MockNotifier)

	p := createTestPoller(t, store, index, notifier)
	_, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestPoller_PollOnce_MemoryIndex(t *testing.T) {
	ctx := context.Background()
	index := catalogindex.NewMemoryIndex("products")
	envelope, err := index.AddDocuments(ctx, []map[string]interface{}{{"id": "item-1", "name": "Sugar"}})
	require.NoError(t, err)
	uid := envelope.(*catalogindex.TaskInfo).TaskUID

	store := new(MockStore)
	store.On("Pending", mock.Anything, 20).Return([]TrackedTask{task(uid)}, nil)
	store.On("UpdateStatus", mock.Anything, uid, models.TaskStatusSucceeded).Return(nil).Once()

	p := createTestPoller(t, store, index, nil)
	result, err := p.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	store.AssertExpectations(t)
}

// ==========================
// Run
// ==========================

func TestPoller_Run_StopsOnCancel(t *testing.T) {
	store := new(MockStore)
	store.On("Pending", mock.Anything, 20).Return([]TrackedTask{}, nil)

	p := createTestPoller(t, store, new(MockStatusSource), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	store.AssertCalled(t, "Pending", mock.Anything, 20)
}
