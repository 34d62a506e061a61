// internal/workers/catalog/track-task/models.go
package tracktask

import (
	"time"

	"github.com/chezona/chorom/internal/models"
)

// TrackedTask is one enqueued catalog write awaiting a final status.
type TrackedTask struct {
	TaskID    string            `json:"taskId"`
	ItemID    string            `json:"itemId"`
	ItemName  string            `json:"itemName"`
	Vendor    string            `json:"vendor"`
	Status    models.TaskStatus `json:"status"`
	Polls     int               `json:"polls"`
	CreatedAt time.Time         `json:"createdAt"`
}

// PollResult summarises one pass over the pending tasks.
type PollResult struct {
	Checked   int `json:"checked"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}
