// internal/common/catalogindex/memory.go
package catalogindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chezona/chorom/internal/models"
)

// MemoryIndex keeps documents in process. Writes are visible immediately
// and every task reports succeeded. Matching is a case-insensitive
// substring test on name and description.
type MemoryIndex struct {
	mu     sync.RWMutex
	index  string
	docs   []map[string]interface{}
	tasks  map[string]models.TaskStatus
	nextID int64
}

func NewMemoryIndex(index string) *MemoryIndex {
	return &MemoryIndex{
		index: index,
		tasks: make(map[string]models.TaskStatus),
	}
}

func (m *MemoryIndex) AddDocuments(ctx context.Context, docs []map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		copied := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			copied[k] = v
		}
		m.upsert(copied)
	}

	m.nextID++
	uid := strconv.FormatInt(m.nextID, 10)
	m.tasks[uid] = models.TaskStatusSucceeded

	return &TaskInfo{
		TaskUID:    uid,
		IndexUID:   m.index,
		Status:     string(models.TaskStatusEnqueued),
		Type:       "documentAdditionOrUpdate",
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func (m *MemoryIndex) upsert(doc map[string]interface{}) {
	id := fmt.Sprint(doc["id"])
	for i, existing := range m.docs {
		if fmt.Sprint(existing["id"]) == id {
			m.docs[i] = doc
			return
		}
	}
	m.docs = append(m.docs, doc)
}

func (m *MemoryIndex) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clauses, err := ParseFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	query := strings.ToLower(strings.TrimSpace(req.Query))

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]map[string]interface{}, 0)
	for _, doc := range m.docs {
		if !matchesClauses(doc, clauses) || !matchesQuery(doc, query) {
			continue
		}
		hits = append(hits, doc)
	}

	total := int64(len(hits))
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}

	return &SearchResponse{
		Hits:               hits,
		EstimatedTotalHits: total,
		ProcessingTimeMs:   time.Since(start).Milliseconds(),
		Query:              req.Query,
	}, nil
}

func matchesClauses(doc map[string]interface{}, clauses []Equality) bool {
	for _, c := range clauses {
		if fmt.Sprint(doc[c.Field]) != c.Value {
			return false
		}
	}
	return true
}

func matchesQuery(doc map[string]interface{}, query string) bool {
	if query == "" {
		return true
	}
	for _, field := range []string{"name", "description"} {
		if s, ok := doc[field].(string); ok && strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}

func (m *MemoryIndex) TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.tasks[taskID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return status, nil
}

func (m *MemoryIndex) EnsureIndex(ctx context.Context) error {
	return nil
}

// Len reports the number of stored documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
