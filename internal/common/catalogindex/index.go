// internal/common/catalogindex/index.go
package catalogindex

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chezona/chorom/internal/models"
)

var (
	ErrInvalidFilter = errors.New("INVALID_FILTER_FORMAT")
	ErrTaskNotFound  = errors.New("TASK_NOT_FOUND")
)

// Index is the catalog search backend.
//
// AddDocuments returns the backend's task envelope unchanged: a *TaskInfo for
// backends that report a task object, or the raw decoded map for older ones.
type Index interface {
	AddDocuments(ctx context.Context, docs []map[string]interface{}) (interface{}, error)
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error)
	EnsureIndex(ctx context.Context) error
}

type SearchRequest struct {
	Query  string
	Filter string
	Limit  int
}

type SearchResponse struct {
	Hits               []map[string]interface{} `json:"hits"`
	EstimatedTotalHits int64                    `json:"estimatedTotalHits"`
	ProcessingTimeMs   int64                    `json:"processingTimeMs"`
	Query              string                   `json:"query"`
}

// TaskInfo describes an enqueued asynchronous write.
type TaskInfo struct {
	TaskUID    string    `json:"taskUid"`
	IndexUID   string    `json:"indexUid"`
	Status     string    `json:"status"`
	Type       string    `json:"type"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Equality is one `field = 'value'` clause of a filter expression.
type Equality struct {
	Field string
	Value string
}

var (
	equalityClause = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_.]*)\s*=\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")\s*$`)
	andSeparator   = regexp.MustCompile(`(?i)\s+AND\s+`)
	escapeReplacer = strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`)
)

// ParseFilter parses a conjunction of equality clauses such as
// `vendor = 'Kampala' AND currency = 'UGX'`. An empty filter yields no clauses.
func ParseFilter(filter string) ([]Equality, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}

	parts := andSeparator.Split(filter, -1)
	out := make([]Equality, 0, len(parts))
	for _, part := range parts {
		loc := equalityClause.FindStringSubmatchIndex(part)
		if loc == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, part)
		}
		// group 2 is the single-quoted value, group 3 the double-quoted one
		value := ""
		if loc[4] >= 0 {
			value = part[loc[4]:loc[5]]
		} else {
			value = part[loc[6]:loc[7]]
		}
		out = append(out, Equality{Field: part[loc[2]:loc[3]], Value: escapeReplacer.Replace(value)})
	}
	return out, nil
}

// EqualityFilter renders the single-clause filter used for vendor scoping.
func EqualityFilter(field, value string) string {
	value = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return fmt.Sprintf("%s = '%s'", field, value)
}

// FilterableAttributes are declared on the index at bootstrap.
var FilterableAttributes = []string{"vendor", "currency", "category"}
