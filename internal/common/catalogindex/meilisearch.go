// internal/common/catalogindex/meilisearch.go
package catalogindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/chezona/chorom/internal/models"
)

// MeilisearchIndex serves the catalog from a Meilisearch index.
type MeilisearchIndex struct {
	client meilisearch.ServiceManager
	index  string
}

type MeilisearchOption func(*meiliOptions)

type meiliOptions struct {
	httpClient *http.Client
}

// WithMeilisearchHTTPClient replaces the transport used by the client.
func WithMeilisearchHTTPClient(c *http.Client) MeilisearchOption {
	return func(o *meiliOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

func NewMeilisearchIndex(baseURL, apiKey, index string, timeout time.Duration, opts ...MeilisearchOption) *MeilisearchIndex {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := &meiliOptions{httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(o)
	}

	clientOpts := []meilisearch.Option{meilisearch.WithCustomClient(o.httpClient)}
	if apiKey != "" {
		clientOpts = append(clientOpts, meilisearch.WithAPIKey(apiKey))
	}
	return &MeilisearchIndex{
		client: meilisearch.New(strings.TrimRight(baseURL, "/"), clientOpts...),
		index:  index,
	}
}

// AddDocuments enqueues documents for indexing under the "id" primary key.
func (m *MeilisearchIndex) AddDocuments(ctx context.Context, docs []map[string]interface{}) (interface{}, error) {
	task, err := m.client.Index(m.index).AddDocumentsWithContext(ctx, docs, "id")
	if err != nil {
		return nil, fmt.Errorf("meilisearch add documents: %w", err)
	}

	return &TaskInfo{
		TaskUID:    strconv.FormatInt(task.TaskUID, 10),
		IndexUID:   task.IndexUID,
		Status:     string(task.Status),
		Type:       string(task.Type),
		EnqueuedAt: task.EnqueuedAt,
	}, nil
}

func (m *MeilisearchIndex) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	request := &meilisearch.SearchRequest{}
	if req.Filter != "" {
		request.Filter = req.Filter
	}
	if req.Limit > 0 {
		request.Limit = int64(req.Limit)
	}

	resp, err := m.client.Index(m.index).SearchWithContext(ctx, req.Query, request)
	if err != nil {
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	hits, err := decodeHits(resp.Hits)
	if err != nil {
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	out := &SearchResponse{
		Hits:               hits,
		EstimatedTotalHits: resp.EstimatedTotalHits,
		ProcessingTimeMs:   resp.ProcessingTimeMs,
		Query:              resp.Query,
	}
	if out.EstimatedTotalHits == 0 {
		out.EstimatedTotalHits = int64(len(hits))
	}
	return out, nil
}

// decodeHits normalises the client's hit values into plain documents.
func decodeHits(raw interface{}) ([]map[string]interface{}, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode hits: %w", err)
	}
	var hits []map[string]interface{}
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	if hits == nil {
		hits = []map[string]interface{}{}
	}
	return hits, nil
}

func (m *MeilisearchIndex) TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	uid, err := strconv.ParseInt(taskID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	task, err := m.client.GetTaskWithContext(ctx, uid)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return "", fmt.Errorf("meilisearch task status: %w", err)
	}

	return mapMeiliStatus(string(task.Status)), nil
}

func mapMeiliStatus(status string) models.TaskStatus {
	switch status {
	case "succeeded", "processed":
		return models.TaskStatusSucceeded
	case "failed", "canceled":
		return models.TaskStatusFailed
	default:
		return models.TaskStatusEnqueued
	}
}

// EnsureIndex creates the index when missing and declares the filterable
// attributes. Both calls are idempotent on the server side.
func (m *MeilisearchIndex) EnsureIndex(ctx context.Context) error {
	_, err := m.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{
		Uid:        m.index,
		PrimaryKey: "id",
	})
	if err != nil && statusCode(err) != http.StatusConflict {
		return fmt.Errorf("meilisearch create index: %w", err)
	}

	attrs := append([]string(nil), FilterableAttributes...)
	if _, err := m.client.Index(m.index).UpdateFilterableAttributesWithContext(ctx, &attrs); err != nil {
		return fmt.Errorf("meilisearch filterable attributes: %w", err)
	}
	return nil
}

func (m *MeilisearchIndex) Name() string { return "meilisearch" }

// Ping reports whether the server answers "available".
func (m *MeilisearchIndex) Ping(ctx context.Context) error {
	health, err := m.client.HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("meilisearch health: %w", err)
	}
	if health.Status != "available" {
		return fmt.Errorf("meilisearch health: status %q", health.Status)
	}
	return nil
}

// statusCode extracts the HTTP status from a client error, or 0.
func statusCode(err error) int {
	var meiliErr *meilisearch.Error
	if errors.As(err, &meiliErr) {
		return meiliErr.StatusCode
	}
	return 0
}
