// internal/common/catalogindex/elasticsearch.go
package catalogindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/chezona/chorom/internal/models"
)

// ElasticsearchIndex stores catalog documents in an Elasticsearch index.
// Writes are not refreshed, so a document becomes searchable on the next
// refresh; TaskStatus reports that visibility.
type ElasticsearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchIndex(client *elasticsearch.Client, index string) *ElasticsearchIndex {
	return &ElasticsearchIndex{client: client, index: index}
}

// Name returns the Elasticsearch index name.
func (e *ElasticsearchIndex) Name() string {
	return e.index
}

var catalogMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":              map[string]string{"type": "keyword"},
			"name":            map[string]string{"type": "text"},
			"description":     map[string]string{"type": "text"},
			"price":           map[string]string{"type": "double"},
			"currency":        map[string]string{"type": "keyword"},
			"category":        map[string]string{"type": "keyword"},
			"vendor":          map[string]string{"type": "keyword"},
			"media_id":        map[string]string{"type": "keyword"},
			"media_path":      map[string]string{"type": "keyword"},
			"media_mime_type": map[string]string{"type": "keyword"},
			"media_filename":  map[string]string{"type": "keyword"},
		},
	},
}

// AddDocuments indexes each document under its id and returns a *TaskInfo
// whose TaskUID is the id of the last document.
func (e *ElasticsearchIndex) AddDocuments(ctx context.Context, docs []map[string]interface{}) (interface{}, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("elasticsearch index: no documents")
	}

	var lastID string
	for _, doc := range docs {
		id, _ := doc["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("elasticsearch index: document without id")
		}

		body, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch index: marshal: %w", err)
		}

		res, err := e.client.Index(
			e.index,
			bytes.NewReader(body),
			e.client.Index.WithDocumentID(id),
			e.client.Index.WithContext(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch index: %w", err)
		}
		if err := checkResponse(res); err != nil {
			return nil, fmt.Errorf("elasticsearch index: %w", err)
		}
		lastID = id
	}

	return &TaskInfo{
		TaskUID:    lastID,
		IndexUID:   e.index,
		Status:     string(models.TaskStatusEnqueued),
		Type:       "documentAdditionOrUpdate",
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// BuildSearchQuery turns a search request into an Elasticsearch query body.
func BuildSearchQuery(req SearchRequest) (map[string]interface{}, error) {
	clauses, err := ParseFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	var must interface{} = map[string]interface{}{"match_all": map[string]interface{}{}}
	if req.Query != "" {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     req.Query,
				"fields":    []string{"name^3", "description^2", "category"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		}
	}

	filters := make([]interface{}, 0, len(clauses))
	for _, c := range clauses {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{c.Field: c.Value},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   []interface{}{must},
				"filter": filters,
			},
		},
		"track_total_hits": true,
	}, nil
}

type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string                 `json:"_id"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticsearchIndex) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query, err := BuildSearchQuery(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	}
	if req.Limit > 0 {
		opts = append(opts, e.client.Search.WithSize(req.Limit))
	}

	res, err := e.client.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search: %s", readError(res))
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode: %w", err)
	}

	out := &SearchResponse{
		Hits:               make([]map[string]interface{}, 0, len(parsed.Hits.Hits)),
		EstimatedTotalHits: parsed.Hits.Total.Value,
		ProcessingTimeMs:   parsed.Took,
		Query:              req.Query,
	}
	for _, h := range parsed.Hits.Hits {
		doc := h.Source
		if doc == nil {
			doc = map[string]interface{}{}
		}
		if _, ok := doc["id"]; !ok {
			doc["id"] = h.ID
		}
		out.Hits = append(out.Hits, doc)
	}
	return out, nil
}

// TaskStatus reports succeeded once the document is visible to search.
func (e *ElasticsearchIndex) TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"ids": map[string]interface{}{"values": []string{taskID}},
		},
	})

	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.index),
		e.client.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return "", fmt.Errorf("elasticsearch count: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", fmt.Errorf("elasticsearch count: %s", readError(res))
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("elasticsearch count: decode: %w", err)
	}
	if parsed.Count > 0 {
		return models.TaskStatusSucceeded, nil
	}
	return models.TaskStatusEnqueued, nil
}

// EnsureIndex creates the index with keyword mappings for the filterable fields.
func (e *ElasticsearchIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch index exists: %s", res.Status())
	}

	body, _ := json.Marshal(catalogMapping)
	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	return checkResponse(res)
}

func checkResponse(res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%s", readError(res))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

func readError(res *esapi.Response) string {
	buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Sprintf("%s: %s", res.Status(), string(buf))
}
