// internal/common/catalogindex/elasticsearch_test.go
package catalogindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chezona/chorom/internal/models"
)

func newTestES(t *testing.T, handler http.HandlerFunc) *ElasticsearchIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return NewElasticsearchIndex(client, "products")
}

// ==========================
// Query builder
// ==========================

func TestBuildSearchQuery(t *testing.T) {
	query, err := BuildSearchQuery(SearchRequest{Query: "iphone", Filter: "vendor = 'Kampala'"})
	require.NoError(t, err)

	boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "multi_match")

	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 1)
	assert.Equal(t, map[string]interface{}{
		"term": map[string]interface{}{"vendor": "Kampala"},
	}, filters[0])
}

func TestBuildSearchQuery_EmptyQueryMatchesAll(t *testing.T) {
	query, err := BuildSearchQuery(SearchRequest{})
	require.NoError(t, err)

	boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	assert.Contains(t, must[0], "match_all")
	assert.Empty(t, boolQuery["filter"])
}

func TestBuildSearchQuery_InvalidFilter(t *testing.T) {
	_, err := BuildSearchQuery(SearchRequest{Query: "x", Filter: "vendor ~ 'a'"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

// ==========================
// Index operations
// ==========================

func TestElasticsearch_AddDocuments(t *testing.T) {
	var gotPath string
	var gotDoc map[string]interface{}
	idx := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotDoc))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_index":"products","_id":"item-1","result":"created"}`))
	})

	envelope, err := idx.AddDocuments(context.Background(), []map[string]interface{}{
		{"id": "item-1", "name": "Sugar", "vendor": "256700000001"},
	})
	require.NoError(t, err)

	info, ok := envelope.(*TaskInfo)
	require.True(t, ok)
	assert.Equal(t, "item-1", info.TaskUID)
	assert.Equal(t, "products", info.IndexUID)
	assert.Equal(t, string(models.TaskStatusEnqueued), info.Status)

	assert.Equal(t, "/products/_doc/item-1", gotPath)
	assert.Equal(t, "Sugar", gotDoc["name"])
}

func TestElasticsearch_AddDocuments_Errors(t *testing.T) {
	idx := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"}}`))
	})

	_, err := idx.AddDocuments(context.Background(), []map[string]interface{}{{"id": "item-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")

	_, err = idx.AddDocuments(context.Background(), []map[string]interface{}{{"name": "no id"}})
	assert.Error(t, err)

	_, err = idx.AddDocuments(context.Background(), nil)
	assert.Error(t, err)
}

func TestElasticsearch_Search(t *testing.T) {
	var gotSize string
	idx := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_search", r.URL.Path)
		gotSize = r.URL.Query().Get("size")
		_, _ = w.Write([]byte(`{
			"took": 4,
			"hits": {
				"total": {"value": 2, "relation": "eq"},
				"hits": [
					{"_id": "a", "_source": {"id": "a", "name": "iPhone 12", "price": 2500000}},
					{"_id": "b", "_source": {"name": "iPhone 13"}}
				]
			}
		}`))
	})

	resp, err := idx.Search(context.Background(), SearchRequest{Query: "iphone", Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, "5", gotSize)
	assert.Equal(t, int64(2), resp.EstimatedTotalHits)
	assert.Equal(t, int64(4), resp.ProcessingTimeMs)
	assert.Equal(t, "iphone", resp.Query)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "iPhone 12", resp.Hits[0]["name"])
	assert.Equal(t, "b", resp.Hits[1]["id"])
}

func TestElasticsearch_Search_BackendError(t *testing.T) {
	idx := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad query"}`))
	})

	_, err := idx.Search(context.Background(), SearchRequest{Query: "iphone"})
	assert.Error(t, err)
}

func TestElasticsearch_TaskStatus(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  models.TaskStatus
	}{
		{name: "visible", count: 1, want: models.TaskStatusSucceeded},
		{name: "not yet refreshed", count: 0, want: models.TaskStatusEnqueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/products/_count", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.Contains(t, string(body), "item-1")
				_ = json.NewEncoder(w).Encode(map[string]int{"count": tt.count})
			})

			status, err := idx.TaskStatus(context.Background(), "item-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestElasticsearch_EnsureIndex(t *testing.T) {
	tests := []struct {
		name        string
		existStatus int
		wantCreate  bool
	}{
		{name: "exists", existStatus: http.StatusOK, wantCreate: false},
		{name: "missing", existStatus: http.StatusNotFound, wantCreate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			idx := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.Method {
				case http.MethodHead:
					w.WriteHeader(tt.existStatus)
				case http.MethodPut:
					created = true
					body, _ := io.ReadAll(r.Body)
					assert.Contains(t, string(body), `"vendor":{"type":"keyword"}`)
					_, _ = w.Write([]byte(`{"acknowledged":true}`))
				}
			})

			require.NoError(t, idx.EnsureIndex(context.Background()))
			assert.Equal(t, tt.wantCreate, created)
		})
	}
}
