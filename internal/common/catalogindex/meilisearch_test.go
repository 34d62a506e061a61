// internal/common/catalogindex/meilisearch_test.go
package catalogindex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chezona/chorom/internal/models"
)

func newTestMeili(t *testing.T, handler http.HandlerFunc) *MeilisearchIndex {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewMeilisearchIndex(srv.URL, "master-key", "products", 5*time.Second,
		WithMeilisearchHTTPClient(srv.Client()))
}

// ==========================
// AddDocuments
// ==========================

func TestMeilisearch_AddDocuments_TaskEnvelope(t *testing.T) {
	var gotDocs []map[string]interface{}
	idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/indexes/products/documents", r.URL.Path)
		assert.Equal(t, "id", r.URL.Query().Get("primaryKey"))
		assert.Equal(t, "Bearer master-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotDocs))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"taskUid":42,"indexUid":"products","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2024-05-01T10:00:00.000000Z"}`))
	})

	envelope, err := idx.AddDocuments(context.Background(), []map[string]interface{}{
		{"id": "item-1", "name": "Sugar"},
	})
	require.NoError(t, err)

	info, ok := envelope.(*TaskInfo)
	require.True(t, ok, "expected *TaskInfo, got %T", envelope)
	assert.Equal(t, "42", info.TaskUID)
	assert.Equal(t, "products", info.IndexUID)
	assert.Equal(t, "enqueued", info.Status)
	assert.False(t, info.EnqueuedAt.IsZero())

	require.Len(t, gotDocs, 1)
	assert.Equal(t, "Sugar", gotDocs[0]["name"])
}

func TestMeilisearch_AddDocuments_ServerError(t *testing.T) {
	idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid document","code":"invalid_document_fields","type":"invalid_request","link":""}`))
	})

	_, err := idx.AddDocuments(context.Background(), []map[string]interface{}{{"id": "item-1"}})
	require.Error(t, err)

	var meiliErr *meilisearch.Error
	require.True(t, errors.As(err, &meiliErr))
	assert.Equal(t, http.StatusBadRequest, meiliErr.StatusCode)
	assert.Contains(t, err.Error(), "meilisearch add documents")
}

// ==========================
// Search
// ==========================

func TestMeilisearch_Search(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantTotal int64
	}{
		{
			name:      "estimated total",
			response:  `{"hits":[{"id":"1","name":"iPhone 12"},{"id":"2","name":"iPhone 13"}],"estimatedTotalHits":12,"processingTimeMs":3,"query":"iphone"}`,
			wantTotal: 12,
		},
		{
			name:      "no total",
			response:  `{"hits":[{"id":"1","name":"iPhone 12"},{"id":"2","name":"iPhone 13"}],"processingTimeMs":3,"query":"iphone"}`,
			wantTotal: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]interface{}
			idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/indexes/products/search", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.NoError(t, json.Unmarshal(body, &gotBody))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			})

			resp, err := idx.Search(context.Background(), SearchRequest{
				Query:  "iphone",
				Filter: "vendor = 'Kampala'",
				Limit:  5,
			})
			require.NoError(t, err)

			assert.Equal(t, "iphone", gotBody["q"])
			assert.Equal(t, "vendor = 'Kampala'", gotBody["filter"])
			assert.Equal(t, float64(5), gotBody["limit"])

			require.Len(t, resp.Hits, 2)
			assert.Equal(t, "iPhone 12", resp.Hits[0]["name"])
			assert.Equal(t, tt.wantTotal, resp.EstimatedTotalHits)
			assert.Equal(t, int64(3), resp.ProcessingTimeMs)
		})
	}
}

func TestMeilisearch_Search_OmitsEmptyFilter(t *testing.T) {
	var gotBody map[string]interface{}
	idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[]}`))
	})

	resp, err := idx.Search(context.Background(), SearchRequest{Query: "sugar"})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
	assert.NotContains(t, gotBody, "filter")
}

// ==========================
// TaskStatus
// ==========================

func TestMeilisearch_TaskStatus(t *testing.T) {
	tests := []struct {
		name       string
		serverBody string
		want       models.TaskStatus
	}{
		{name: "succeeded", serverBody: `{"uid":42,"status":"succeeded"}`, want: models.TaskStatusSucceeded},
		{name: "processing", serverBody: `{"uid":42,"status":"processing"}`, want: models.TaskStatusEnqueued},
		{name: "enqueued", serverBody: `{"uid":42,"status":"enqueued"}`, want: models.TaskStatusEnqueued},
		{name: "failed", serverBody: `{"uid":42,"status":"failed"}`, want: models.TaskStatusFailed},
		{name: "canceled", serverBody: `{"uid":42,"status":"canceled"}`, want: models.TaskStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/tasks/42", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.serverBody))
			})

			status, err := idx.TaskStatus(context.Background(), "42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestMeilisearch_TaskStatus_NotFound(t *testing.T) {
	idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Task 999 not found","code":"task_not_found","type":"invalid_request","link":""}`))
	})

	_, err := idx.TaskStatus(context.Background(), "999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

func TestMeilisearch_TaskStatus_NonNumericID(t *testing.T) {
	idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	_, err := idx.TaskStatus(context.Background(), "item-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

// ==========================
// EnsureIndex
// ==========================

func TestMeilisearch_EnsureIndex(t *testing.T) {
	tests := []struct {
		name         string
		createStatus int
		createBody   string
	}{
		{name: "created", createStatus: http.StatusAccepted, createBody: `{"taskUid":1,"indexUid":"products","status":"enqueued","type":"indexCreation"}`},
		{name: "already exists", createStatus: http.StatusConflict, createBody: `{"message":"index already exists","code":"index_already_exists","type":"invalid_request","link":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var settingsMethod string
			var attrs []string
			var created map[string]interface{}
			idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch r.URL.Path {
				case "/indexes":
					body, _ := io.ReadAll(r.Body)
					assert.NoError(t, json.Unmarshal(body, &created))
					w.WriteHeader(tt.createStatus)
					_, _ = w.Write([]byte(tt.createBody))
				case "/indexes/products/settings/filterable-attributes":
					settingsMethod = r.Method
					body, _ := io.ReadAll(r.Body)
					assert.NoError(t, json.Unmarshal(body, &attrs))
					w.WriteHeader(http.StatusAccepted)
					_, _ = w.Write([]byte(`{"taskUid":2,"indexUid":"products","status":"enqueued","type":"settingsUpdate"}`))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			})

			require.NoError(t, idx.EnsureIndex(context.Background()))
			assert.Equal(t, "products", created["uid"])
			assert.Equal(t, "id", created["primaryKey"])
			assert.Equal(t, http.MethodPut, settingsMethod)
			assert.Contains(t, attrs, "vendor")
		})
	}
}

func TestMeilisearch_EnsureIndex_CreateFails(t *testing.T) {
	idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid api key","code":"invalid_api_key","type":"auth","link":""}`))
	})

	err := idx.EnsureIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create index")
}

// ==========================
// Ping
// ==========================

func TestMeilisearch_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "available", status: http.StatusOK, body: `{"status":"available"}`},
		{name: "degraded", status: http.StatusOK, body: `{"status":"starting"}`, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"down","code":"internal","type":"internal","link":""}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestMeili(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := idx.Ping(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "meilisearch", idx.Name())
		})
	}
}
