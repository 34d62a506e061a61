// internal/workers/catalog/search-items/handler.go
package searchitems

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chezona/chorom/internal/common/catalogindex"
	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/common/metrics"
	"github.com/chezona/chorom/internal/models"
)

const (
	TaskType = "search-items"
)

var (
	ErrSearchFailed = errors.New("SEARCH_FAILED")
)

type Handler struct {
	config *Config
	index  catalogindex.Index
	logger logger.Logger
}

func NewHandler(config *Config, index catalogindex.Index, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Step searches for the extracted item name and answers with the results.
func (h *Handler) Step(ctx context.Context, st *models.State) {
	query := ""
	if st.Extracted.ItemName != nil {
		query = *st.Extracted.ItemName
	}

	output := h.Execute(ctx, &Input{
		Query:    query,
		Filter:   st.SearchFilter,
		Location: st.Extracted.Location,
	})

	st.SearchHits = output.Hits
	st.Respond(output.Response)
}

// Execute runs one search. Backend failures are reported through the
// response text and an empty hit list, never as an error.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return &Output{Hits: []models.CatalogItem{}, Response: NoQueryMessage}
	}

	resp, err := h.search(ctx, query, input.Filter)
	if err != nil {
		metrics.CatalogSearches.WithLabelValues("error").Inc()
		h.logger.Error("catalog search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return &Output{Hits: []models.CatalogItem{}, Response: SearchFailedMessage}
	}

	hits := make([]models.CatalogItem, 0, len(resp.Hits))
	for _, doc := range resp.Hits {
		item, err := models.CatalogItemFromDocument(doc)
		if err != nil {
			h.logger.Warn("skipping malformed hit", map[string]interface{}{"error": err.Error()})
			continue
		}
		hits = append(hits, item)
	}

	result := "hits"
	if len(hits) == 0 {
		result = "empty"
	}
	metrics.CatalogSearches.WithLabelValues(result).Inc()

	h.logger.Info("catalog searched", map[string]interface{}{
		"query":            query,
		"hits":             len(hits),
		"estimatedTotal":   resp.EstimatedTotalHits,
		"processingTimeMs": resp.ProcessingTimeMs,
	})

	return &Output{
		Hits:               hits,
		Response:           FormatResults(query, input.Location, hits, h.config.MaxResults),
		EstimatedTotalHits: resp.EstimatedTotalHits,
		ProcessingTimeMs:   resp.ProcessingTimeMs,
	}
}

func (h *Handler) search(ctx context.Context, query string, filter *string) (resp *catalogindex.SearchResponse, err error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	req := catalogindex.SearchRequest{Query: query, Limit: h.config.SearchLimit}
	if filter != nil {
		req.Filter = *filter
	}

	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("%w: panic: %v", ErrSearchFailed, r)
		}
	}()

	resp, err = h.index.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrSearchFailed)
	}
	return resp, nil
}
