// internal/workers/catalog/search-items/models.go
package searchitems

import "github.com/chezona/chorom/internal/models"

type Input struct {
	Query    string  `json:"query"`
	Filter   *string `json:"filter,omitempty"`
	Location *string `json:"location,omitempty"`
}

type Output struct {
	Hits               []models.CatalogItem `json:"hits"`
	Response           string               `json:"response"`
	EstimatedTotalHits int64                `json:"estimatedTotalHits"`
	ProcessingTimeMs   int64                `json:"processingTimeMs"`
}

const (
	SearchFailedMessage = "Sorry, there was an error searching."
	NoQueryMessage      = "Sorry, I couldn't determine what to search for."
)
