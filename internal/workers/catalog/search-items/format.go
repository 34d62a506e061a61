// internal/workers/catalog/search-items/format.go
package searchitems

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chezona/chorom/internal/models"
)

const missing = "N/A"

// FormatResults renders at most max hits in the order received.
func FormatResults(query string, location *string, hits []models.CatalogItem, max int) string {
	where := ""
	if location != nil && *location != "" {
		where = " in " + *location
	}

	if len(hits) == 0 {
		return fmt.Sprintf("I couldn't find any '%s'%s.", query, where)
	}

	if max > 0 && len(hits) > max {
		hits = hits[:max]
	}

	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		lines = append(lines, formatHit(hit))
	}
	return fmt.Sprintf("Found these results for '%s'%s:\n%s", query, where, strings.Join(lines, "\n"))
}

func formatHit(item models.CatalogItem) string {
	price := missing
	if item.Price != nil {
		price = strconv.FormatFloat(*item.Price, 'f', -1, 64)
	}
	return fmt.Sprintf("- %s (%s %s, Vendor: %s)", orMissing(item.Name), price, item.Currency, orMissing(item.Vendor))
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}
