// internal/workers/catalog/write-item/models.go
package writeitem

import (
	"context"
	"fmt"

	"github.com/chezona/chorom/internal/models"
)

// Tracker follows an enqueued write until the index reports a final status.
type Tracker interface {
	Record(ctx context.Context, task models.AsyncTask, item models.CatalogItem) error
}

const (
	WriteFailedMessage = "Sorry, there was an error adding the product to the catalog."
	TaskIDMessage      = "Sorry, the catalog accepted your product but I couldn't confirm it. Please try again later."
)

func confirmationMessage(item models.CatalogItem) string {
	return fmt.Sprintf("Thanks! '%s' is being added to the catalog.", item.Name)
}
