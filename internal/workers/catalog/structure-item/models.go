// internal/workers/catalog/structure-item/models.go
package structureitem

import "github.com/chezona/chorom/internal/models"

type Input struct {
	SenderID    string                 `json:"senderId"`
	ItemName    *string                `json:"itemName"`
	Description *string                `json:"description"`
	Price       *float64               `json:"price"`
	Currency    *string                `json:"currency"`
	Media       *models.MediaReference `json:"media"`
}

const (
	MissingFieldsMessage = "Sorry, I need at least a product name or description to add it to the catalog."
	FallbackItemName     = "Unknown Item"
)
