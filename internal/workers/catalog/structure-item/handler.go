// internal/workers/catalog/structure-item/handler.go
package structureitem

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/models"
)

const (
	TaskType = "structure-item"
)

var (
	ErrMissingFields = errors.New("MISSING_FIELDS")
)

type Handler struct {
	config *Config
	newID  func() string
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		newID:  func() string { return uuid.New().String() },
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Step builds the canonical item for an ingest message. When the message
// carries neither a name nor a description the step answers the user and
// leaves CanonicalItem unset, which stops the branch before the write.
func (h *Handler) Step(ctx context.Context, st *models.State) {
	item, err := h.execute(&Input{
		SenderID:    st.SenderID,
		ItemName:    st.Extracted.ItemName,
		Description: st.Extracted.Description,
		Price:       st.Extracted.Price,
		Currency:    st.Extracted.Currency,
		Media:       st.IncomingMediaRef,
	})
	if err != nil {
		h.logger.Warn("item not structured", map[string]interface{}{
			"senderId": st.SenderID,
			"error":    err.Error(),
		})
		st.Respond(MissingFieldsMessage)
		return
	}

	st.CanonicalItem = item
}

func (h *Handler) execute(input *Input) (*models.CatalogItem, error) {
	if input.ItemName == nil && input.Description == nil {
		return nil, ErrMissingFields
	}

	description := ""
	if input.Description != nil {
		description = *input.Description
	}

	name := ""
	if input.ItemName != nil {
		name = strings.TrimSpace(*input.ItemName)
	}
	if name == "" {
		name = FallbackName(description, h.config.MaxNameLength)
	}

	currency := h.config.DefaultCurrency
	if input.Currency != nil && strings.TrimSpace(*input.Currency) != "" {
		currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}

	var price *float64
	if input.Price != nil {
		p := *input.Price
		price = &p
	}

	var media *models.MediaReference
	if input.Media != nil {
		m := *input.Media
		media = &m
	}

	item := &models.CatalogItem{
		ID:          h.newID(),
		Name:        name,
		Description: description,
		Price:       price,
		Currency:    currency,
		Category:    h.config.DefaultCategory,
		Vendor:      input.SenderID,
		Media:       media,
	}

	h.logger.Info("item structured", map[string]interface{}{
		"itemId":   item.ID,
		"name":     item.Name,
		"hasPrice": item.Price != nil,
		"hasMedia": item.Media != nil,
	})

	return item, nil
}

// FallbackName derives an item name from the first non-blank line of a
// description, cut to maxLen runes. It returns FallbackItemName when the
// description has no usable text.
func FallbackName(description string, maxLen int) string {
	line := ""
	for _, l := range strings.Split(description, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if line == "" {
		return FallbackItemName
	}

	runes := []rune(line)
	if maxLen > 0 && len(runes) > maxLen {
		line = strings.TrimSpace(string(runes[:maxLen]))
	}
	return line
}

func (h *Handler) Execute(input *Input) (*models.CatalogItem, error) {
	return h.execute(input)
}
