// internal/models/catalog.go
package models

import (
	"encoding/json"
	"fmt"
)

// MediaReference points at media already resolved to local storage by the
// media store before a workflow run starts.
type MediaReference struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	Path     string `json:"path"`
	Filename string `json:"filename,omitempty"`
}

// CatalogItem is the canonical record written to the search backend.
// Values are built once by the structurer and never mutated afterwards.
type CatalogItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       *float64        `json:"price"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Vendor      string          `json:"vendor"`
	Media       *MediaReference `json:"media,omitempty"`
}

// Document flattens the item into the key-value shape stored by the index.
func (c CatalogItem) Document() map[string]interface{} {
	doc := map[string]interface{}{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"price":       nil,
		"currency":    c.Currency,
		"category":    c.Category,
		"vendor":      c.Vendor,
	}
	if c.Price != nil {
		doc["price"] = *c.Price
	}
	if c.Media != nil {
		doc["media_id"] = c.Media.ID
		doc["media_path"] = c.Media.Path
		doc["media_mime_type"] = c.Media.MimeType
		if c.Media.Filename != "" {
			doc["media_filename"] = c.Media.Filename
		}
	}
	return doc
}

type catalogDocument struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Price         interface{} `json:"price"`
	Currency      string      `json:"currency"`
	Category      string      `json:"category"`
	Vendor        string      `json:"vendor"`
	MediaID       string      `json:"media_id"`
	MediaPath     string      `json:"media_path"`
	MediaMimeType string      `json:"media_mime_type"`
	MediaFilename string      `json:"media_filename"`
}

// CatalogItemFromDocument rebuilds an item from a flat index hit. Unknown
// keys are ignored; a price that is not a number is treated as absent.
func CatalogItemFromDocument(doc map[string]interface{}) (CatalogItem, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return CatalogItem{}, fmt.Errorf("marshal document: %w", err)
	}

	var d catalogDocument
	if err := json.Unmarshal(raw, &d); err != nil {
		return CatalogItem{}, fmt.Errorf("decode document: %w", err)
	}

	item := CatalogItem{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Currency:    d.Currency,
		Category:    d.Category,
		Vendor:      d.Vendor,
	}

	switch p := d.Price.(type) {
	case float64:
		item.Price = &p
	case json.Number:
		if f, err := p.Float64(); err == nil {
			item.Price = &f
		}
	}

	if d.MediaID != "" || d.MediaPath != "" {
		item.Media = &MediaReference{
			ID:       d.MediaID,
			Path:     d.MediaPath,
			MimeType: d.MediaMimeType,
			Filename: d.MediaFilename,
		}
	}

	return item, nil
}
