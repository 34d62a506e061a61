// internal/workers/conversation/handle-message/schema.go
package handlemessage

import (
	"encoding/json"
	"fmt"

	"github.com/chezona/chorom/internal/common/validation"
)

var inputSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["senderId"],
  "properties": {
    "messageId":   {"type": "string"},
    "senderId":    {"type": "string", "minLength": 1},
    "messageType": {"type": "string"},
    "text":        {"type": "string"},
    "mediaId":     {"type": "string"},
    "mediaKind":   {"type": "string"},
    "mediaRef": {
      "type": ["object", "null"],
      "required": ["id", "path"],
      "properties": {
        "id":       {"type": "string", "minLength": 1},
        "mimeType": {"type": "string"},
        "path":     {"type": "string", "minLength": 1},
        "filename": {"type": "string"}
      }
    }
  }
}`)

// ParseInput validates raw job variables and decodes them.
func ParseInput(raw string) (*Input, error) {
	result := inputSchema.ValidateJSON([]byte(raw))
	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var input Input
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &input, nil
}
