// internal/workers/conversation/classify-intent/handler.go
package classifyintent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chezona/chorom/internal/common/catalogindex"
	"github.com/chezona/chorom/internal/common/genai"
	"github.com/chezona/chorom/internal/common/logger"
	"github.com/chezona/chorom/internal/common/metrics"
	"github.com/chezona/chorom/internal/models"
)

const (
	TaskType = "classify-intent"
)

var (
	ErrNoContent        = errors.New("NO_CONTENT")
	ErrMediaUnavailable = errors.New("MEDIA_UNAVAILABLE")
)

// Classifier is the language-model backend.
type Classifier interface {
	Classify(ctx context.Context, req genai.Request) (*genai.Analysis, error)
}

type Handler struct {
	config     *Config
	classifier Classifier
	logger     logger.Logger
}

func NewHandler(config *Config, classifier Classifier, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		classifier: classifier,
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Step classifies the message held in st and writes the classifier-owned
// fields. On failure st is moved to the error intent with an apology.
func (h *Handler) Step(ctx context.Context, st *models.State) {
	output, err := h.execute(ctx, inputFromState(st))
	if err != nil {
		h.logger.Warn("classification aborted", map[string]interface{}{
			"senderId": st.SenderID,
			"error":    err.Error(),
		})
		st.Abort(output.Response)
		return
	}

	st.Intent = output.Intent
	st.Extracted = output.Extracted
	st.SearchFilter = output.SearchFilter
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	text := ""
	if input.Text != nil {
		text = strings.TrimSpace(*input.Text)
	}

	// a reported attachment that never arrived fails the message even when
	// it carries a caption
	if input.MediaID != "" && !input.MediaPresent {
		return &Output{Intent: models.IntentError, Response: MediaUnavailableMessage},
			fmt.Errorf("%w: media %s has no local reference", ErrMediaUnavailable, input.MediaID)
	}

	if text == "" && !input.MediaPresent {
		return &Output{Intent: models.IntentError, Response: NoContentMessage}, ErrNoContent
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	analysis, err := h.classifier.Classify(ctx, genai.Request{
		Text:         text,
		MediaPresent: input.MediaPresent,
		MediaKind:    input.MediaKind,
	})
	if err != nil {
		result := "error"
		if errors.Is(err, genai.ErrClassifierTimeout) {
			result = "timeout"
		}
		metrics.ClassifierCalls.WithLabelValues(result).Inc()
		return &Output{Intent: models.IntentError, Response: ClassifierErrorMessage}, err
	}
	metrics.ClassifierCalls.WithLabelValues("ok").Inc()

	intent := mapIntent(analysis.Intent)
	if input.MediaPresent {
		intent = models.IntentIngest
	}

	output := &Output{
		Intent: intent,
		Extracted: models.Extracted{
			ItemName: analysis.ItemName,
			Price:    analysis.Price,
			Currency: analysis.Currency,
		},
	}

	if intent == models.IntentQuery && !input.MediaPresent {
		output.Extracted.Location = analysis.Location
	}

	if intent == models.IntentIngest {
		raw := ""
		if input.Text != nil {
			raw = *input.Text
		}
		output.Extracted.Description = &raw
	}

	if intent == models.IntentQuery && output.Extracted.Location != nil && *output.Extracted.Location != "" {
		filter := catalogindex.EqualityFilter("vendor", *output.Extracted.Location)
		output.SearchFilter = &filter
	}

	h.logger.Info("message classified", map[string]interface{}{
		"modelIntent":  analysis.Intent,
		"intent":       string(intent),
		"mediaPresent": input.MediaPresent,
		"hasItemName":  analysis.ItemName != nil,
		"hasFilter":    output.SearchFilter != nil,
	})

	return output, nil
}

func mapIntent(wire string) models.Intent {
	switch wire {
	case genai.IntentQueryProduct:
		return models.IntentQuery
	case genai.IntentIngestProduct:
		return models.IntentIngest
	case genai.IntentGreeting:
		return models.IntentGreeting
	default:
		return models.IntentUnknown
	}
}

// Execute exposes the classification policy without a workflow state.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
