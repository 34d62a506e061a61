// internal/common/genai/client.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/chezona/chorom/internal/common/validation"
)

var (
	ErrClassificationFailed = errors.New("CLASSIFICATION_FAILED")
	ErrClassifierTimeout    = errors.New("CLASSIFIER_TIMEOUT")
)

// Wire names of the intents the model may return.
const (
	IntentQueryProduct  = "query_product"
	IntentIngestProduct = "ingest_product"
	IntentGreeting      = "greeting"
	IntentUnknown       = "unknown"
)

// Request is what the classifier sees of a message.
type Request struct {
	Text         string
	MediaPresent bool
	MediaKind    string
}

// Analysis is the structured output of one classification.
type Analysis struct {
	Intent   string   `json:"intent"`
	ItemName *string  `json:"item_name"`
	Location *string  `json:"location"`
	Price    *float64 `json:"price"`
	Currency *string  `json:"currency"`
}

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

const analysisSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"intent": {"type": "string", "enum": ["query_product", "ingest_product", "greeting", "unknown"]},
		"item_name": {"type": ["string", "null"]},
		"location": {"type": ["string", "null"]},
		"price": {"type": ["number", "null"]},
		"currency": {"type": ["string", "null"]}
	},
	"required": ["intent", "item_name", "location", "price", "currency"]
}`

// outputSchema accepts any intent string; unrecognised values are mapped by the caller.
var outputSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"intent": {"type": "string"},
		"item_name": {"type": ["string", "null"]},
		"location": {"type": ["string", "null"]},
		"price": {"type": ["number", "null"]},
		"currency": {"type": ["string", "null"]}
	},
	"required": ["intent"]
}`)

const systemPrompt = "You classify messages sent to a product catalog assistant. " +
	"The intent is usually 'query_product' (asking whether something is available) or 'ingest_product' " +
	"(stating availability, price or details of something, usually to sell). Use 'greeting' for salutations " +
	"and 'unknown' when neither applies. Extract the item name, the price as a number and the currency code " +
	"when stated. Extract a location only for queries. Leave any field you cannot find as null."

// Client classifies messages through an OpenAI-compatible chat completions endpoint.
type Client struct {
	api        *openai.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
}

type Option func(*Client)

// WithBaseDelay sets the first retry backoff; later attempts double it.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// local OpenAI-compatible servers accept any key
		apiKey = "unused"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = apiBaseURL(cfg.BaseURL)
	oc.HTTPClient = &http.Client{Timeout: timeout}

	c := &Client{
		api:        openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiBaseURL normalises a configured base URL to the form ending in /v1.
func apiBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return "https://api.openai.com/v1"
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

func userPrompt(req Request) string {
	media := "No media file was attached."
	if req.MediaPresent {
		kind := req.MediaKind
		if kind == "" {
			kind = "media"
		}
		media = fmt.Sprintf("A %s file was attached, so the intent is almost certainly 'ingest_product'.", kind)
	}
	return fmt.Sprintf("%s\nText content: '%s'", media, req.Text)
}

// Classify asks the model for the intent and entities of a message. Errors
// wrap ErrClassifierTimeout or ErrClassificationFailed. Server errors, rate
// limiting and transport failures are retried up to MaxRetries times.
func (c *Client) Classify(ctx context.Context, req Request) (*Analysis, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "message_analysis",
				Strict: true,
				Schema: json.RawMessage(analysisSchema),
			},
		},
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = c.api.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			break
		}
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %v", ErrClassifierTimeout, err)
		}
		if attempt >= c.maxRetries || !retryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
		}

		select {
		case <-time.After(c.baseDelay << attempt):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrClassifierTimeout, ctx.Err())
		}
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrClassificationFailed)
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// retryable reports server-side and rate-limit failures, and failures that
// never produced an HTTP status.
func retryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == 0 {
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func parseAnalysis(content string) (*Analysis, error) {
	raw := []byte(strings.TrimSpace(content))

	if result := outputSchema.ValidateJSON(raw); !result.Valid {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, result.Error())
	}

	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode analysis: %v", ErrClassificationFailed, err)
	}

	a.Intent = strings.ToLower(strings.TrimSpace(a.Intent))
	a.ItemName = nonEmpty(a.ItemName)
	a.Location = nonEmpty(a.Location)
	a.Currency = nonEmpty(a.Currency)
	return &a, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
