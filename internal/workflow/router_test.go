// internal/workflow/router_test.go
package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chezona/chorom/internal/models"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name         string
		state        models.State
		want         Decision
		wantResponse string
	}{
		{
			name:  "query with item",
			state: models.State{Intent: models.IntentQuery, Extracted: models.Extracted{ItemName: strPtr("iphone")}},
			want:  DecisionSearch,
		},
		{
			name:         "query without item",
			state:        models.State{Intent: models.IntentQuery},
			want:         DecisionTerminal,
			wantResponse: MissingItemMessage,
		},
		{
			name:         "query with empty item",
			state:        models.State{Intent: models.IntentQuery, Extracted: models.Extracted{ItemName: strPtr("")}},
			want:         DecisionTerminal,
			wantResponse: MissingItemMessage,
		},
		{
			name:  "ingest",
			state: models.State{Intent: models.IntentIngest},
			want:  DecisionStructureIngestion,
		},
		{
			name:         "greeting",
			state:        models.State{Intent: models.IntentGreeting},
			want:         DecisionTerminal,
			wantResponse: GreetingMessage,
		},
		{
			name:         "unknown",
			state:        models.State{Intent: models.IntentUnknown},
			want:         DecisionTerminal,
			wantResponse: FallbackMessage,
		},
		{
			name:         "error keeps message",
			state:        models.State{Intent: models.IntentError, Response: "Sorry, I had trouble."},
			want:         DecisionTerminal,
			wantResponse: "Sorry, I had trouble.",
		},
		{
			name:         "error without message",
			state:        models.State{Intent: models.IntentError},
			want:         DecisionTerminal,
			wantResponse: GenericMessage,
		},
		{
			name:         "unclassified",
			state:        models.State{},
			want:         DecisionTerminal,
			wantResponse: GenericMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.state
			assert.Equal(t, tt.want, Route(&st))
			assert.Equal(t, tt.wantResponse, st.Response)
		})
	}
}

func TestRoute_Pure(t *testing.T) {
	states := []models.State{
		{Intent: models.IntentQuery, Extracted: models.Extracted{ItemName: strPtr("iphone"), Location: strPtr("Gulu")}},
		{Intent: models.IntentIngest, Extracted: models.Extracted{Description: strPtr("x")}},
		{Intent: models.IntentGreeting, Response: "already answered"},
		{Intent: models.IntentUnknown},
	}

	for _, base := range states {
		first, second := base, base
		d1 := Route(&first)
		d2 := Route(&second)
		assert.Equal(t, d1, d2)
		assert.Equal(t, first, second)

		// only the response may change, and only when it was empty
		routed := first
		routed.Response = base.Response
		assert.Equal(t, base, routed)
		if base.Response != "" {
			assert.Equal(t, base.Response, first.Response)
		}
	}
}

func TestDecisionAndStepNames(t *testing.T) {
	assert.Equal(t, "search", DecisionSearch.String())
	assert.Equal(t, "structure_ingestion", DecisionStructureIngestion.String())
	assert.Equal(t, "terminal", DecisionTerminal.String())
	assert.Equal(t, "classify", StepClassify.String())
	assert.Equal(t, "write", StepWrite.String())
	assert.Equal(t, "step(9)", Step(9).String())
}
