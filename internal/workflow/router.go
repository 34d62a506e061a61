// internal/workflow/router.go
package workflow

import "github.com/chezona/chorom/internal/models"

// Decision is the router's choice after classification.
type Decision int

const (
	DecisionTerminal Decision = iota
	DecisionSearch
	DecisionStructureIngestion
)

func (d Decision) String() string {
	switch d {
	case DecisionSearch:
		return "search"
	case DecisionStructureIngestion:
		return "structure_ingestion"
	default:
		return "terminal"
	}
}

const (
	MissingItemMessage = "You asked to search, but didn't specify an item."
	GreetingMessage    = "Hello there! How can I help you?"
	FallbackMessage    = "Sorry, I'm not sure how to help with that. I can search for products or add new ones if you provide details."
	GenericMessage     = "Sorry, I encountered an issue processing your request."
)

// Route picks the branch for a classified state. Its only effect on st is
// filling an absent response when it returns DecisionTerminal.
func Route(st *models.State) Decision {
	switch st.Intent {
	case models.IntentQuery:
		if st.Extracted.ItemName != nil && *st.Extracted.ItemName != "" {
			return DecisionSearch
		}
		st.Respond(MissingItemMessage)
	case models.IntentIngest:
		return DecisionStructureIngestion
	case models.IntentGreeting:
		st.Respond(GreetingMessage)
	case models.IntentUnknown:
		st.Respond(FallbackMessage)
	default:
		st.Respond(GenericMessage)
	}
	return DecisionTerminal
}
