// internal/workers/conversation/classify-intent/models.go
package classifyintent

import "github.com/chezona/chorom/internal/models"

type Input struct {
	Text         *string `json:"text"`
	MediaID      string  `json:"mediaId"`
	MediaPresent bool    `json:"mediaPresent"`
	MediaKind    string  `json:"mediaKind"`
}

type Output struct {
	Intent       models.Intent    `json:"intent"`
	Extracted    models.Extracted `json:"extracted"`
	SearchFilter *string          `json:"searchFilter,omitempty"`
	Response     string           `json:"response,omitempty"`
}

const (
	NoContentMessage        = "Sorry, I couldn't understand the message content. Please send text or media."
	MediaUnavailableMessage = "Sorry, I couldn't retrieve the media you sent. Please try sending it again."
	ClassifierErrorMessage  = "Sorry, I had trouble analyzing the details of your request."
)

func inputFromState(st *models.State) *Input {
	in := &Input{
		Text:         st.IncomingText,
		MediaID:      st.IncomingMediaID,
		MediaPresent: st.HasMedia(),
	}
	if st.IncomingMediaRef != nil {
		in.MediaKind = st.IncomingMediaRef.MimeType
	}
	return in
}
