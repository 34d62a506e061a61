// internal/workers/conversation/handle-message/models.go
package handlemessage

import "github.com/chezona/chorom/internal/models"

// Input is the job variable set delivered by the transport process.
type Input struct {
	MessageID   string                 `json:"messageId"`
	SenderID    string                 `json:"senderId"`
	MessageType string                 `json:"messageType"`
	Text        string                 `json:"text,omitempty"`
	MediaID     string                 `json:"mediaId,omitempty"`
	MediaKind   string                 `json:"mediaKind,omitempty"`
	MediaRef    *models.MediaReference `json:"mediaRef,omitempty"`
}

// Output is written back as job variables.
type Output struct {
	Response string `json:"response"`
	Intent   string `json:"intent"`
	TaskID   string `json:"taskId,omitempty"`
	Cached   bool   `json:"cached,omitempty"`
}

func (in *Input) event() models.InboundEvent {
	return models.InboundEvent{
		MessageID:   in.MessageID,
		SenderID:    in.SenderID,
		MessageType: in.MessageType,
		Text:        in.Text,
		MediaID:     in.MediaID,
		MediaKind:   in.MediaKind,
		MediaRef:    in.MediaRef,
	}
}

func outputFromState(st *models.State) *Output {
	out := &Output{
		Response: st.Response,
		Intent:   string(st.Intent),
	}
	if st.AsyncTask != nil {
		out.TaskID = st.AsyncTask.TaskID
	}
	return out
}
