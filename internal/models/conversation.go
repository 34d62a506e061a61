// internal/models/conversation.go
package models

type Intent string

const (
	IntentQuery    Intent = "query"
	IntentIngest   Intent = "ingest"
	IntentGreeting Intent = "greeting"
	IntentUnknown  Intent = "unknown"
	IntentError    Intent = "error"
)

type TaskStatus string

const (
	TaskStatusEnqueued  TaskStatus = "enqueued"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status will not change again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// Extracted holds the entities pulled out of the message by the classifier.
// A nil field means the entity was not found.
type Extracted struct {
	ItemName    *string  `json:"itemName,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// AsyncTask is the handle returned by the index for an enqueued write.
type AsyncTask struct {
	TaskID string     `json:"taskId"`
	Status TaskStatus `json:"status"`
}

// State is the per-message record threaded through every workflow step.
// It is owned by a single engine run and discarded once the run finishes.
//
// Field ownership:
//   - transport (set before the run): SenderID, MessageID, IncomingText,
//     IncomingMediaID, IncomingMediaRef
//   - classify-intent: Intent, Extracted, SearchFilter
//   - search-items: SearchHits
//   - structure-item: CanonicalItem
//   - write-item: AsyncTask
//
// Response is shared: the first step to answer wins, see Respond.
type State struct {
	SenderID         string          `json:"senderId"`
	MessageID        string          `json:"messageId,omitempty"`
	IncomingText     *string         `json:"incomingText,omitempty"`
	IncomingMediaID  string          `json:"incomingMediaId,omitempty"`
	IncomingMediaRef *MediaReference `json:"incomingMediaRef,omitempty"`

	Intent        Intent        `json:"intent,omitempty"`
	Extracted     Extracted     `json:"extracted"`
	SearchFilter  *string       `json:"searchFilter,omitempty"`
	SearchHits    []CatalogItem `json:"searchHits,omitempty"`
	CanonicalItem *CatalogItem  `json:"canonicalItem,omitempty"`
	AsyncTask     *AsyncTask    `json:"asyncTask,omitempty"`

	Response string `json:"response,omitempty"`
}

// NewState builds the initial state for an inbound event.
func NewState(event InboundEvent) *State {
	st := &State{
		SenderID:         event.SenderID,
		MessageID:        event.MessageID,
		IncomingMediaID:  event.MediaID,
		IncomingMediaRef: event.MediaRef,
	}
	if event.Text != "" {
		text := event.Text
		st.IncomingText = &text
	}
	if st.IncomingMediaRef != nil && st.IncomingMediaID == "" {
		st.IncomingMediaID = st.IncomingMediaRef.ID
	}
	return st
}

// HasResponse reports whether a user-visible reply has been set.
func (s *State) HasResponse() bool {
	return s.Response != ""
}

// Respond sets the reply unless one is already present. It reports whether
// the message was applied.
func (s *State) Respond(msg string) bool {
	if s.HasResponse() || msg == "" {
		return false
	}
	s.Response = msg
	return true
}

// ClearResponse drops the current reply so a later step may answer.
func (s *State) ClearResponse() {
	s.Response = ""
}

// HasMedia reports whether resolved media accompanies the message.
func (s *State) HasMedia() bool {
	return s.IncomingMediaRef != nil
}

// MediaClaimed reports whether the transport saw media on the message,
// whether or not it could be retrieved.
func (s *State) MediaClaimed() bool {
	return s.IncomingMediaID != "" || s.IncomingMediaRef != nil
}

// Text returns the message text or caption, empty when absent.
func (s *State) Text() string {
	if s.IncomingText == nil {
		return ""
	}
	return *s.IncomingText
}

// Abort moves the state to the error intent with the given reply, dropping
// any branch-specific fields and any earlier reply.
func (s *State) Abort(msg string) {
	s.Intent = IntentError
	s.SearchFilter = nil
	s.SearchHits = nil
	s.CanonicalItem = nil
	s.ClearResponse()
	s.Respond(msg)
}
