// internal/models/event.go
package models

// InboundEvent is a message already decomposed by the transport. MediaID is
// set whenever the message carried media; MediaRef is only set when the media
// store managed to resolve it locally.
type InboundEvent struct {
	MessageID   string          `json:"messageId"`
	SenderID    string          `json:"senderId"`
	MessageType string          `json:"messageType"`
	Text        string          `json:"text,omitempty"`
	MediaID     string          `json:"mediaId,omitempty"`
	MediaKind   string          `json:"mediaKind,omitempty"`
	MediaRef    *MediaReference `json:"mediaRef,omitempty"`
}

// MediaPresent reports whether the transport saw media on the message.
func (e InboundEvent) MediaPresent() bool {
	return e.MediaID != "" || e.MediaRef != nil
}
