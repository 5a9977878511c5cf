package types

import "github.com/m-mizutani/goerr/v2"

// MessageType represents the kind of content carried by an interaction
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
	// MessageTypeMedia is the catch-all for media attachments that are
	// neither images nor audio.
	MessageTypeMedia MessageType = "media"
)

// Validate checks if the MessageType is valid
func (x MessageType) Validate() error {
	switch x {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeMedia:
		return nil
	default:
		return goerr.New("invalid message type", goerr.V("type", string(x)))
	}
}

// String returns the string representation of MessageType
func (x MessageType) String() string {
	return string(x)
}

// DetectMessageType determines the message type from the media count
// and the content type of the first attachment.
func DetectMessageType(numMedia int, mediaContentType string) MessageType {
	if numMedia <= 0 {
		return MessageTypeText
	}
	switch {
	case len(mediaContentType) >= 6 && mediaContentType[:6] == "image/":
		return MessageTypeImage
	case len(mediaContentType) >= 6 && mediaContentType[:6] == "audio/":
		return MessageTypeAudio
	default:
		return MessageTypeMedia
	}
}
