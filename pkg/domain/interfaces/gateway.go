package interfaces

import (
	"context"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// MessageSender delivers an outbound reply over the messaging
// transport.
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) error
}

// MediaFetcher downloads media content referenced by a webhook
// delivery, using the transport's authentication.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// Transcriber converts audio content to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ProcessedMedia is the result of running one attachment through the
// media pipeline.
type ProcessedMedia struct {
	Path       string
	Hash       string
	Size       int
	Transcript string
}

// MediaProcessor downloads, deduplicates and stores media, and
// transcribes audio attachments.
type MediaProcessor interface {
	Process(ctx context.Context, mediaURL string, msgType types.MessageType, contentType string) (*ProcessedMedia, error)
}
