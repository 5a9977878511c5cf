package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

// Processor downloads media attachments, stores them deduplicated by
// content hash, and transcribes audio. The transcriber is optional:
// without one, audio falls back to a filename placeholder transcript.
type Processor struct {
	dir         string
	fetcher     interfaces.MediaFetcher
	transcriber interfaces.Transcriber
}

var _ interfaces.MediaProcessor = &Processor{}

type Option func(*Processor)

// WithTranscriber enables audio transcription
func WithTranscriber(transcriber interfaces.Transcriber) Option {
	return func(p *Processor) {
		p.transcriber = transcriber
	}
}

// New creates a media processor storing files under dir
func New(dir string, fetcher interfaces.MediaFetcher, opts ...Option) (*Processor, error) {
	if fetcher == nil {
		return nil, goerr.New("media fetcher is required")
	}

	p := &Processor{
		dir:     dir,
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, sub := range []string{"images", "audio", "transcripts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create media directory", goerr.V("dir", dir))
		}
	}
	return p, nil
}

// Process downloads the attachment, saves it under a content-hash
// filename (skipping the write when the same content was seen before),
// and transcribes audio attachments.
func (p *Processor) Process(ctx context.Context, mediaURL string, msgType types.MessageType, contentType string) (*interfaces.ProcessedMedia, error) {
	content, err := p.fetcher.FetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download media", goerr.V("url", mediaURL))
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	ext := fileExtension(mediaURL, contentType)

	filePath := filepath.Join(p.dir, subdir(msgType), hash+ext)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := os.WriteFile(filePath, content, 0o644); err != nil {
			return nil, goerr.Wrap(err, "failed to save media file", goerr.V("path", filePath))
		}
	}

	result := &interfaces.ProcessedMedia{
		Path: filePath,
		Hash: hash,
		Size: len(content),
	}

	if msgType == types.MessageTypeAudio {
		result.Transcript = p.transcribe(ctx, content, filePath)
		if result.Transcript != "" {
			transcriptPath := filepath.Join(p.dir, "transcripts", hash+".txt")
			if err := os.WriteFile(transcriptPath, []byte(result.Transcript), 0o644); err != nil {
				logging.From(ctx).Warn("failed to save transcript file",
					"error", err, "path", transcriptPath)
			}
		}
	}

	return result, nil
}

// transcribe never fails: unavailable or broken transcription degrades
// to a placeholder so the voice memory still gets stored.
func (p *Processor) transcribe(ctx context.Context, audio []byte, filePath string) string {
	name := filepath.Base(filePath)

	if p.transcriber == nil {
		return fmt.Sprintf("[Audio file: %s]", name)
	}

	transcript, err := p.transcriber.Transcribe(ctx, audio, name)
	if err != nil {
		logging.From(ctx).Warn("transcription failed, using placeholder", "error", err, "file", name)
		return fmt.Sprintf("[Voice message from %s]", name)
	}
	return transcript
}

func subdir(msgType types.MessageType) string {
	if msgType == types.MessageTypeImage {
		return "images"
	}
	return "audio"
}

// fileExtension prefers the declared content type over the URL path
func fileExtension(mediaURL, contentType string) string {
	if contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	if u, err := url.Parse(mediaURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return ext
		}
	}
	return ".bin"
}
