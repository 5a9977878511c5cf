package media_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/media"
)

type fakeFetcher struct {
	content []byte
	err     error
	calls   int
}

func (f *fakeFetcher) FetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	f.calls++
	return f.content, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return f.text, f.err
}

func TestProcessImage(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{content: []byte("jpeg-bytes")}

	p, err := media.New(dir, fetcher)
	gt.NoError(t, err).Required()

	result, err := p.Process(context.Background(), "https://example.com/media/ME1.jpg", types.MessageTypeImage, "image/jpeg")
	gt.NoError(t, err).Required()

	sum := sha256.Sum256([]byte("jpeg-bytes"))
	gt.Value(t, result.Hash).Equal(hex.EncodeToString(sum[:]))
	gt.Value(t, result.Size).Equal(len("jpeg-bytes"))
	gt.Value(t, result.Transcript).Equal("")
	gt.Bool(t, strings.HasPrefix(result.Path, filepath.Join(dir, "images"))).True()

	saved, err := os.ReadFile(result.Path)
	gt.NoError(t, err).Required()
	gt.Value(t, string(saved)).Equal("jpeg-bytes")
}

func TestProcessDeduplicates(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{content: []byte("same-bytes")}

	p, err := media.New(dir, fetcher)
	gt.NoError(t, err).Required()

	first, err := p.Process(context.Background(), "https://example.com/media/ME1.jpg", types.MessageTypeImage, "image/jpeg")
	gt.NoError(t, err).Required()
	second, err := p.Process(context.Background(), "https://example.com/media/ME2.jpg", types.MessageTypeImage, "image/jpeg")
	gt.NoError(t, err).Required()

	gt.Value(t, second.Path).Equal(first.Path)
	gt.Value(t, second.Hash).Equal(first.Hash)
}

func TestProcessAudio(t *testing.T) {
	t.Run("with transcriber", func(t *testing.T) {
		dir := t.TempDir()
		fetcher := &fakeFetcher{content: []byte("ogg-bytes")}

		p, err := media.New(dir, fetcher, media.WithTranscriber(&fakeTranscriber{text: "buy milk tomorrow"}))
		gt.NoError(t, err).Required()

		result, err := p.Process(context.Background(), "https://example.com/media/ME3", types.MessageTypeAudio, "audio/ogg")
		gt.NoError(t, err).Required()
		gt.Value(t, result.Transcript).Equal("buy milk tomorrow")

		transcript, err := os.ReadFile(filepath.Join(dir, "transcripts", result.Hash+".txt"))
		gt.NoError(t, err).Required()
		gt.Value(t, string(transcript)).Equal("buy milk tomorrow")
	})

	t.Run("transcriber failure degrades to placeholder", func(t *testing.T) {
		dir := t.TempDir()
		fetcher := &fakeFetcher{content: []byte("ogg-bytes")}

		p, err := media.New(dir, fetcher, media.WithTranscriber(&fakeTranscriber{err: goerr.New("api down")}))
		gt.NoError(t, err).Required()

		result, err := p.Process(context.Background(), "https://example.com/media/ME4", types.MessageTypeAudio, "audio/ogg")
		gt.NoError(t, err).Required()
		gt.Bool(t, strings.HasPrefix(result.Transcript, "[Voice message from ")).True()
	})

	t.Run("no transcriber uses filename placeholder", func(t *testing.T) {
		dir := t.TempDir()
		fetcher := &fakeFetcher{content: []byte("ogg-bytes")}

		p, err := media.New(dir, fetcher)
		gt.NoError(t, err).Required()

		result, err := p.Process(context.Background(), "https://example.com/media/ME5", types.MessageTypeAudio, "audio/ogg")
		gt.NoError(t, err).Required()
		gt.Bool(t, strings.HasPrefix(result.Transcript, "[Audio file: ")).True()
	})
}

func TestProcessFetchFailure(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{err: goerr.New("unreachable")}

	p, err := media.New(dir, fetcher)
	gt.NoError(t, err).Required()

	_, err = p.Process(context.Background(), "https://example.com/media/ME6.jpg", types.MessageTypeImage, "image/jpeg")
	gt.Error(t, err)
}
