package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/safe"
)

const (
	defaultAPIBase = "https://api.elevenlabs.io"
	modelID        = "scribe_v1"
)

// Client transcribes audio with the ElevenLabs speech-to-text API
type Client struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

var _ interfaces.Transcriber = &Client{}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIBase overrides the API base URL
func WithAPIBase(base string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimSuffix(base, "/")
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("ElevenLabs API key is required")
	}

	c := &Client{
		apiKey:     apiKey,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends audio to the speech-to-text endpoint and returns
// the transcript text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", goerr.Wrap(err, "failed to build multipart body")
	}
	if _, err := part.Write(audio); err != nil {
		return "", goerr.Wrap(err, "failed to write audio to multipart body")
	}
	if err := writer.WriteField("model_id", modelID); err != nil {
		return "", goerr.Wrap(err, "failed to write model field")
	}
	if err := writer.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v1/speech-to-text", &body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to build transcription request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call transcription API")
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", goerr.New("transcription API returned error",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(respBody)))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", goerr.Wrap(err, "failed to decode transcription response")
	}
	return strings.TrimSpace(result.Text), nil
}
