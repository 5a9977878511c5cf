package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/transcribe"
	"github.com/urfave/cli/v3"
)

// Transcribe holds CLI flags for voice transcription
type Transcribe struct {
	apiKey string
}

// Flags returns CLI flags for transcription configuration
func (t *Transcribe) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "elevenlabs-api-key",
			Usage:       "ElevenLabs API key for voice transcription",
			Sources:     cli.EnvVars("WMA_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY"),
			Destination: &t.apiKey,
		},
	}
}

// Configure creates the transcriber. Returns nil when no API key is
// configured; voice messages are then stored without transcripts.
func (t *Transcribe) Configure() (interfaces.Transcriber, error) {
	if t.apiKey == "" {
		return nil, nil
	}

	client, err := transcribe.New(t.apiKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create transcription client")
	}
	return client, nil
}
