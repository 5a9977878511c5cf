package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/media"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Media holds CLI flags for media storage
type Media struct {
	dir string
}

// Flags returns CLI flags for media configuration
func (m *Media) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "media-dir",
			Usage:       "Directory for downloaded media files",
			Value:       "media",
			Sources:     cli.EnvVars("WMA_MEDIA_DIR"),
			Destination: &m.dir,
		},
	}
}

// Dir returns the media storage directory
func (m *Media) Dir() string {
	return m.dir
}

// Configure builds the media processor. A nil fetcher disables media
// handling entirely, which is the case without Twilio credentials.
func (m *Media) Configure(fetcher interfaces.MediaFetcher, transcriber interfaces.Transcriber) (interfaces.MediaProcessor, error) {
	if fetcher == nil {
		logging.Default().Warn("No media fetcher configured, inbound media will not be stored")
		return nil, nil
	}

	var opts []media.Option
	if transcriber != nil {
		opts = append(opts, media.WithTranscriber(transcriber))
	}

	processor, err := media.New(m.dir, fetcher, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize media processor")
	}
	return processor, nil
}
