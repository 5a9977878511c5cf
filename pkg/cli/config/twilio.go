package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/twilio"
	"github.com/urfave/cli/v3"
)

// Twilio holds CLI flags for the Twilio messaging transport
type Twilio struct {
	accountSID string
	authToken  string
	fromNumber string
}

// Flags returns CLI flags for Twilio configuration
func (t *Twilio) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "twilio-account-sid",
			Usage:       "Twilio account SID",
			Sources:     cli.EnvVars("WMA_TWILIO_ACCOUNT_SID", "TWILIO_ACCOUNT_SID"),
			Destination: &t.accountSID,
		},
		&cli.StringFlag{
			Name:        "twilio-auth-token",
			Usage:       "Twilio auth token, also used to verify webhook signatures",
			Sources:     cli.EnvVars("WMA_TWILIO_AUTH_TOKEN", "TWILIO_AUTH_TOKEN"),
			Destination: &t.authToken,
		},
		&cli.StringFlag{
			Name:        "twilio-whatsapp-from",
			Usage:       "WhatsApp sender number in whatsapp:+NNN form",
			Sources:     cli.EnvVars("WMA_TWILIO_WHATSAPP_FROM", "TWILIO_WHATSAPP_NUMBER"),
			Destination: &t.fromNumber,
		},
	}
}

// LogAttrs returns log attributes for the Twilio configuration. The
// auth token is never logged.
func (t *Twilio) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("account_sid", t.accountSID),
		slog.String("from", t.fromNumber),
		slog.Bool("auth_token_set", t.authToken != ""),
	}
}

// AuthToken returns the Twilio auth token for webhook signature
// verification.
func (t *Twilio) AuthToken() string {
	return t.authToken
}

// IsConfigured reports whether Twilio credentials were provided
func (t *Twilio) IsConfigured() bool {
	return t.accountSID != "" && t.authToken != ""
}

// Configure creates a Twilio client from the configured flags. Returns
// nil when credentials are absent; outbound replies and media download
// are then disabled.
func (t *Twilio) Configure() (*twilio.Client, error) {
	if !t.IsConfigured() {
		return nil, nil
	}
	if t.fromNumber == "" {
		return nil, goerr.New("twilio-whatsapp-from is required when Twilio credentials are set")
	}

	client, err := twilio.New(t.accountSID, t.authToken, t.fromNumber)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Twilio client")
	}
	return client, nil
}
