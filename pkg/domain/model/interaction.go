package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// maxContentLength caps the stored length of user-supplied text.
const maxContentLength = 10000

// Interaction is a single inbound message from a user, uniquely keyed
// by the transport message SID. Interactions are immutable after
// creation except for backfill of processed media fields.
type Interaction struct {
	ID          types.InteractionID
	UserID      types.UserID
	MessageSID  types.MessageSID
	MessageType types.MessageType
	Content     string
	MediaURL    string
	MediaPath   string
	MediaHash   string
	Transcript  string
	CreatedAt   time.Time
}

// Validate checks the required interaction fields
func (x *Interaction) Validate() error {
	if err := x.MessageSID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid interaction")
	}
	if x.UserID == "" {
		return goerr.New("interaction requires a user ID", goerr.V("sid", x.MessageSID))
	}
	if err := x.MessageType.Validate(); err != nil {
		return goerr.Wrap(err, "invalid interaction", goerr.V("sid", x.MessageSID))
	}
	return nil
}

// SanitizeContent trims user content and truncates overlong input with
// an explicit marker.
func SanitizeContent(content string) string {
	content = strings.TrimSpace(content)
	if len(content) > maxContentLength {
		content = content[:maxContentLength] + "... [truncated]"
	}
	return content
}

// InboundMessage is the transport-normalized form of a webhook
// delivery, before any persistence.
type InboundMessage struct {
	From             string
	To               string
	MessageSID       types.MessageSID
	Body             string
	NumMedia         int
	MediaURL         string
	MediaContentType string
}

// MessageType derives the message type from the media attachment info
func (m *InboundMessage) MessageType() types.MessageType {
	return types.DetectMessageType(m.NumMedia, m.MediaContentType)
}

// InteractionWithUser is an interaction joined with its user, as
// returned by recent-interaction listings.
type InteractionWithUser struct {
	Interaction Interaction
	PhoneNumber string
}
