package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// MemoryRecord is the relational system-of-record entry for one derived
// memory. ExternalMemoryID points into the semantic backend and is
// empty when memory creation against that backend degraded; it may be
// backfilled later. Records are otherwise immutable after creation.
type MemoryRecord struct {
	ID               types.MemoryRecordID
	UserID           types.UserID
	InteractionID    types.InteractionID
	ExternalMemoryID types.ExternalMemoryID
	Content          string
	Tags             []string
	CreatedAt        time.Time
}

// Validate checks the required memory record fields
func (x *MemoryRecord) Validate() error {
	if x.UserID == "" {
		return goerr.New("memory record requires a user ID")
	}
	if x.InteractionID == "" {
		return goerr.New("memory record requires an interaction ID", goerr.V("user_id", x.UserID))
	}
	if x.Content == "" {
		return goerr.New("memory record requires content", goerr.V("user_id", x.UserID))
	}
	return nil
}

// MemoryWithInteraction is a memory record joined with its originating
// interaction, as returned by the relational query path.
type MemoryWithInteraction struct {
	Memory          MemoryRecord
	MessageType     types.MessageType
	InteractionDate time.Time
}

// Insights are the derived attributes of one piece of content. All
// fields have deterministic fallbacks so ingestion never depends on
// the insight backend being reachable.
type Insights struct {
	Tags      []string        `json:"tags"`
	Category  string          `json:"category"`
	Sentiment types.Sentiment `json:"sentiment"`
}

// DefaultInsights returns the deterministic fallback used when the
// content-insight service is unavailable or returns garbage.
func DefaultInsights() Insights {
	return Insights{
		Tags:      []string{},
		Category:  "general",
		Sentiment: types.SentimentNeutral,
	}
}

// Normalize coerces missing or invalid insight fields to their
// fallback values.
func (x Insights) Normalize() Insights {
	if x.Tags == nil {
		x.Tags = []string{}
	}
	if x.Category == "" {
		x.Category = "general"
	}
	x.Sentiment = x.Sentiment.Normalize()
	return x
}
