package model

import (
	"time"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// TimeReference is a typed, parsed natural-language time expression.
// Magnitude is set only for the numeric kinds (hours_ago, days_ago,
// weeks_ago, months_ago, last_hours).
type TimeReference struct {
	Kind      types.TimeKind
	RawText   string
	Magnitude int
}

// ResolvedRange is a concrete UTC interval derived from a TimeReference
// and a user timezone. Start is inclusive and End exclusive for store
// filtering. Invariant: Start < End.
type ResolvedRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range
func (r ResolvedRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// EmbeddingDimension is the dimension of the embedding vector used by
// the local semantic index
const EmbeddingDimension = 768

// SemanticHit is one ranked candidate returned by the semantic search
// backend. It lives for a single search call and is never persisted.
type SemanticHit struct {
	ExternalMemoryID types.ExternalMemoryID
	Text             string
	Score            float64
	Metadata         map[string]any
}

// ContentType classifies the hit from its metadata. Unknown or missing
// content types fall back to text.
func (h SemanticHit) ContentType() types.MessageType {
	v, ok := h.Metadata["content_type"].(string)
	if !ok {
		return types.MessageTypeText
	}
	switch t := types.MessageType(v); t {
	case types.MessageTypeImage, types.MessageTypeAudio:
		return t
	default:
		return types.MessageTypeText
	}
}

// Source returns the ingestion source recorded in metadata, if any
func (h SemanticHit) Source() string {
	v, _ := h.Metadata["source"].(string)
	return v
}

// Tags extracts tags from hit metadata. A nested insights.tags key
// takes precedence over a flat tags key whenever it is present, even
// when its list is empty.
func (h SemanticHit) Tags() []string {
	if insights, ok := h.Metadata["insights"].(map[string]any); ok {
		if raw, ok := insights["tags"]; ok {
			return toStringSlice(raw)
		}
	}
	return toStringSlice(h.Metadata["tags"])
}

func toStringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// RankedResult is one entry of the final query answer: a surfaced hit
// (semantic or relational-fallback) with display formatting and an
// optional join back to the relational record.
type RankedResult struct {
	ExternalMemoryID types.ExternalMemoryID
	DisplayText      string
	RawText          string
	Score            float64
	ContentType      types.MessageType
	Tags             []string
	// Matched is nil when the semantic hit had no relational
	// counterpart; the hit is still surfaced.
	Matched *MemoryWithInteraction
}
